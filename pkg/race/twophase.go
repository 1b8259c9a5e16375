package race

// TwoPhase is the reserved outcome of an asynchronous operation, awaiting
// its second phase. Exactly one of Commit or Abort must be invoked, exactly
// once, for every TwoPhase instance an operation produces: Commit finalises
// the operation's side effect and yields its logical value, Abort undoes the
// reservation the operation holds.
//
// The implementations are a closed set internal to this package, produced by
// the queue adapters in adapters.go.
type TwoPhase[V any] interface {
	Commit() V
	Abort()
}

// readHit holds one reserved item acquired from a queue. Commit consumes the
// reservation and converts the item; Abort rolls the reservation back so the
// item becomes visible to other readers again.
type readHit[U, V any] struct {
	res     Reservation[U]
	item    U
	convert func(U) V
}

func (r readHit[U, V]) Commit() V {
	r.res.Release(1)
	return r.convert(r.item)
}

func (r readHit[U, V]) Abort() {
	r.res.Release(0)
}

// readEOF is an end-of-stream observation. Nothing was reserved, so both
// phases leave the queue untouched; Commit yields the caller-supplied
// end-of-stream value.
type readEOF[V any] struct {
	value V
}

func (r readEOF[V]) Commit() V {
	return r.value
}

func (r readEOF[V]) Abort() {}

// writeCommit holds one reserved write slot. Commit pushes the value into
// the slot and yields the success sentinel; Abort releases the slot without
// writing.
type writeCommit[U, V any] struct {
	q       Writer[U]
	value   U
	success V
}

func (w writeCommit[U, V]) Commit() V {
	w.q.CompleteWrite(w.value)
	return w.success
}

func (w writeCommit[U, V]) Abort() {
	w.q.CancelWrite()
}
