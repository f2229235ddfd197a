package rhscache

// PassCounter reports the number of completed full derivative-evaluation
// passes of the owning model. The value never decreases.
type PassCounter interface {
	DerivativePasses() int64
}

// tracker detects that a derivative pass has completed since the cache was
// last consulted.
type tracker struct {
	counter  PassCounter
	baseline int64
}

func newTracker(c PassCounter) tracker {
	return tracker{counter: c, baseline: c.DerivativePasses()}
}

// stale reports whether the global counter moved away from the baseline and,
// if so, adopts the current value as the new baseline.
func (t *tracker) stale() (current int64, ok bool) {
	current = t.counter.DerivativePasses()
	if current == t.baseline {
		return current, false
	}
	t.baseline = current

	return current, true
}
