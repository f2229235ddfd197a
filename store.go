package rhscache

import "iter"

// entry is an owned (rhs, solution) pair.
type entry struct {
	rhs []float64
	sol []float64
}

// store is a fixed-capacity FIFO of entries backed by a ring buffer.
//
// Slot buffers are allocated on first use and reused on eviction, so a
// warmed-up store does not allocate.
type store struct {
	slots    []entry
	writeIdx int // next write pos
	n        int // live entries
}

func newStore(capacity int) *store {
	return &store{slots: make([]entry, capacity)}
}

// add copies rhs and sol into the slot at writeIdx, overwriting the oldest
// entry once the store is full. It reports whether an entry was evicted.
func (s *store) add(rhs, sol []float64) (evicted bool) {
	if len(s.slots) == 0 {
		return false
	}

	slot := &s.slots[s.writeIdx]
	slot.rhs = copyInto(slot.rhs, rhs)
	slot.sol = copyInto(slot.sol, sol)

	s.writeIdx = (s.writeIdx + 1) % len(s.slots)
	if s.n == len(s.slots) {
		return true
	}
	s.n++

	return false
}

// reset drops all entries. Slot buffers are kept for reuse.
func (s *store) reset() {
	s.n = 0
	s.writeIdx = 0
}

func (s *store) len() int {
	return s.n
}

func (s *store) cap() int {
	return len(s.slots)
}

// newestFirst yields live entries from the most recently added to the oldest.
func (s *store) newestFirst() iter.Seq[*entry] {
	return func(yield func(*entry) bool) {
		c := len(s.slots)
		for i := 0; i < s.n; i++ {
			idx := (s.writeIdx - 1 - i + c) % c
			if !yield(&s.slots[idx]) {
				return
			}
		}
	}
}

func copyInto(dst, src []float64) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	copy(dst, src)

	return dst
}
