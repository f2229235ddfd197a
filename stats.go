package rhscache

import "sync/atomic"

// Stats represents cache stats.
//
// Use [Cache.UpdateStats] for obtaining fresh stats from the cache.
type Stats struct {
	// EqHits is the number of lookups served by an equal cached RHS.
	EqHits uint64 `json:"eq_hits" yaml:"eq_hits"`

	// NegHits is the number of lookups served by a negated cached RHS.
	NegHits uint64 `json:"neg_hits" yaml:"neg_hits"`

	// ParHits is the number of lookups served by a parallel cached RHS.
	ParHits uint64 `json:"par_hits" yaml:"par_hits"`

	// ZeroHits is the number of lookups with a zero RHS.
	ZeroHits uint64 `json:"zero_hits" yaml:"zero_hits"`

	// Misses is the number of lookups that required a solve.
	Misses uint64 `json:"misses" yaml:"misses"`

	// Resets is the number of clears caused by a new derivative pass.
	// Explicit [Cache.Clear] calls are not counted.
	Resets uint64 `json:"resets" yaml:"resets"`
}

// Hits returns the number of lookups that skipped a solve.
func (s *Stats) Hits() uint64 {
	return s.EqHits + s.NegHits + s.ParHits + s.ZeroHits
}

// Add adds the counters of o to s.
func (s *Stats) Add(o Stats) {
	s.EqHits += o.EqHits
	s.NegHits += o.NegHits
	s.ParHits += o.ParHits
	s.ZeroHits += o.ZeroHits
	s.Misses += o.Misses
	s.Resets += o.Resets
}

// Reset resets s, so it may be re-used again in [Cache.UpdateStats].
func (s *Stats) Reset() {
	*s = Stats{}
}

// counters are updated by the owning worker and may be read concurrently by
// a StatsRegistry.
type counters struct {
	eqHits   uint64
	negHits  uint64
	parHits  uint64
	zeroHits uint64
	misses   uint64
	resets   uint64
}

func (c *counters) record(o Outcome) {
	switch o {
	case EqHit:
		atomic.AddUint64(&c.eqHits, 1)
	case NegHit:
		atomic.AddUint64(&c.negHits, 1)
	case ParHit:
		atomic.AddUint64(&c.parHits, 1)
	case ZeroHit:
		atomic.AddUint64(&c.zeroHits, 1)
	case Miss:
		atomic.AddUint64(&c.misses, 1)
	}
}

func (c *counters) recordReset() {
	atomic.AddUint64(&c.resets, 1)
}

// UpdateStats adds cache stats to s.
//
// Call [Stats.Reset] before calling UpdateStats if s is re-used. Caches built
// without CollectStats leave s unchanged.
func (c *Cache) UpdateStats(s *Stats) {
	if c.stats == nil {
		return
	}
	s.EqHits += atomic.LoadUint64(&c.stats.eqHits)
	s.NegHits += atomic.LoadUint64(&c.stats.negHits)
	s.ParHits += atomic.LoadUint64(&c.stats.parHits)
	s.ZeroHits += atomic.LoadUint64(&c.stats.zeroHits)
	s.Misses += atomic.LoadUint64(&c.stats.misses)
	s.Resets += atomic.LoadUint64(&c.stats.resets)
}
