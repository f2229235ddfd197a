package rhscache

import (
	"fmt"
	"sync"

	"github.com/apex/log"
)

// System is the owner of the solver that consults a Cache.
type System interface {
	PassCounter

	// Path identifies the system in logs and stats.
	Path() string

	// Group returns the workers sharing the system's distributed vectors.
	// A nil Group is treated as SingleWorker.
	Group() Group

	// UnderComplexStep reports whether the system is being evaluated with a
	// complex-step perturbation.
	UnderComplexStep() bool
}

// RedundancyReporter is implemented by systems that know whether their
// adjoint solves share dependencies. New warns when a system reports none,
// since caching is then unlikely to produce hits.
type RedundancyReporter interface {
	HasRedundantAdjoint() bool
}

// Outcome is the result category of a lookup.
type Outcome uint8

const (
	// Miss means the RHS matched nothing on at least one worker.
	Miss Outcome = iota
	// EqHit means the RHS equals a cached RHS.
	EqHit
	// NegHit means the RHS equals a negated cached RHS.
	NegHit
	// ParHit means the RHS is a scalar multiple of a cached RHS.
	ParHit
	// ZeroHit means the RHS is zero on every worker.
	ZeroHit
	// Bypass means the cache was not consulted: the system is under complex
	// step or caching is disabled.
	Bypass
)

var outcomeNames = [...]string{
	Miss:    "miss",
	EqHit:   "eq-hit",
	NegHit:  "neg-hit",
	ParHit:  "par-hit",
	ZeroHit: "zero-hit",
	Bypass:  "bypass",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}

	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// Hit reports whether o means no solve is needed.
func (o Outcome) Hit() bool {
	return o >= EqHit && o <= ZeroHit
}

// Result is the full answer of [Cache.Lookup].
type Result struct {
	// Solution is a fresh copy of the reusable solution, or nil.
	Solution []float64
	// Zero reports that the RHS is zero, so the solution is the zero vector.
	Zero    bool
	Outcome Outcome
	// Scale is the factor applied to the cached solution. It is 1 for EqHit
	// and -1 for NegHit.
	Scale float64
}

// SolveFunc solves A·x = rhs for the operator the cache is attached to.
type SolveFunc func(rhs []float64) ([]float64, error)

// Cache reuses linear solutions for right-hand sides that are equal to,
// the negation of, or parallel to a previously solved one.
//
// Each worker of a distributed system owns its own Cache over its shard.
// Lookup is collective: all workers must call it in the same order.
type Cache struct {
	mu sync.Mutex

	sys     System
	group   Group
	opts    Options
	tol     Tolerance
	store   *store
	tracker tracker
	stats   *counters // nil unless opts.CollectStats
}

// New returns a cache for the solver owned by sys.
//
// The current value of sys.DerivativePasses is the invalidation baseline.
func New(sys System, opts Options) (*Cache, error) {
	if sys == nil {
		return nil, fmt.Errorf("system must not be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", sys.Path(), err)
	}

	g := sys.Group()
	if g == nil {
		g = SingleWorker{}
	}

	c := &Cache{
		sys:     sys,
		group:   g,
		opts:    opts,
		tol:     opts.tolerance(),
		store:   newStore(opts.MaxCacheEntries),
		tracker: newTracker(sys),
	}
	if opts.CollectStats {
		c.stats = &counters{}
	}

	if opts.MaxCacheEntries > 0 {
		if r, ok := sys.(RedundancyReporter); ok && !r.HasRedundantAdjoint() {
			log.WithField("system", sys.Path()).
				Warn("rhs_checking is active but no redundant adjoint dependencies were found, so caching is unlikely to be beneficial")
		}
	}

	return c, nil
}

// Path returns the path of the owning system.
func (c *Cache) Path() string {
	return c.sys.Path()
}

// Options returns the options the cache was built with.
func (c *Cache) Options() Options {
	return c.opts
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.len()
}

// Cap returns the maximum number of cached pairs.
func (c *Cache) Cap() int {
	return c.store.cap()
}

// Clear removes all cached pairs. It is not counted as a reset.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.store.reset()
	c.mu.Unlock()
}

// AddSolution stores copies of rhs and solution. The oldest pair is evicted
// when the cache is full. It is a no-op when MaxCacheEntries is 0.
func (c *Cache) AddSolution(rhs, solution []float64) {
	if c.store.cap() == 0 {
		return
	}

	c.mu.Lock()
	c.store.add(rhs, solution)
	c.mu.Unlock()
}

// GetSolution returns a cached solution for rhs, or nil if a solve is
// needed. zero reports that rhs is zero on every worker, in which case the
// solution is the zero vector and no solve is needed.
func (c *Cache) GetSolution(rhs []float64) (solution []float64, zero bool) {
	r := c.Lookup(rhs)

	return r.Solution, r.Zero
}

// Lookup is GetSolution with the outcome category.
func (c *Cache) Lookup(rhs []float64) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sys.UnderComplexStep() {
		return Result{Outcome: Bypass}
	}

	if c.opts.CheckZero && allAgree(c.group, c.tol.IsZero(rhs)) {
		c.record(ZeroHit)
		return Result{Zero: true, Outcome: ZeroHit}
	}

	if c.store.cap() == 0 {
		return Result{Outcome: Bypass}
	}

	if passes, ok := c.tracker.stale(); ok {
		c.store.reset()
		if c.stats != nil {
			c.stats.recordReset()
		}
		log.WithFields(log.Fields{
			"system": c.sys.Path(),
			"passes": passes,
		}).Debug("rhs cache reset after derivative pass")
	}

	found, scale, cached := c.scan(rhs)

	if !allAgree(c.group, found != Miss) {
		c.record(Miss)
		return Result{Outcome: Miss}
	}

	c.record(found)

	return Result{
		Solution: scaled(cached, scale),
		Outcome:  found,
		Scale:    scale,
	}
}

// scan looks for the newest entry matching rhs.
func (c *Cache) scan(rhs []float64) (o Outcome, scale float64, sol []float64) {
	if c.store.len() == 0 {
		return Miss, 0, nil
	}

	for e := range c.store.newestFirst() {
		if o, scale := c.tol.match(rhs, e.rhs); o != Miss {
			return o, scale, e.sol
		}
	}

	return Miss, 0, nil
}

// Solve returns x with A·x = rhs, calling solve only when the cache cannot
// serve it. Solutions obtained from solve are stored, except under complex
// step.
func (c *Cache) Solve(rhs []float64, solve SolveFunc) ([]float64, Outcome, error) {
	r := c.Lookup(rhs)
	switch {
	case r.Zero:
		return make([]float64, len(rhs)), r.Outcome, nil
	case r.Solution != nil:
		return r.Solution, r.Outcome, nil
	}

	sol, err := solve(rhs)
	if err != nil {
		return nil, r.Outcome, fmt.Errorf("cannot solve for %s: %w", c.sys.Path(), err)
	}
	if r.Outcome != Bypass {
		c.AddSolution(rhs, sol)
	}

	return sol, r.Outcome, nil
}

func (c *Cache) record(o Outcome) {
	if c.stats != nil {
		c.stats.record(o)
	}
}

func scaled(sol []float64, scale float64) []float64 {
	out := make([]float64, len(sol))
	for i, x := range sol {
		out[i] = x * scale
	}

	return out
}
