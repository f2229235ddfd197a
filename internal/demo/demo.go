// Package demo simulates a block-Jacobi adjoint solve over a group of
// in-process workers, each owning one diagonal block of the operator and one
// rhscache.Cache.
package demo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.dw1.io/rhscache"
)

// ErrSingular is returned by Run when a generated block cannot be factorized.
var ErrSingular = errors.New("block is singular")

// StepKind is the kind of RHS a plan step produces.
type StepKind int

const (
	// Fresh draws a new random RHS and remembers it as base Base.
	Fresh StepKind = iota
	// Scaled reuses base Base multiplied by Scale.
	Scaled
	// Zero is the zero RHS.
	Zero
	// Diverge reuses base Base on worker 0 only; other workers draw a new
	// random RHS.
	Diverge
	// NewPass advances the derivative pass counter. It performs no solve.
	NewPass
)

// Step is one entry of a Plan.
type Step struct {
	Kind  StepKind
	Base  int
	Scale float64
}

// DefaultPlan exercises every lookup outcome.
var DefaultPlan = []Step{
	{Kind: Fresh, Base: 0},
	{Kind: Scaled, Base: 0, Scale: 1},
	{Kind: Scaled, Base: 0, Scale: -1},
	{Kind: Scaled, Base: 0, Scale: 2.5},
	{Kind: Zero},
	{Kind: Fresh, Base: 1},
	{Kind: Scaled, Base: 1, Scale: -3},
	{Kind: Diverge, Base: 0},
	{Kind: NewPass},
	{Kind: Scaled, Base: 0, Scale: 1},
}

// Config configures Run.
type Config struct {
	Workers   int
	BlockSize int
	Rounds    int
	Seed      int64
	Path      string
	Plan      []Step
	Options   rhscache.Options

	// ReportsDir is the directory the stats of every worker are keyed by.
	ReportsDir string
}

// DefaultConfig returns a two-worker configuration running DefaultPlan once.
func DefaultConfig() Config {
	opts := rhscache.DefaultOptions()
	opts.RTol = 1e-12
	opts.ATol = 1e-14
	opts.CollectStats = true

	return Config{
		Workers:    2,
		BlockSize:  8,
		Rounds:     1,
		Seed:       1,
		Path:       "model.coupled",
		ReportsDir: "reports",
		Plan:       DefaultPlan,
		Options:    opts,
	}
}

// Result is the outcome of Run.
type Result struct {
	// Outcomes holds the lookup outcomes of each worker, in plan order.
	Outcomes [][]rhscache.Outcome
	// Snapshots holds the stats of each worker.
	Snapshots []rhscache.Snapshot
	// Solves counts the solves each worker actually performed.
	Solves []int
}

// Merged returns the stats of all workers combined.
func (r Result) Merged() rhscache.Snapshot {
	return rhscache.MergeSnapshots(r.Snapshots...)
}

// model is the state shared by all workers.
type model struct {
	passes atomic.Int64
	group  rhscache.Group
}

// worker is the per-worker rhscache.System.
type worker struct {
	rank  int
	path  string
	model *model
}

func (w *worker) DerivativePasses() int64 { return w.model.passes.Load() }
func (w *worker) Path() string            { return w.path }
func (w *worker) Group() rhscache.Group   { return w.model.group }
func (w *worker) UnderComplexStep() bool  { return false }

func (w *worker) HasRedundantAdjoint() bool { return true }

// Run executes cfg.Plan cfg.Rounds times on cfg.Workers goroutines.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Workers <= 0 {
		return Result{}, fmt.Errorf("workers must be greater than 0; got %d", cfg.Workers)
	}
	if cfg.BlockSize <= 0 {
		return Result{}, fmt.Errorf("block size must be greater than 0; got %d", cfg.BlockSize)
	}

	m := &model{group: rhscache.NewLocalGroup(cfg.Workers)}

	// Factorize up front: a worker that fails after the first collective
	// would leave the others blocked.
	blocks := make([]*mat.Dense, cfg.Workers)
	factors := make([]*mat.LU, cfg.Workers)
	for rank := range blocks {
		a := diagonallyDominant(cfg.BlockSize, cfg.Seed+int64(rank)*7919)

		var lu mat.LU
		lu.Factorize(a)
		if math.IsInf(lu.Cond(), 1) {
			return Result{}, fmt.Errorf("worker %d: %w", rank, ErrSingular)
		}
		blocks[rank], factors[rank] = a, &lu
	}

	res := Result{
		Outcomes:  make([][]rhscache.Outcome, cfg.Workers),
		Snapshots: make([]rhscache.Snapshot, cfg.Workers),
		Solves:    make([]int, cfg.Workers),
	}

	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < cfg.Workers; rank++ {
		g.Go(func() error {
			return runWorker(ctx, cfg, m, rank, blocks[rank], factors[rank], &res)
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	return res, nil
}

func runWorker(ctx context.Context, cfg Config, m *model, rank int, a *mat.Dense, lu *mat.LU, res *Result) error {
	sys := &worker{rank: rank, path: cfg.Path, model: m}
	c, err := rhscache.New(sys, cfg.Options)
	if err != nil {
		return fmt.Errorf("worker %d: %w", rank, err)
	}

	reg := rhscache.NewStatsRegistry()
	reg.Register(cfg.ReportsDir, c)

	rng := rand.New(rand.NewSource(cfg.Seed*31 + int64(rank)))
	bases := make(map[int][]float64)
	logger := log.WithFields(log.Fields{"rank": rank, "system": cfg.Path})

	solve := func(rhs []float64) ([]float64, error) {
		res.Solves[rank]++

		x := mat.NewVecDense(len(rhs), nil)
		if err := lu.SolveVecTo(x, false, mat.NewVecDense(len(rhs), rhs)); err != nil {
			return nil, err
		}

		return x.RawVector().Data, nil
	}

	// Verification failures are collected, not returned, so that every
	// worker keeps taking part in the collectives.
	var errs []error
	for round := 0; round < cfg.Rounds; round++ {
		for i, step := range cfg.Plan {
			if step.Kind == NewPass {
				m.group.AllReduceSum(0)
				if rank == 0 {
					m.passes.Add(1)
				}
				m.group.AllReduceSum(0)
				continue
			}

			rhs := stepRHS(step, rank, cfg.BlockSize, rng, bases)
			x, outcome, err := c.Solve(rhs, solve)
			if err != nil {
				errs = append(errs, fmt.Errorf("worker %d step %d: %w", rank, i, err))
				continue
			}
			res.Outcomes[rank] = append(res.Outcomes[rank], outcome)
			logger.WithField("outcome", outcome).Debugf("step %d", i)

			if r := residual(a, x, rhs); r > 1e-8*(1+floats.Norm(rhs, math.Inf(1))) {
				errs = append(errs, fmt.Errorf("worker %d step %d: residual %g after %s", rank, i, r, outcome))
			}
		}

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
	}

	res.Snapshots[rank] = reg.Snapshot()

	return errors.Join(errs...)
}

func stepRHS(step Step, rank, n int, rng *rand.Rand, bases map[int][]float64) []float64 {
	switch step.Kind {
	case Fresh:
		v := random(rng, n)
		bases[step.Base] = v
		return clone(v)
	case Scaled:
		v := clone(bases[step.Base])
		for i := range v {
			v[i] *= step.Scale
		}
		return v
	case Diverge:
		if rank == 0 {
			return clone(bases[step.Base])
		}
		return random(rng, n)
	default:
		return make([]float64, n)
	}
}

// diagonallyDominant returns a random n×n matrix with a dominant diagonal,
// which is always non-singular.
func diagonallyDominant(n int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		var off float64
		for j := 0; j < n; j++ {
			if i != j {
				a.Set(i, j, rng.Float64()*2-1)
				off += math.Abs(a.At(i, j))
			}
		}
		a.Set(i, i, off+1+rng.Float64())
	}

	return a
}

func random(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}

	return v
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)

	return out
}

// residual returns the max-norm of a·x - b.
func residual(a *mat.Dense, x, b []float64) float64 {
	var ax mat.VecDense
	ax.MulVec(a, mat.NewVecDense(len(x), x))

	return floats.Distance(ax.RawVector().Data, b, math.Inf(1))
}
