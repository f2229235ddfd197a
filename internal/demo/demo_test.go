package demo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"go.dw1.io/rhscache"
)

func TestRunTwoWorkers(t *testing.T) {
	cfg := DefaultConfig()

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	want := []rhscache.Outcome{
		rhscache.Miss,
		rhscache.EqHit,
		rhscache.NegHit,
		rhscache.ParHit,
		rhscache.ZeroHit,
		rhscache.Miss,
		rhscache.ParHit,
		rhscache.Miss, // worker 0 matches locally, worker 1 does not
		rhscache.Miss, // cleared by the new derivative pass
	}
	for rank, got := range res.Outcomes {
		assert.Equal(t, want, got, "worker %d", rank)
	}
	assert.Equal(t, []int{4, 4}, res.Solves)

	merged := res.Merged()
	require.Len(t, merged.Reports, 1)
	require.Len(t, merged.Reports[0].Systems, 1)
	assert.Equal(t, "reports", merged.Reports[0].Dir)
	assert.Equal(t, "model.coupled", merged.Reports[0].Systems[0].Path)
	assert.Equal(t, rhscache.Stats{
		EqHits:   2,
		NegHits:  2,
		ParHits:  4,
		ZeroHits: 2,
		Misses:   8,
		Resets:   2,
	}, merged.Total())
}

func TestRunSingleWorker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.Rounds = 2

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	require.Len(t, res.Outcomes[0], 2*9)

	// Without other workers the diverging step is a plain equality hit.
	assert.Equal(t, rhscache.EqHit, res.Outcomes[0][7])
}

func TestRunCachingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options.MaxCacheEntries = 0

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	for _, got := range res.Outcomes {
		for i, o := range got {
			if i == 4 {
				assert.Equal(t, rhscache.ZeroHit, o)
				continue
			}
			assert.Equal(t, rhscache.Bypass, o, "step %d", i)
		}
	}
	assert.Equal(t, []int{8, 8}, res.Solves)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err := Run(context.Background(), cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.BlockSize = 0
	_, err = Run(context.Background(), cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Options.RTol = -1
	_, err = Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBlockSolveResidual(t *testing.T) {
	a := diagonallyDominant(6, 42)

	var lu mat.LU
	lu.Factorize(a)
	require.False(t, math.IsInf(lu.Cond(), 1))

	b := []float64{1, -2, 3, 0, 0.5, -1}
	x := mat.NewVecDense(len(b), nil)
	require.NoError(t, lu.SolveVecTo(x, false, mat.NewVecDense(len(b), b)))
	assert.Less(t, residual(a, x.RawVector().Data, b), 1e-10)
	assert.Greater(t, residual(a, make([]float64, len(b)), b), 1.0)
}
