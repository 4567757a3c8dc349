package mcmc

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linearProblem builds y = 2 + 3x + N(0, 0.5²) with an intercept column.
func linearProblem(n int, seed uint64) *LinearModel {
	rng := rand.New(rand.NewPCG(seed, 99))
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.Float64()*10 - 5
		X.Set(i, 0, 1)
		X.Set(i, 1, x)
		y[i] = 2 + 3*x + rng.NormFloat64()*0.5
	}
	return &LinearModel{
		X:    X,
		Y:    y,
		Coef: []prior.Spec{prior.NewNormal(0, 100).Fixed(), prior.NewNormal(0, 100).Fixed()},
		Aux:  prior.NewExponential(0.1).Fixed(),
	}
}

func smallOptions() Options {
	return Options{Chains: 2, Iter: 600, Warmup: 200, Thin: 1, Seed: 42}
}

func TestPosteriorRecoversCoefficients(t *testing.T) {
	lm := linearProblem(200, 1)
	s, err := Run(context.Background(), lm, smallOptions(), nil)
	require.NoError(t, err)
	require.Len(t, s.Chains, 2)

	draws := s.Merge()
	assert.Equal(t, 800, draws.R)
	assert.Equal(t, 3, draws.C)

	assert.InDelta(t, 2.0, stats.Mean(draws.Col(0)), 0.2)
	assert.InDelta(t, 3.0, stats.Mean(draws.Col(1)), 0.05)
	assert.InDelta(t, 0.5, stats.Mean(draws.Col(2)), 0.08)

	for j := 0; j < 3; j++ {
		rhat := SplitRhat(s.Param(j))
		assert.Less(t, rhat, 1.05, "param %d", j)
	}
}

func TestStudentTPriorSamples(t *testing.T) {
	lm := linearProblem(100, 2)
	lm.Coef = []prior.Spec{prior.NewStudentT(3, 0, 10).Fixed(), prior.NewCauchy(0, 5).Fixed()}
	lm.Aux = prior.NewHalfNormal(5).Fixed()
	s, err := Run(context.Background(), lm, smallOptions(), nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, stats.Mean(s.Merge().Col(1)), 0.1)
}

func TestRunIsReproducible(t *testing.T) {
	lm := linearProblem(50, 3)
	a, err := Run(context.Background(), lm, smallOptions(), nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), lm, smallOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Merge().Data, b.Merge().Data)

	opts := smallOptions()
	opts.Seed = 43
	c, err := Run(context.Background(), lm, opts, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Merge().Data, c.Merge().Data)
}

func TestRunPriorIgnoresData(t *testing.T) {
	lm := linearProblem(50, 4)
	lm.Coef = []prior.Spec{prior.NewNormal(10, 1).Fixed(), prior.NewNormal(-5, 2).Fixed()}
	lm.Aux = prior.NewExponential(0.5).Fixed()

	opts := Options{Chains: 4, Iter: 2000, Warmup: 1000, Thin: 1, Seed: 7}
	s, err := RunPrior(context.Background(), lm, opts, nil)
	require.NoError(t, err)
	d := s.Merge()
	assert.InDelta(t, 10.0, stats.Mean(d.Col(0)), 0.1)
	assert.InDelta(t, -5.0, stats.Mean(d.Col(1)), 0.15)
	assert.InDelta(t, 2.0, stats.Std(d.Col(1)), 0.15)
	assert.InDelta(t, 2.0, stats.Mean(d.Col(2)), 0.15)
}

func TestRunPriorRejectsFlat(t *testing.T) {
	lm := linearProblem(10, 5)
	lm.Coef[1] = prior.NewFlat()
	_, err := RunPrior(context.Background(), lm, smallOptions(), nil)
	assert.Error(t, err)
}

func TestThinning(t *testing.T) {
	opts := Options{Chains: 1, Iter: 100, Warmup: 50, Thin: 3, Seed: 1}
	assert.Equal(t, 17, opts.DrawsPerChain())
	s, err := Run(context.Background(), linearProblem(20, 6), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 17, s.Chains[0].R)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{Chains: 0, Iter: 10, Thin: 1}.Validate())
	assert.Error(t, Options{Chains: 1, Iter: 10, Warmup: 10, Thin: 1}.Validate())
	assert.Error(t, Options{Chains: 1, Iter: 10, Thin: 0}.Validate())
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, linearProblem(20, 7), smallOptions(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlatPriorsNeedFullRank(t *testing.T) {
	lm := linearProblem(1, 8)
	lm.Coef = []prior.Spec{prior.NewFlat(), prior.NewFlat()}
	_, err := Run(context.Background(), lm, smallOptions(), nil)
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)
}

func TestSliceSampleTargetsNormal(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	logf := func(x float64) float64 { return -0.5 * (x - 1) * (x - 1) / 4 }
	x := 0.0
	draws := make([]float64, 20000)
	for i := range draws {
		x = sliceSample(x, logf, 1, 50, rng)
		draws[i] = x
	}
	assert.InDelta(t, 1.0, stats.Mean(draws), 0.1)
	assert.InDelta(t, 2.0, stats.Std(draws), 0.1)
}

func TestDiagnostics(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	iid := make([][]float64, 4)
	ar := make([][]float64, 4)
	for c := range iid {
		iid[c] = make([]float64, 1000)
		ar[c] = make([]float64, 1000)
		prev := 0.0
		for i := range iid[c] {
			iid[c][i] = rng.NormFloat64()
			prev = 0.9*prev + rng.NormFloat64()
			ar[c][i] = prev
		}
	}
	assert.InDelta(t, 1.0, SplitRhat(iid), 0.02)
	ess := ESS(iid)
	assert.Greater(t, ess, 2500.0)
	assert.Less(t, ess, 6000.0)

	essAR := ESS(ar)
	assert.Greater(t, essAR, 80.0)
	assert.Less(t, essAR, 500.0)

	// chains stuck in different places
	shifted := [][]float64{iid[0], make([]float64, 1000)}
	for i := range shifted[1] {
		shifted[1][i] = iid[1][i] + 5
	}
	assert.Greater(t, SplitRhat(shifted), 1.5)

	assert.True(t, math.IsNaN(SplitRhat([][]float64{{1, 1, 1, 1}})))
	assert.True(t, math.IsNaN(ESS([][]float64{{1, 2}})))
}
