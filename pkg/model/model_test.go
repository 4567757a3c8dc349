package model

import (
	"context"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func numCol(name string, v []float64) data.Column {
	return data.Column{Name: name, Kind: data.Numeric, Num: v, Missing: make([]bool, len(v))}
}

// generateLinearData builds y = 1 + 2x + N(0, noise²) with x in [lo, hi].
func generateLinearData(t *testing.T, n int, lo, hi, noise float64, seed uint64) *data.Frame {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 17))
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = lo + (hi-lo)*rng.Float64()
		y[i] = 1 + 2*x[i] + noise*rng.NormFloat64()
	}
	f, err := data.NewFrame(numCol("y", y), numCol("x", x))
	require.NoError(t, err)
	return f
}

func newX(t *testing.T, xs ...float64) *data.Frame {
	t.Helper()
	f, err := data.NewFrame(numCol("x", xs))
	require.NoError(t, err)
	return f
}

func quickModel(priors prior.Set, opts ...Option) *BayesLinearRegression {
	base := []Option{WithChains(2), WithIter(800), WithWarmup(300), WithSeed(7)}
	return NewBayesLinearRegression(priors, append(base, opts...)...)
}

func TestFitRecoversOLS(t *testing.T) {
	frame := generateLinearData(t, 150, -3, 3, 0.7, 1)
	fit, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)

	assert.Equal(t, []string{InterceptName, "x", SigmaName}, fit.Params)
	assert.Equal(t, 1000, fit.NDraws())
	assert.Equal(t, "posterior", fit.Kind())

	// closed form least squares
	x, _ := frame.Numeric("x")
	y, _ := frame.Numeric("y")
	X := mat.NewDense(len(x), 2, nil)
	for i := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	var beta mat.VecDense
	require.NoError(t, beta.SolveVec(X, mat.NewVecDense(len(y), y)))

	a, err := fit.Param(InterceptName)
	require.NoError(t, err)
	b, err := fit.Param("x")
	require.NoError(t, err)
	assert.InDelta(t, beta.AtVec(0), stats.Mean(a), 0.05)
	assert.InDelta(t, beta.AtVec(1), stats.Mean(b), 0.03)
	assert.InDelta(t, 0.7, stats.Mean(fit.Sigma()), 0.1)

	for j, r := range fit.Rhat {
		assert.Less(t, r, RhatWarning, fit.Params[j])
		assert.Greater(t, fit.ESS[j], 100.0, fit.Params[j])
	}
}

func TestPosteriorPredictShapeAndSeed(t *testing.T) {
	frame := generateLinearData(t, 60, -2, 2, 1, 2)
	fit, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)

	nd := newX(t, -1, 0, 1, 2.5)
	a, err := fit.PosteriorPredict(nd, WithPredictSeed(11))
	require.NoError(t, err)
	assert.Equal(t, fit.NDraws(), a.R)
	assert.Equal(t, 4, a.C)

	b, err := fit.PosteriorPredict(nd, WithPredictSeed(11))
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)

	c, err := fit.PosteriorPredict(nd, WithPredictSeed(12))
	require.NoError(t, err)
	assert.NotEqual(t, a.Data, c.Data)

	sub, err := fit.PosteriorPredict(nd, WithDraws(50))
	require.NoError(t, err)
	assert.Equal(t, 50, sub.R)

	lin, err := fit.PosteriorLinpred(nd)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stats.Mean(lin.Col(1)), 0.4)
	assert.Less(t, stats.Std(lin.Col(1)), stats.Std(a.Col(1)))
}

func TestPriorOnlyDiffersFromPosterior(t *testing.T) {
	frame := generateLinearData(t, 100, -2, 2, 0.5, 3)
	post, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)
	pri, err := quickModel(prior.Default(), WithPriorOnly(true)).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)
	assert.Equal(t, "prior", pri.Kind())

	bPost, _ := post.Param("x")
	bPrior, _ := pri.Param("x")
	assert.InDelta(t, 2.0, stats.Mean(bPost), 0.1)
	assert.Greater(t, stats.Std(bPrior), 10*stats.Std(bPost))

	nd := newX(t, 1)
	pp, err := post.PosteriorPredict(nd)
	require.NoError(t, err)
	pr, err := pri.PosteriorPredict(nd)
	require.NoError(t, err)
	assert.Greater(t, stats.Std(pr.Col(0)), stats.Std(pp.Col(0)))
}

func TestPriorOnlyRejectsFlatPriors(t *testing.T) {
	frame := generateLinearData(t, 20, 0, 1, 1, 4)
	ps := prior.Default()
	ps.Coefficients = prior.NewFlat()
	_, err := quickModel(ps, WithPriorOnly(true)).Fit(context.Background(), "y ~ x", frame)
	assert.ErrorIs(t, err, ErrImproperPrior)
}

func TestTighterPriorShrinksPredictiveSpread(t *testing.T) {
	// few observations near zero, prediction far outside them
	frame := generateLinearData(t, 8, -1, 1, 1, 5)
	predictAt := newX(t, 10)

	spread := func(scale float64) float64 {
		ps := prior.Default()
		ps.Coefficients = prior.NewNormal(0, scale).Fixed()
		fit, err := quickModel(ps).Fit(context.Background(), "y ~ x", frame)
		require.NoError(t, err)
		pp, err := fit.PosteriorPredict(predictAt)
		require.NoError(t, err)
		return stats.Variance(pp.Col(0))
	}
	assert.Less(t, spread(0.1), spread(10))
}

func TestNewDataMismatch(t *testing.T) {
	frame := generateLinearData(t, 30, 0, 1, 1, 6)
	fit, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)

	other, err := data.NewFrame(numCol("z", []float64{1, 2}))
	require.NoError(t, err)
	_, err = fit.PosteriorPredict(other)
	assert.ErrorIs(t, err, ErrNewDataMismatch)
	assert.ErrorIs(t, err, data.ErrMissingColumn)
}

func TestLogLikAndBayesR2(t *testing.T) {
	frame := generateLinearData(t, 80, -2, 2, 0.5, 7)
	fit, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)

	ll, err := fit.LogLik()
	require.NoError(t, err)
	assert.Equal(t, fit.NDraws(), ll.R)
	assert.Equal(t, 80, ll.C)
	for _, v := range ll.Data {
		require.False(t, math.IsNaN(v))
	}

	held, err := fit.LogLikNew(frame.Rows([]int{0, 1, 2}))
	require.NoError(t, err)
	assert.Equal(t, ll.Col(2), held.Col(2))

	r2, err := fit.BayesR2()
	require.NoError(t, err)
	// var(2x) = 4·4/3 ≈ 5.3 against σ² = 0.25
	assert.InDelta(t, 0.955, stats.Median(r2), 0.03)

	point, err := fit.PointPredict()
	require.NoError(t, err)
	y, _ := frame.Numeric("y")
	assert.InDelta(t, stats.Median(r2), R2(y, point), 0.03)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	frame := generateLinearData(t, 30, 0, 1, 1, 8)
	fit, err := quickModel(prior.Default(), WithIter(400), WithWarmup(100)).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fits", "m.fit")
	require.NoError(t, SaveFit(path, fit))
	got, err := LoadFit(path)
	require.NoError(t, err)

	assert.Equal(t, fit.ID, got.ID)
	assert.Equal(t, fit.Params, got.Params)
	assert.Equal(t, fit.Draws.Data, got.Draws.Data)
	assert.Equal(t, fit.Design.Columns, got.Design.Columns)

	nd := newX(t, 0.5)
	a, err := fit.PosteriorPredict(nd)
	require.NoError(t, err)
	b, err := got.PosteriorPredict(nd)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestNoInterceptModel(t *testing.T) {
	frame := generateLinearData(t, 40, 1, 3, 0.3, 9)
	fit, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ x - 1", frame)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", SigmaName}, fit.Params)
	b, _ := fit.Param("x")
	// slope through the origin absorbs the intercept of 1
	assert.Greater(t, stats.Mean(b), 2.0)
}

func TestNoInterceptFactorRecoversGroupMeans(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 13))
	means := map[string]float64{"a": 10, "b": 20, "c": 30}
	var g []string
	var y []float64
	for _, lvl := range []string{"a", "b", "c"} {
		for i := 0; i < 30; i++ {
			g = append(g, lvl)
			y = append(y, means[lvl]+rng.NormFloat64())
		}
	}
	frame, err := data.NewFrame(
		numCol("y", y),
		data.Column{Name: "g", Kind: data.Categorical, Str: g, Missing: make([]bool, len(g))},
	)
	require.NoError(t, err)

	fit, err := quickModel(prior.Default()).Fit(context.Background(), "y ~ 0 + g", frame)
	require.NoError(t, err)
	assert.Equal(t, []string{"ga", "gb", "gc", SigmaName}, fit.Params)
	for lvl, mu := range means {
		b, err := fit.Param("g" + lvl)
		require.NoError(t, err)
		assert.InDelta(t, mu, stats.Mean(b), 0.6, lvl)
	}

	nd, err := data.NewFrame(data.Column{Name: "g", Kind: data.Categorical, Str: []string{"a"}, Missing: []bool{false}})
	require.NoError(t, err)
	pp, err := fit.PosteriorPredict(nd)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, stats.Mean(pp.Col(0)), 0.6)
}

func TestPointMetrics(t *testing.T) {
	yt := []float64{1, 2, 3, 4}
	yp := []float64{1, 2, 3, 6}
	assert.InDelta(t, 1.0, MSE(yt, yp), 1e-12)
	assert.InDelta(t, 0.5, MAE(yt, yp), 1e-12)
	assert.InDelta(t, 1.0, RMSE(yt, yp), 1e-12)
	assert.InDelta(t, 0.2, R2(yt, yp), 1e-12)
}

func TestThinnedFit(t *testing.T) {
	frame := generateLinearData(t, 30, -1, 1, 0.5, 10)
	fit, err := quickModel(prior.Default(), WithThin(5)).Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)
	assert.Equal(t, 200, fit.NDraws())
	assert.Len(t, fit.ParamChains(0), 2)
	assert.Len(t, fit.ParamChains(0)[0], 100)
}
