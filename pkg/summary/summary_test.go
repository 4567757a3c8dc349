package summary

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/loo"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handFit() *model.FittedModel {
	rng := rand.New(rand.NewPCG(1, 1))
	draws := core.NewMatrix(4000, 2)
	for s := 0; s < draws.R; s++ {
		draws.Set(s, 0, 5+2*rng.NormFloat64())
		draws.Set(s, 1, 1+0.1*rng.Float64())
	}
	return &model.FittedModel{
		Formula: "y ~ 1",
		Params:  []string{model.InterceptName, model.SigmaName},
		Draws:   draws,
		Chains:  1,
		Rhat:    []float64{1.001, 1.25},
		ESS:     []float64{3900, 120},
	}
}

func TestDescribe(t *testing.T) {
	r := Describe("x", []float64{1, 2, 3, 4, 5}, 0.5)
	assert.Equal(t, "x", r.Name)
	assert.InDelta(t, 3.0, r.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), r.SD, 1e-12)
	assert.InDelta(t, 3.0, r.Median, 1e-12)
	assert.InDelta(t, 1.4826, r.MADSD, 1e-4)
	assert.InDelta(t, 2.0, r.Lo, 1e-12)
	assert.InDelta(t, 4.0, r.Hi, 1e-12)
	assert.True(t, math.IsNaN(r.Rhat))
}

func TestParamsTable(t *testing.T) {
	fit := handFit()
	tab, err := Params(fit, DefaultProb)
	require.NoError(t, err)
	assert.Equal(t, "posterior: y ~ 1", tab.Title)
	require.Len(t, tab.Rows, 2)

	a, ok := tab.Row(model.InterceptName)
	require.True(t, ok)
	assert.InDelta(t, 5.0, a.Mean, 0.1)
	assert.InDelta(t, 2.0, a.SD, 0.1)
	assert.InDelta(t, 5-1.645*2, a.Lo, 0.2)
	assert.InDelta(t, 5+1.645*2, a.Hi, 0.2)
	assert.Equal(t, 1.001, a.Rhat)

	_, ok = tab.Row("nope")
	assert.False(t, ok)

	_, err = Params(fit, 1.5)
	assert.Error(t, err)

	out := tab.Render()
	assert.Contains(t, out, "(Intercept)")
	assert.Contains(t, out, "mad_sd")
	assert.Contains(t, out, "5%")
	assert.Contains(t, out, "95%")
	assert.Contains(t, out, "1.250")
}

func TestPosteriorInterval(t *testing.T) {
	iv, err := PosteriorInterval(handFit(), 0.5)
	require.NoError(t, err)
	require.Len(t, iv, 2)
	assert.Equal(t, model.SigmaName, iv[1].Name)
	assert.InDelta(t, 1.025, iv[1].Lo, 0.01)
	assert.InDelta(t, 1.075, iv[1].Hi, 0.01)
}

func TestPredictiveTable(t *testing.T) {
	m := core.FromSlice([][]float64{{1, 10}, {2, 20}, {3, 30}})
	tab, err := Predictive("pp", m, nil, 0.9)
	require.NoError(t, err)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "2", tab.Rows[1].Name)
	assert.InDelta(t, 20.0, tab.Rows[1].Mean, 1e-12)

	_, err = Predictive("pp", m, []string{"a"}, 0.9)
	assert.Error(t, err)
}

func TestBayesR2Row(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	n := 60
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64() * 4
		y[i] = 2*x[i] + rng.NormFloat64()
	}
	frame, err := data.NewFrame(
		data.Column{Name: "y", Num: y, Missing: make([]bool, n)},
		data.Column{Name: "x", Num: x, Missing: make([]bool, n)},
	)
	require.NoError(t, err)
	fit, err := model.NewBayesLinearRegression(prior.Default(),
		model.WithChains(2), model.WithIter(500), model.WithWarmup(200)).
		Fit(context.Background(), "y ~ x", frame)
	require.NoError(t, err)

	r, err := BayesR2(fit, DefaultProb)
	require.NoError(t, err)
	assert.Equal(t, "bayes_R2", r.Name)
	assert.Greater(t, r.Mean, 0.7)
	assert.Less(t, r.Hi, 1.0)
}

func TestRenderLOO(t *testing.T) {
	a := &loo.Estimate{Name: "m1", Method: loo.MethodLOO, NObs: 3, NDraws: 10, Elpd: -10, ElpdSE: 1, P: 2, IC: 20, ICSE: 2,
		Pointwise: []float64{-3, -3, -4}, ParetoK: []float64{0.1, 0.2, 0.9}, KThreshold: 0.7}
	b := &loo.Estimate{Name: "m2", Method: loo.MethodLOO, NObs: 3, NDraws: 10, Elpd: -12, Pointwise: []float64{-4, -4, -4}}

	out := RenderEstimate(a)
	assert.Contains(t, out, "elpd_loo")
	assert.Contains(t, out, "looic")
	assert.Contains(t, out, "1 of 3 Pareto k")

	cmp, err := loo.Compare(a, b)
	require.NoError(t, err)
	out = RenderComparison(cmp)
	assert.Contains(t, out, "elpd_diff")
	assert.Contains(t, out, "m2")
	assert.Contains(t, out, "-2.0")
}
