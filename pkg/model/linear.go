package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/formula"
	"github.com/BayesianBoi/methods-2-course/pkg/mcmc"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrImproperPrior is returned when prior-only sampling meets a flat prior.
var ErrImproperPrior = errors.New("model: prior-only sampling needs proper priors")

// RhatWarning is the split-Rhat above which a fit logs a convergence warning.
const RhatWarning = 1.1

// BayesLinearRegression fits y ~ N(Xβ, σ²) by MCMC under the given priors.
type BayesLinearRegression struct {
	Priors    prior.Set
	Sampler   mcmc.Options
	PriorOnly bool
	logger    *zap.Logger
}

// Option functional config
type Option func(*BayesLinearRegression)

func WithChains(n int) Option     { return func(m *BayesLinearRegression) { m.Sampler.Chains = n } }
func WithIter(n int) Option       { return func(m *BayesLinearRegression) { m.Sampler.Iter = n } }
func WithWarmup(n int) Option     { return func(m *BayesLinearRegression) { m.Sampler.Warmup = n } }
func WithThin(n int) Option       { return func(m *BayesLinearRegression) { m.Sampler.Thin = n } }
func WithSeed(s uint64) Option    { return func(m *BayesLinearRegression) { m.Sampler.Seed = s } }
func WithPriorOnly(b bool) Option { return func(m *BayesLinearRegression) { m.PriorOnly = b } }
func WithLogger(l *zap.Logger) Option {
	return func(m *BayesLinearRegression) { m.logger = l }
}
func WithSampler(o mcmc.Options) Option {
	return func(m *BayesLinearRegression) { m.Sampler = o }
}

// NewBayesLinearRegression returns a model with default sampler settings.
func NewBayesLinearRegression(priors prior.Set, opts ...Option) *BayesLinearRegression {
	m := &BayesLinearRegression{Priors: priors, Sampler: mcmc.DefaultOptions(), logger: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Fit parses the formula, encodes frame and samples the parameters. With
// PriorOnly the data only informs autoscaled prior hyperparameters.
func (m *BayesLinearRegression) Fit(ctx context.Context, formulaText string, frame *data.Frame) (*FittedModel, error) {
	f, err := formula.Parse(formulaText)
	if err != nil {
		return nil, err
	}
	frame, dropped, err := frame.DropIncomplete(f.Variables())
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		m.logger.Info("dropped incomplete rows", zap.String("formula", f.Text), zap.Int("rows", dropped))
	}
	design, err := formula.NewDesign(f, frame)
	if err != nil {
		return nil, err
	}
	X, err := design.Matrix(frame)
	if err != nil {
		return nil, err
	}
	y, err := design.Response(frame)
	if err != nil {
		return nil, err
	}
	if X.C == 0 && !f.Intercept {
		return nil, fmt.Errorf("model: %q has no coefficients", f.Text)
	}
	if len(y) < 2 {
		return nil, fmt.Errorf("model: need at least two complete rows, have %d", len(y))
	}

	resolved, err := m.Priors.Resolve(X, design.Columns, y)
	if err != nil {
		return nil, err
	}
	if m.PriorOnly && !resolved.Proper(f.Intercept) {
		return nil, ErrImproperPrior
	}

	lm, means := buildProblem(X, y, resolved, f.Intercept)

	m.logger.Info("sampling",
		zap.String("formula", f.Text),
		zap.Bool("prior_only", m.PriorOnly),
		zap.Int("n", len(y)),
		zap.Int("chains", m.Sampler.Chains),
		zap.Int("iter", m.Sampler.Iter))

	var samples *mcmc.Samples
	if m.PriorOnly {
		samples, err = mcmc.RunPrior(ctx, lm, m.Sampler, m.logger)
	} else {
		samples, err = mcmc.Run(ctx, lm, m.Sampler, m.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("model: sample %q: %w", f.Text, err)
	}

	fit := &FittedModel{
		ID:         uuid.New(),
		Formula:    f.Text,
		FamilyName: Gaussian{}.Name(),
		Design:     design,
		Priors:     resolved,
		PriorOnly:  m.PriorOnly,
		Params:     paramNames(design.Columns, f.Intercept),
		Chains:     m.Sampler.Chains,
		Seed:       m.Sampler.Seed,
		X:          X,
		Y:          y,
	}
	chains := make([]*core.Matrix, len(samples.Chains))
	for c, raw := range samples.Chains {
		chains[c] = uncenter(raw, means, f.Intercept)
	}
	fit.Draws, _ = core.VStack(chains...)
	fit.diagnose()

	for j, r := range fit.Rhat {
		if r > RhatWarning {
			m.logger.Warn("chains have not mixed",
				zap.String("formula", f.Text),
				zap.String("param", fit.Params[j]),
				zap.Float64("rhat", r))
		}
	}
	return fit, nil
}

// buildProblem centers the predictors when there is an intercept, so the
// intercept prior applies to the response at the predictor means.
func buildProblem(X *core.Matrix, y []float64, r prior.Resolved, intercept bool) (*mcmc.LinearModel, []float64) {
	var means []float64
	Xc := X
	if intercept {
		sc := stats.NewStandardScaler()
		Xc = sc.FitCenter(X)
		means = sc.Mean
	}
	k := Xc.C
	coef := r.Coef
	if intercept {
		k++
		coef = append([]prior.Spec{r.Intercept}, r.Coef...)
	}
	D := core.NewMatrix(Xc.R, k)
	for i := 0; i < Xc.R; i++ {
		off := 0
		if intercept {
			D.Set(i, 0, 1)
			off = 1
		}
		for j := 0; j < Xc.C; j++ {
			D.Set(i, j+off, Xc.At(i, j))
		}
	}
	return &mcmc.LinearModel{X: D.Dense(), Y: y, Coef: coef, Aux: r.Aux}, means
}

// uncenter maps the centered-intercept draws back to the original scale:
// α = α_c − Σ β_j·mean_j.
func uncenter(raw *core.Matrix, means []float64, intercept bool) *core.Matrix {
	out := raw.Clone()
	if !intercept {
		return out
	}
	for s := 0; s < out.R; s++ {
		a := out.At(s, 0)
		for j, mu := range means {
			a -= out.At(s, j+1) * mu
		}
		out.Set(s, 0, a)
	}
	return out
}

func paramNames(columns []string, intercept bool) []string {
	var out []string
	if intercept {
		out = append(out, InterceptName)
	}
	out = append(out, columns...)
	return append(out, SigmaName)
}

func (f *FittedModel) diagnose() {
	f.Rhat = make([]float64, len(f.Params))
	f.ESS = make([]float64, len(f.Params))
	for j := range f.Params {
		ch := f.ParamChains(j)
		f.Rhat[j] = mcmc.SplitRhat(ch)
		f.ESS[j] = mcmc.ESS(ch)
	}
}
