package model

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
)

// ErrNewDataMismatch is returned when new data cannot be encoded with the
// design the model was fitted on.
var ErrNewDataMismatch = errors.New("model: new data does not match the fitted design")

// predictStream separates the prediction RNG stream from the chain streams.
const predictStream = 0x5eed

type predictConfig struct {
	seed    uint64
	seedSet bool
	draws   int
}

// PredictOption configures predictive sampling.
type PredictOption func(*predictConfig)

// WithPredictSeed fixes the noise RNG seed. The default is the fit's seed.
func WithPredictSeed(seed uint64) PredictOption {
	return func(c *predictConfig) { c.seed, c.seedSet = seed, true }
}

// WithDraws uses only the first n draws of the fit.
func WithDraws(n int) PredictOption { return func(c *predictConfig) { c.draws = n } }

func (f *FittedModel) predictConfig(opts []PredictOption) predictConfig {
	c := predictConfig{seed: f.Seed}
	for _, o := range opts {
		o(&c)
	}
	if c.draws <= 0 || c.draws > f.NDraws() {
		c.draws = f.NDraws()
	}
	return c
}

// PosteriorLinpred returns the draws × rows matrix of expected responses
// (the linear predictor through the inverse link), without residual noise.
func (f *FittedModel) PosteriorLinpred(newdata *data.Frame, opts ...PredictOption) (*core.Matrix, error) {
	cfg := f.predictConfig(opts)
	return f.linpred(newdata, cfg.draws)
}

func (f *FittedModel) linpred(newdata *data.Frame, draws int) (*core.Matrix, error) {
	X, err := f.Design.Matrix(newdata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNewDataMismatch, err)
	}
	return f.linpredX(X, draws)
}

func (f *FittedModel) linpredX(X *core.Matrix, draws int) (*core.Matrix, error) {
	B, alpha := f.coefficients()
	B = B.Head(draws)
	eta, err := core.MatMul(B, X.Transpose())
	if err != nil {
		return nil, fmt.Errorf("model: linear predictor: %w", err)
	}
	fam := f.Family()
	for s := 0; s < eta.R; s++ {
		for i := 0; i < eta.C; i++ {
			eta.Set(s, i, fam.Mean(eta.At(s, i)+alpha[s]))
		}
	}
	return eta, nil
}

// PosteriorPredict simulates outcomes for every (draw, new-data row) pair:
// one row per draw, one column per new-data row. For a prior-only fit the
// result is the prior predictive distribution. The same fit, data and seed
// always give the same matrix.
func (f *FittedModel) PosteriorPredict(newdata *data.Frame, opts ...PredictOption) (*core.Matrix, error) {
	cfg := f.predictConfig(opts)
	mu, err := f.linpred(newdata, cfg.draws)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.seed, predictStream))
	sigma := f.Sigma()
	fam := f.Family()
	for s := 0; s < mu.R; s++ {
		for i := 0; i < mu.C; i++ {
			mu.Set(s, i, fam.Rand(mu.At(s, i), sigma[s], rng))
		}
	}
	return mu, nil
}
