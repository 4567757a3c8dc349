package model

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
)

// LogLik returns the draws × observations matrix of pointwise log
// likelihoods of the training data.
func (f *FittedModel) LogLik() (*core.Matrix, error) {
	return f.logLik(f.X, f.Y)
}

// LogLikNew evaluates the pointwise log likelihood of held-out rows, which
// must include the response.
func (f *FittedModel) LogLikNew(frame *data.Frame) (*core.Matrix, error) {
	X, err := f.Design.Matrix(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNewDataMismatch, err)
	}
	y, err := f.Design.Response(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNewDataMismatch, err)
	}
	return f.logLik(X, y)
}

func (f *FittedModel) logLik(X *core.Matrix, y []float64) (*core.Matrix, error) {
	mu, err := f.linpredX(X, f.NDraws())
	if err != nil {
		return nil, err
	}
	sigma := f.Sigma()
	fam := f.Family()
	for s := 0; s < mu.R; s++ {
		for i := 0; i < mu.C; i++ {
			mu.Set(s, i, fam.LogLik(y[i], mu.At(s, i), sigma[s]))
		}
	}
	return mu, nil
}
