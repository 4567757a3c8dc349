package model

import (
	"math"

	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

func MSE(yTrue, yPred []float64) float64 {
	n := float64(len(yTrue))
	s := 0.0
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		s += d * d
	}
	return s / n
}

func MAE(yTrue, yPred []float64) float64 {
	n := float64(len(yTrue))
	s := 0.0
	for i := range yTrue {
		s += math.Abs(yPred[i] - yTrue[i])
	}
	return s / n
}

func RMSE(yTrue, yPred []float64) float64 { return math.Sqrt(MSE(yTrue, yPred)) }

func R2(yTrue, yPred []float64) float64 {
	m := stats.Mean(yTrue)
	ssTot := 0.0
	ssRes := 0.0
	for i := range yTrue {
		d := yTrue[i] - m
		ssTot += d * d
		r := yTrue[i] - yPred[i]
		ssRes += r * r
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// PointPredict returns the mean over draws of the expected response for
// each training observation.
func (f *FittedModel) PointPredict() ([]float64, error) {
	mu, err := f.linpredX(f.X, f.NDraws())
	if err != nil {
		return nil, err
	}
	out := make([]float64, mu.C)
	for i := range out {
		out[i] = stats.Mean(mu.Col(i))
	}
	return out, nil
}

// BayesR2 returns one R² per draw: var(fit) / (var(fit) + σ²), using the
// variance of the expected responses over the training rows.
func (f *FittedModel) BayesR2() ([]float64, error) {
	mu, err := f.linpredX(f.X, f.NDraws())
	if err != nil {
		return nil, err
	}
	sigma := f.Sigma()
	out := make([]float64, mu.R)
	for s := range out {
		vf := stats.Variance(mu.Row(s))
		out[s] = vf / (vf + sigma[s]*sigma[s])
	}
	return out, nil
}
