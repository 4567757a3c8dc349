package model

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Family is the response distribution and link function of a model.
type Family interface {
	Name() string
	// Mean maps a linear predictor to the expected response.
	Mean(eta float64) float64
	// Rand draws a response given its mean and the auxiliary parameter.
	Rand(mu, aux float64, rng *rand.Rand) float64
	// LogLik returns log p(y | mu, aux).
	LogLik(y, mu, aux float64) float64
}

// Gaussian is the normal family with identity link; aux is the residual sd.
type Gaussian struct{}

func (Gaussian) Name() string             { return "gaussian" }
func (Gaussian) Mean(eta float64) float64 { return eta }

func (Gaussian) Rand(mu, sigma float64, rng *rand.Rand) float64 {
	return mu + sigma*rng.NormFloat64()
}

func (Gaussian) LogLik(y, mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma}.LogProb(y)
}

func familyByName(name string) (Family, error) {
	switch name {
	case "", "gaussian":
		return Gaussian{}, nil
	}
	return nil, fmt.Errorf("model: unknown family %q", name)
}
