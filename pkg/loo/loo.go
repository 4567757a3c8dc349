// Package loo estimates expected log predictive density (elpd) from
// pointwise log-likelihood matrices: Pareto-smoothed importance sampling
// leave-one-out (PSIS-LOO), WAIC and K-fold cross-validation, plus model
// comparison on the pointwise values.
package loo

import (
	"errors"
	"fmt"
	"math"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/mcmc"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

// ErrShape is returned for log-likelihood matrices that cannot be used.
var ErrShape = errors.New("loo: bad log-likelihood shape")

const (
	MethodLOO   = "loo"
	MethodWAIC  = "waic"
	MethodKFold = "kfold"
)

// Estimate is an elpd estimate with its standard error. IC is the
// information criterion on the deviance scale (-2·elpd).
type Estimate struct {
	Name   string
	Method string
	NObs   int
	NDraws int

	Elpd   float64
	ElpdSE float64
	P      float64
	PSE    float64
	IC     float64
	ICSE   float64

	// Pointwise holds elpd_i per observation.
	Pointwise []float64
	// ParetoK holds k̂ per observation (LOO only).
	ParetoK    []float64
	KThreshold float64
}

// BadK returns the observations whose k̂ exceeds the threshold.
func (e *Estimate) BadK() []int {
	var out []int
	for i, k := range e.ParetoK {
		if k > e.KThreshold {
			out = append(out, i)
		}
	}
	return out
}

func (e *Estimate) String() string {
	return fmt.Sprintf("%s elpd_%s = %.1f (SE %.1f), p = %.1f", e.Name, e.Method, e.Elpd, e.ElpdSE, e.P)
}

func checkShape(ll *core.Matrix) error {
	if ll == nil || ll.R < 2 || ll.C < 1 {
		return fmt.Errorf("%w: need at least 2 draws and 1 observation", ErrShape)
	}
	for _, v := range ll.Data {
		if math.IsNaN(v) || math.IsInf(v, 1) {
			return fmt.Errorf("%w: non-finite log likelihood", ErrShape)
		}
	}
	return nil
}

// RelativeEff returns ESS(exp(ll_i)) / S per observation. Draws must be
// stacked chain by chain; with chains < 2 every efficiency is 1.
func RelativeEff(ll *core.Matrix, chains int) ([]float64, error) {
	r := make([]float64, ll.C)
	if chains < 2 {
		for i := range r {
			r[i] = 1
		}
		return r, nil
	}
	if ll.R%chains != 0 {
		return nil, fmt.Errorf("%w: %d draws do not split into %d chains", ErrShape, ll.R, chains)
	}
	per := ll.R / chains
	for i := range r {
		col := ll.Col(i)
		split := make([][]float64, chains)
		for c := range split {
			split[c] = make([]float64, per)
			for s := range split[c] {
				split[c][s] = math.Exp(col[c*per+s])
			}
		}
		ess := mcmc.ESS(split)
		if math.IsNaN(ess) || ess <= 0 {
			r[i] = 1
			continue
		}
		r[i] = ess / float64(ll.R)
	}
	return r, nil
}

// LOO computes PSIS-LOO from a draws × observations log-likelihood matrix.
func LOO(name string, ll *core.Matrix, chains int) (*Estimate, error) {
	if err := checkShape(ll); err != nil {
		return nil, err
	}
	rEff, err := RelativeEff(ll, chains)
	if err != nil {
		return nil, err
	}
	n, S := ll.C, ll.R
	est := &Estimate{
		Name: name, Method: MethodLOO, NObs: n, NDraws: S,
		Pointwise:  make([]float64, n),
		ParetoK:    make([]float64, n),
		KThreshold: KThreshold(S),
	}
	pw := make([]float64, n)
	tmp := make([]float64, S)
	for i := 0; i < n; i++ {
		col := ll.Col(i)
		ratios := make([]float64, S)
		for s, v := range col {
			ratios[s] = -v
		}
		lw, k := PSIS(ratios, rEff[i])
		for s := range tmp {
			tmp[s] = lw[s] + col[s]
		}
		est.Pointwise[i] = stats.LogSumExp(tmp)
		est.ParetoK[i] = k
		pw[i] = stats.LogMeanExp(col) - est.Pointwise[i]
	}
	est.finish(pw)
	return est, nil
}

// WAIC computes the widely applicable information criterion.
func WAIC(name string, ll *core.Matrix) (*Estimate, error) {
	if err := checkShape(ll); err != nil {
		return nil, err
	}
	n := ll.C
	est := &Estimate{Name: name, Method: MethodWAIC, NObs: n, NDraws: ll.R, Pointwise: make([]float64, n)}
	pw := make([]float64, n)
	for i := 0; i < n; i++ {
		col := ll.Col(i)
		pw[i] = stats.Variance(col)
		est.Pointwise[i] = stats.LogMeanExp(col) - pw[i]
	}
	est.finish(pw)
	return est, nil
}

// finish fills the totals and standard errors from the pointwise elpd and
// effective-parameter contributions.
func (e *Estimate) finish(p []float64) {
	n := float64(e.NObs)
	e.Elpd = stats.Sum(e.Pointwise)
	e.ElpdSE = math.Sqrt(n * stats.Variance(e.Pointwise))
	e.IC = -2 * e.Elpd
	e.ICSE = 2 * e.ElpdSE
	if p == nil {
		e.P, e.PSE = math.NaN(), math.NaN()
		return
	}
	e.P = stats.Sum(p)
	e.PSE = math.Sqrt(n * stats.Variance(p))
}
