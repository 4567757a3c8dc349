// Package mcmc draws from the posterior (or prior) of a Gaussian linear
// model y ~ N(X·β, σ²).
//
// The posterior sampler is Metropolis-within-Gibbs:
//
//	β | σ, λ   multivariate normal (exact, via Cholesky)
//	λ_k | β_k  inverse gamma, only for Student-t / Cauchy priors, which are
//	           written as normal scale mixtures
//	σ | β      univariate slice sampler on log σ
package mcmc

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNotPositiveDefinite is returned when the conditional precision of β
// cannot be factorized, typically a rank deficient design with flat priors.
var ErrNotPositiveDefinite = errors.New("mcmc: conditional precision is not positive definite")

// LinearModel is the sampling problem. Coef is aligned with the columns of
// X; an intercept, when wanted, is a column of ones in X.
type LinearModel struct {
	X    *mat.Dense
	Y    []float64
	Coef []prior.Spec
	Aux  prior.Spec
}

// Width returns the number of sampled quantities per draw: the
// coefficients followed by sigma.
func (lm *LinearModel) Width() int {
	_, k := lm.X.Dims()
	return k + 1
}

func (lm *LinearModel) check() error {
	n, k := lm.X.Dims()
	if n != len(lm.Y) {
		return fmt.Errorf("mcmc: X has %d rows, y has %d", n, len(lm.Y))
	}
	if k != len(lm.Coef) {
		return fmt.Errorf("mcmc: X has %d columns, %d coefficient priors", k, len(lm.Coef))
	}
	return nil
}

// kernel produces one draw per call into row.
type kernel interface {
	step(row []float64) error
}

// gibbs is the posterior kernel for one chain.
type gibbs struct {
	lm     *LinearModel
	rng    *rand.Rand
	n, k   int
	xtx    *mat.SymDense
	xty    *mat.VecDense
	beta   *mat.VecDense
	lambda []float64
	sigma  float64
}

func newGibbs(lm *LinearModel, rng *rand.Rand) *gibbs {
	n, k := lm.X.Dims()
	g := &gibbs{lm: lm, rng: rng, n: n, k: k}

	g.xtx = mat.NewSymDense(k, nil)
	g.xtx.SymOuterK(1, lm.X.T())
	g.xty = mat.NewVecDense(k, nil)
	g.xty.MulVec(lm.X.T(), mat.NewVecDense(n, lm.Y))

	g.beta = mat.NewVecDense(k, nil)
	g.lambda = make([]float64, k)
	for j := range g.lambda {
		g.lambda[j] = 1
	}
	sy := stats.Std(lm.Y)
	if sy <= 0 || math.IsNaN(sy) {
		sy = 1
	}
	g.sigma = sy * math.Exp(rng.Float64()-0.5)
	return g
}

func (g *gibbs) step(row []float64) error {
	if err := g.updateBeta(); err != nil {
		return err
	}
	g.updateLambda()
	g.updateSigma()
	for j := 0; j < g.k; j++ {
		row[j] = g.beta.AtVec(j)
	}
	row[g.k] = g.sigma
	return nil
}

func (g *gibbs) updateBeta() error {
	s2 := g.sigma * g.sigma
	P := mat.NewSymDense(g.k, nil)
	P.ScaleSym(1/s2, g.xtx)
	b := mat.NewVecDense(g.k, nil)
	b.ScaleVec(1/s2, g.xty)
	for j, sp := range g.lm.Coef {
		if !sp.Proper() {
			continue
		}
		w := 1 / (sp.Scale * sp.Scale * g.lambda[j])
		P.SetSym(j, j, P.At(j, j)+w)
		b.SetVec(j, b.AtVec(j)+w*sp.Location)
	}

	var ch mat.Cholesky
	if ok := ch.Factorize(P); !ok {
		return ErrNotPositiveDefinite
	}
	var mean mat.VecDense
	if err := ch.SolveVecTo(&mean, b); err != nil {
		return fmt.Errorf("mcmc: solve for conditional mean: %w", err)
	}

	z := mat.NewVecDense(g.k, nil)
	for j := 0; j < g.k; j++ {
		z.SetVec(j, g.rng.NormFloat64())
	}
	var u mat.TriDense
	ch.UTo(&u)
	var dev mat.VecDense
	if err := dev.SolveVec(&u, z); err != nil {
		return fmt.Errorf("mcmc: draw coefficients: %w", err)
	}
	g.beta.AddVec(&mean, &dev)
	return nil
}

func (g *gibbs) updateLambda() {
	for j, sp := range g.lm.Coef {
		df := sp.MixtureDF()
		if df <= 0 {
			continue
		}
		d := (g.beta.AtVec(j) - sp.Location) / sp.Scale
		gam := distuv.Gamma{Alpha: (df + 1) / 2, Beta: (df + d*d) / 2, Src: g.rng}
		g.lambda[j] = 1 / gam.Rand()
	}
}

func (g *gibbs) rss() float64 {
	var fit mat.VecDense
	fit.MulVec(g.lm.X, g.beta)
	s := 0.0
	for i, y := range g.lm.Y {
		r := y - fit.AtVec(i)
		s += r * r
	}
	return s
}

func (g *gibbs) updateSigma() {
	rss := g.rss()
	n := float64(g.n)
	aux := g.lm.Aux
	logf := func(u float64) float64 {
		s := math.Exp(u)
		return -n*u - rss/(2*s*s) + aux.LogDensity(s) + u
	}
	g.sigma = math.Exp(sliceSample(math.Log(g.sigma), logf, 1, 50, g.rng))
}

// priorKernel draws independently from the priors, ignoring the data.
type priorKernel struct {
	lm  *LinearModel
	rng *rand.Rand
}

func (p *priorKernel) step(row []float64) error {
	for j, sp := range p.lm.Coef {
		row[j] = sp.Rand(p.rng)
	}
	row[len(p.lm.Coef)] = p.lm.Aux.Rand(p.rng)
	return nil
}
