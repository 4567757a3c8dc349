package model

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/formula"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/google/uuid"
)

const (
	InterceptName = "(Intercept)"
	SigmaName     = "sigma"
)

// FittedModel is an immutable collection of parameter draws together with
// the formula, design and priors that produced them. Draws has one row per
// draw (chains stacked in order) and one column per entry of Params.
type FittedModel struct {
	ID         uuid.UUID
	Formula    string
	FamilyName string
	Design     *formula.Design
	Priors     prior.Resolved
	PriorOnly  bool
	Params     []string
	Draws      *core.Matrix
	Chains     int
	Seed       uint64

	// X and Y are the training predictors (uncentered, no intercept
	// column) and response after listwise deletion.
	X *core.Matrix
	Y []float64

	Rhat []float64
	ESS  []float64
}

// NDraws returns the number of posterior (or prior) draws.
func (f *FittedModel) NDraws() int { return f.Draws.R }

// NObs returns the number of observations used to fit.
func (f *FittedModel) NObs() int { return len(f.Y) }

// HasIntercept reports whether the first parameter is the intercept.
func (f *FittedModel) HasIntercept() bool { return f.Design.Formula.Intercept }

// Family returns the response family.
func (f *FittedModel) Family() Family {
	fam, err := familyByName(f.FamilyName)
	if err != nil {
		return Gaussian{}
	}
	return fam
}

// Kind describes the draws as "prior" or "posterior".
func (f *FittedModel) Kind() string {
	if f.PriorOnly {
		return "prior"
	}
	return "posterior"
}

// Index returns the column of the named parameter.
func (f *FittedModel) Index(name string) (int, error) {
	for j, p := range f.Params {
		if p == name {
			return j, nil
		}
	}
	return -1, fmt.Errorf("model: no parameter %q", name)
}

// Param returns a copy of the draws of the named parameter.
func (f *FittedModel) Param(name string) ([]float64, error) {
	j, err := f.Index(name)
	if err != nil {
		return nil, err
	}
	return f.Draws.Col(j), nil
}

// Sigma returns the residual sd draws.
func (f *FittedModel) Sigma() []float64 { return f.Draws.Col(len(f.Params) - 1) }

// ParamChains returns the draws of column j split by chain.
func (f *FittedModel) ParamChains(j int) [][]float64 {
	per := f.Draws.R / f.Chains
	col := f.Draws.Col(j)
	out := make([][]float64, f.Chains)
	for c := range out {
		out[c] = col[c*per : (c+1)*per]
	}
	return out
}

// coefficients returns the draws × len(Design.Columns) slope matrix and
// the intercept draws (zeros without an intercept).
func (f *FittedModel) coefficients() (*core.Matrix, []float64) {
	off := 0
	if f.HasIntercept() {
		off = 1
	}
	p := len(f.Design.Columns)
	B := core.NewMatrix(f.Draws.R, p)
	alpha := make([]float64, f.Draws.R)
	for s := 0; s < f.Draws.R; s++ {
		if off == 1 {
			alpha[s] = f.Draws.At(s, 0)
		}
		for j := 0; j < p; j++ {
			B.Set(s, j, f.Draws.At(s, j+off))
		}
	}
	return B, alpha
}
