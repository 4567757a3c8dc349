// Package summary reduces draws to the usual posterior summaries: mean, sd,
// median, MAD_SD and a central interval, with convergence diagnostics when
// the draws come from a fit.
package summary

import (
	"fmt"
	"math"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

// DefaultProb is the default central interval probability.
const DefaultProb = 0.9

// Row summarizes one quantity. Rhat and ESS are NaN for quantities that
// are not sampled parameters.
type Row struct {
	Name   string
	Mean   float64
	SD     float64
	Median float64
	MADSD  float64
	Lo     float64
	Hi     float64
	Rhat   float64
	ESS    float64
}

// Table is a titled list of rows sharing one interval probability.
type Table struct {
	Title string
	Prob  float64
	Rows  []Row
}

// Row returns the row with the given name.
func (t *Table) Row(name string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return Row{}, false
}

func checkProb(prob float64) error {
	if !(prob > 0 && prob < 1) {
		return fmt.Errorf("summary: interval probability %v not in (0, 1)", prob)
	}
	return nil
}

// Describe summarizes one vector of draws.
func Describe(name string, x []float64, prob float64) Row {
	lo, hi := stats.CentralInterval(x, prob)
	return Row{
		Name:   name,
		Mean:   stats.Mean(x),
		SD:     stats.Std(x),
		Median: stats.Median(x),
		MADSD:  stats.MAD(x),
		Lo:     lo,
		Hi:     hi,
		Rhat:   math.NaN(),
		ESS:    math.NaN(),
	}
}

// Params summarizes every parameter of fit.
func Params(fit *model.FittedModel, prob float64) (*Table, error) {
	if err := checkProb(prob); err != nil {
		return nil, err
	}
	t := &Table{Title: fmt.Sprintf("%s: %s", fit.Kind(), fit.Formula), Prob: prob}
	for j, name := range fit.Params {
		r := Describe(name, fit.Draws.Col(j), prob)
		if j < len(fit.Rhat) {
			r.Rhat, r.ESS = fit.Rhat[j], fit.ESS[j]
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

// Predictive summarizes each column of a draws × rows predictive matrix.
// labels name the columns; nil labels default to "1", "2", ...
func Predictive(title string, m *core.Matrix, labels []string, prob float64) (*Table, error) {
	if err := checkProb(prob); err != nil {
		return nil, err
	}
	if labels != nil && len(labels) != m.C {
		return nil, fmt.Errorf("summary: %d labels for %d columns", len(labels), m.C)
	}
	t := &Table{Title: title, Prob: prob}
	for i := 0; i < m.C; i++ {
		name := fmt.Sprint(i + 1)
		if labels != nil {
			name = labels[i]
		}
		t.Rows = append(t.Rows, Describe(name, m.Col(i), prob))
	}
	return t, nil
}

// Interval is a central posterior interval for one parameter.
type Interval struct {
	Name   string
	Lo, Hi float64
}

// PosteriorInterval returns the central prob interval of every parameter.
func PosteriorInterval(fit *model.FittedModel, prob float64) ([]Interval, error) {
	if err := checkProb(prob); err != nil {
		return nil, err
	}
	out := make([]Interval, len(fit.Params))
	for j, name := range fit.Params {
		lo, hi := stats.CentralInterval(fit.Draws.Col(j), prob)
		out[j] = Interval{Name: name, Lo: lo, Hi: hi}
	}
	return out, nil
}

// BayesR2 summarizes the per-draw Bayesian R² of fit.
func BayesR2(fit *model.FittedModel, prob float64) (Row, error) {
	if err := checkProb(prob); err != nil {
		return Row{}, err
	}
	r2, err := fit.BayesR2()
	if err != nil {
		return Row{}, err
	}
	return Describe("bayes_R2", r2, prob), nil
}
