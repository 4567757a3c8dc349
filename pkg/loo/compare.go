package loo

import (
	"fmt"
	"math"
	"sort"

	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

// CompareRow is one model in a comparison, relative to the best model.
type CompareRow struct {
	Name     string
	ElpdDiff float64
	SEDiff   float64
	Estimate *Estimate
}

// Comparison ranks models by elpd, best first.
type Comparison struct {
	Rows []CompareRow
}

// Best returns the name of the top-ranked model.
func (c *Comparison) Best() string { return c.Rows[0].Name }

// Compare ranks estimates by elpd. The best model has elpd_diff 0 and
// se_diff 0; for the others se_diff is sqrt(n · var(elpd_i - best_i)).
// All estimates must cover the same observations.
func Compare(estimates ...*Estimate) (*Comparison, error) {
	if len(estimates) < 2 {
		return nil, fmt.Errorf("%w: need at least two models to compare", ErrShape)
	}
	n := estimates[0].NObs
	for _, e := range estimates[1:] {
		if e.NObs != n || len(e.Pointwise) != n {
			return nil, fmt.Errorf("%w: %s has %d observations, %s has %d",
				ErrShape, e.Name, e.NObs, estimates[0].Name, n)
		}
	}
	sorted := append([]*Estimate(nil), estimates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Elpd > sorted[j].Elpd })

	best := sorted[0]
	out := &Comparison{Rows: make([]CompareRow, len(sorted))}
	diff := make([]float64, n)
	for r, e := range sorted {
		row := CompareRow{Name: e.Name, Estimate: e}
		if r > 0 {
			for i := range diff {
				diff[i] = e.Pointwise[i] - best.Pointwise[i]
			}
			row.ElpdDiff = stats.Sum(diff)
			row.SEDiff = math.Sqrt(float64(n) * stats.Variance(diff))
		}
		out.Rows[r] = row
	}
	return out, nil
}
