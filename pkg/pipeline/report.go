package pipeline

import (
	"fmt"
	"strings"

	"github.com/BayesianBoi/methods-2-course/pkg/loo"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"
)

// Report is the result of a run.
type Report struct {
	NObs            int
	Prob            float64
	Models          []*ModelReport
	Comparison      *loo.Comparison
	WAICComparison  *loo.Comparison
	KFoldComparison *loo.Comparison
}

// Model returns the report of the named model, or nil.
func (r *Report) Model(name string) *ModelReport {
	for _, m := range r.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Render lays the report out as console text.
func (r *Report) Render() string {
	var b strings.Builder
	for _, m := range r.Models {
		fmt.Fprintf(&b, "== %s: %s ==\n\n", m.Name, m.Formula)
		for _, t := range []*summary.Table{m.PriorParams, m.PosteriorParams, m.PriorPredictive, m.PosteriorPredictive} {
			if t == nil {
				continue
			}
			b.WriteString(t.Render())
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Bayes R2: median %.3f, %.0f%% interval [%.3f, %.3f]\n", m.R2.Median, r.Prob*100, m.R2.Lo, m.R2.Hi)
		fmt.Fprintf(&b, "In-sample RMSE: %.2f\n\n", m.RMSE)
		for _, e := range []*loo.Estimate{m.LOO, m.WAIC, m.KFold} {
			if e != nil {
				b.WriteString(summary.RenderEstimate(e))
				b.WriteString("\n\n")
			}
		}
	}
	if r.Comparison != nil {
		b.WriteString("LOO comparison\n")
		b.WriteString(summary.RenderComparison(r.Comparison))
		b.WriteString("\n")
	}
	if r.WAICComparison != nil {
		b.WriteString("WAIC comparison\n")
		b.WriteString(summary.RenderComparison(r.WAICComparison))
		b.WriteString("\n")
	}
	if r.KFoldComparison != nil {
		b.WriteString("K-fold comparison\n")
		b.WriteString(summary.RenderComparison(r.KFoldComparison))
		b.WriteString("\n")
	}
	return b.String()
}
