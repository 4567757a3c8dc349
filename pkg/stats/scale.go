package stats

import "github.com/BayesianBoi/methods-2-course/pkg/core"

// StandardScaler records per-column means and sample standard deviations of
// a design matrix. Columns with zero spread get Std 0; Center never divides.
type StandardScaler struct {
	Mean []float64
	Std  []float64
	fit  bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

func (s *StandardScaler) Fit(X *core.Matrix) error {
	s.Mean = make([]float64, X.C)
	s.Std = make([]float64, X.C)
	for j := 0; j < X.C; j++ {
		col := X.Col(j)
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
	}
	s.fit = true
	return nil
}

// Center subtracts the fitted column means from a copy of X.
func (s *StandardScaler) Center(X *core.Matrix) *core.Matrix {
	out := X.Clone()
	if !s.fit {
		return out
	}
	for i := 0; i < out.R; i++ {
		for j := 0; j < out.C; j++ {
			out.Data[i*out.C+j] -= s.Mean[j]
		}
	}
	return out
}

func (s *StandardScaler) FitCenter(X *core.Matrix) *core.Matrix { _ = s.Fit(X); return s.Center(X) }
