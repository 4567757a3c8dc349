package formula

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/dataprep"
)

// Design maps a formula onto data. It remembers the factor levels seen when
// it was built so new data is encoded with the same columns.
type Design struct {
	Formula *Formula
	// Columns are the coefficient names, excluding the intercept.
	Columns []string
	// Levels holds the factor levels of every variable coded categorically.
	Levels map[string][]string
}

// NewDesign learns the encoding of f from frame.
func NewDesign(f *Formula, frame *data.Frame) (*Design, error) {
	d := &Design{Formula: f, Levels: map[string][]string{}}
	for _, t := range f.Terms {
		for _, fac := range t.Factors {
			col, err := frame.Column(fac.Var)
			if err != nil {
				return nil, err
			}
			categorical := fac.Kind == AsFactor || (fac.Kind == Plain && col.Kind == data.Categorical)
			if fac.Kind == PowerOf && col.Kind != data.Numeric {
				return nil, fmt.Errorf("formula: %s needs a numeric column", fac.Label())
			}
			if !categorical {
				continue
			}
			if _, seen := d.Levels[fac.Var]; seen {
				continue
			}
			cells := make([]string, 0, col.Len())
			for i := 0; i < col.Len(); i++ {
				if !col.Missing[i] {
					cells = append(cells, col.Text(i))
				}
			}
			levels := dataprep.Levels(cells)
			if len(levels) < 2 {
				return nil, fmt.Errorf("formula: %s has fewer than two levels", fac.Label())
			}
			d.Levels[fac.Var] = levels
		}
	}
	cols, _, err := d.encode(frame)
	if err != nil {
		return nil, err
	}
	d.Columns = cols
	return d, nil
}

// Matrix encodes the predictors of frame as an n × len(Columns) matrix
// (no intercept column). Missing predictor values are an error.
func (d *Design) Matrix(frame *data.Frame) (*core.Matrix, error) {
	names, cols, err := d.encode(frame)
	if err != nil {
		return nil, err
	}
	if len(names) != len(d.Columns) {
		return nil, fmt.Errorf("formula: encoded %d columns, design has %d", len(names), len(d.Columns))
	}
	n := frame.NRows()
	m := core.NewMatrix(n, len(cols))
	for j, c := range cols {
		for i := 0; i < n; i++ {
			m.Set(i, j, c[i])
		}
	}
	return m, nil
}

// Response returns the response column of frame.
func (d *Design) Response(frame *data.Frame) ([]float64, error) {
	col, err := frame.Column(d.Formula.Response)
	if err != nil {
		return nil, err
	}
	if col.Kind != data.Numeric {
		return nil, fmt.Errorf("formula: response %q must be numeric", col.Name)
	}
	for i, miss := range col.Missing {
		if miss {
			return nil, fmt.Errorf("formula: response %q missing at row %d", col.Name, i+1)
		}
	}
	return frame.Numeric(col.Name)
}

type feature struct {
	name string
	vals []float64
}

func (d *Design) encode(frame *data.Frame) ([]string, [][]float64, error) {
	var names []string
	var cols [][]float64
	// without an intercept the first factor main effect keeps every level
	fullRank := !d.Formula.Intercept
	for _, t := range d.Formula.Terms {
		full := false
		if fullRank && len(t.Factors) == 1 {
			if _, ok := d.Levels[t.Factors[0].Var]; ok {
				full, fullRank = true, false
			}
		}
		acc := []feature{{name: "", vals: nil}}
		for _, fac := range t.Factors {
			fs, err := d.factorColumns(fac, frame, full)
			if err != nil {
				return nil, nil, err
			}
			var next []feature
			for _, a := range acc {
				for _, b := range fs {
					nf := feature{name: b.name, vals: b.vals}
					if a.vals != nil {
						nf = feature{name: a.name + ":" + b.name, vals: dataprep.Interact(a.vals, b.vals)}
					}
					next = append(next, nf)
				}
			}
			acc = next
		}
		for _, f := range acc {
			names = append(names, f.name)
			cols = append(cols, f.vals)
		}
	}
	return names, cols, nil
}

func (d *Design) factorColumns(fac Factor, frame *data.Frame, full bool) ([]feature, error) {
	col, err := frame.Column(fac.Var)
	if err != nil {
		return nil, err
	}
	for i, miss := range col.Missing {
		if miss {
			return nil, fmt.Errorf("formula: %s missing at row %d", fac.Var, i+1)
		}
	}

	if levels, ok := d.Levels[fac.Var]; ok {
		cells := make([]string, col.Len())
		for i := range cells {
			cells[i] = col.Text(i)
		}
		code, first := dataprep.DummyCode, 1
		if full {
			code, first = dataprep.OneHot, 0
		}
		dummies, err := code(cells, levels)
		if err != nil {
			return nil, fmt.Errorf("formula: %s: %w", fac.Var, err)
		}
		prefix := fac.Label()
		if fac.Kind == Plain {
			prefix = fac.Var
		}
		out := make([]feature, len(dummies))
		for k, v := range dummies {
			out[k] = feature{name: prefix + levels[k+first], vals: v}
		}
		return out, nil
	}

	if col.Kind != data.Numeric {
		return nil, fmt.Errorf("formula: %s was numeric when the model was built, got %s", fac.Var, col.Kind)
	}
	vals, err := frame.Numeric(fac.Var)
	if err != nil {
		return nil, err
	}
	if fac.Kind == PowerOf {
		vals = dataprep.Power(vals, fac.Power)
	}
	return []feature{{name: fac.Label(), vals: vals}}, nil
}
