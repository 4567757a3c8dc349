package data

import (
	"errors"
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/dataprep"
)

// ErrMissingColumn is returned when a requested column is not in the frame.
var ErrMissingColumn = errors.New("data: missing column")

// Kind is the storage type of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is a named vector. Numeric columns fill Num, categorical columns
// fill Str. Missing marks cells that were empty or NA in the source.
type Column struct {
	Name    string
	Kind    Kind
	Num     []float64
	Str     []string
	Missing []bool
}

// Len returns the number of cells in the column.
func (c *Column) Len() int { return len(c.Missing) }

// Text returns cell i as it would appear in a categorical column.
func (c *Column) Text(i int) string {
	if c.Kind == Categorical {
		return c.Str[i]
	}
	return dataprep.FormatLevel(c.Num[i])
}

// Frame is an immutable table of equally long named columns.
type Frame struct {
	cols  []Column
	index map[string]int
	nrows int
}

// NewFrame builds a frame from columns. All columns must have equal length.
func NewFrame(cols ...Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("data: duplicate column %q", c.Name)
		}
		if i == 0 {
			f.nrows = c.Len()
		} else if c.Len() != f.nrows {
			return nil, fmt.Errorf("data: column %q has %d rows, want %d", c.Name, c.Len(), f.nrows)
		}
		f.index[c.Name] = i
	}
	f.cols = cols
	return f, nil
}

// NRows returns the number of observations.
func (f *Frame) NRows() int { return f.nrows }

// Names returns the column names in file order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the named column. The returned value shares storage with
// the frame and must not be modified.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return &f.cols[i], nil
}

// Numeric returns a copy of a numeric column's values.
func (f *Frame) Numeric(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("data: column %q is %s, not numeric", name, c.Kind)
	}
	out := make([]float64, len(c.Num))
	copy(out, c.Num)
	return out, nil
}

// Rows returns a new frame holding the given rows in the given order.
func (f *Frame) Rows(idx []int) *Frame {
	cols := make([]Column, len(f.cols))
	for j, c := range f.cols {
		nc := Column{Name: c.Name, Kind: c.Kind, Missing: make([]bool, len(idx))}
		if c.Kind == Numeric {
			nc.Num = make([]float64, len(idx))
		} else {
			nc.Str = make([]string, len(idx))
		}
		for k, i := range idx {
			nc.Missing[k] = c.Missing[i]
			if c.Kind == Numeric {
				nc.Num[k] = c.Num[i]
			} else {
				nc.Str[k] = c.Str[i]
			}
		}
		cols[j] = nc
	}
	out, _ := NewFrame(cols...)
	return out
}

// DropIncomplete returns the rows with no missing value in any of the named
// columns, and the number of rows dropped.
func (f *Frame) DropIncomplete(names []string) (*Frame, int, error) {
	missing := make([][]bool, 0, len(names))
	for _, n := range names {
		c, err := f.Column(n)
		if err != nil {
			return nil, 0, err
		}
		missing = append(missing, c.Missing)
	}
	keep := dataprep.CompleteRows(missing, f.nrows)
	if len(keep) == f.nrows {
		return f, 0, nil
	}
	return f.Rows(keep), f.nrows - len(keep), nil
}
