package pipeline

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
)

// Schema describes the predictor columns a model was fitted on.
type Schema struct {
	FeatureNames []string
	Kinds        []data.Kind
}

// SchemaOf records the kinds of the named columns of frame.
func SchemaOf(frame *data.Frame, names []string) (Schema, error) {
	s := Schema{FeatureNames: names, Kinds: make([]data.Kind, len(names))}
	for i, n := range names {
		c, err := frame.Column(n)
		if err != nil {
			return Schema{}, err
		}
		s.Kinds[i] = c.Kind
	}
	return s, nil
}

// Check reports the first column of newdata that is absent or stored with
// a different kind than in training.
func (s Schema) Check(newdata *data.Frame) error {
	for i, n := range s.FeatureNames {
		c, err := newdata.Column(n)
		if err != nil {
			return fmt.Errorf("%w: %w", model.ErrNewDataMismatch, err)
		}
		if c.Kind != s.Kinds[i] {
			return fmt.Errorf("%w: column %q is %s, was %s when fitting", model.ErrNewDataMismatch, n, c.Kind, s.Kinds[i])
		}
	}
	return nil
}

// RowLabels names each row of newdata by its values in the schema columns,
// e.g. "mom_hs=1 mom_iq=100".
func (s Schema) RowLabels(newdata *data.Frame) []string {
	out := make([]string, newdata.NRows())
	for i := range out {
		for j, n := range s.FeatureNames {
			c, err := newdata.Column(n)
			if err != nil {
				continue
			}
			if j > 0 {
				out[i] += " "
			}
			cell := "NA"
			if !c.Missing[i] {
				cell = c.Text(i)
			}
			out[i] += n + "=" + cell
		}
	}
	return out
}
