package prior

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

// Set holds the priors of one model. Coefficients applies to every
// coefficient unless Terms has an entry for its name.
type Set struct {
	Coefficients Spec            `yaml:"coefficients"`
	Terms        map[string]Spec `yaml:"terms,omitempty" validate:"dive"`
	Intercept    Spec            `yaml:"intercept"`
	Aux          Spec            `yaml:"aux"`
}

// Default returns weakly informative defaults: normal(0, 2.5) on the
// coefficients and the intercept and exponential(1) on sigma, all autoscaled.
func Default() Set {
	return Set{
		Coefficients: NewNormal(0, 2.5),
		Intercept:    NewNormal(0, 2.5),
		Aux:          NewExponential(1),
	}
}

// Validate checks every spec in the set.
func (s Set) Validate() error {
	check := func(what string, sp Spec) error {
		if err := sp.Validate(); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	}
	if err := check("coefficients", s.Coefficients); err != nil {
		return err
	}
	if !s.Coefficients.IsLocationScale() {
		return fmt.Errorf("coefficients: %w: %s is for positive parameters", ErrInvalidPrior, s.Coefficients.Family)
	}
	for name, sp := range s.Terms {
		if err := check("term "+name, sp); err != nil {
			return err
		}
		if !sp.IsLocationScale() {
			return fmt.Errorf("term %s: %w: %s is for positive parameters", name, ErrInvalidPrior, sp.Family)
		}
	}
	if err := check("intercept", s.Intercept); err != nil {
		return err
	}
	if !s.Intercept.IsLocationScale() {
		return fmt.Errorf("intercept: %w: %s is for positive parameters", ErrInvalidPrior, s.Intercept.Family)
	}
	if err := check("aux", s.Aux); err != nil {
		return err
	}
	if !s.Aux.IsPositive() {
		return fmt.Errorf("aux: %w: %s is not a prior for a positive parameter", ErrInvalidPrior, s.Aux.Family)
	}
	return nil
}

// Resolved holds the priors with autoscaling applied. Coef is aligned with
// the design columns. The intercept prior is on the intercept of the
// centered predictors.
type Resolved struct {
	Coef      []Spec
	Intercept Spec
	Aux       Spec
}

// Proper reports whether every prior in r is proper.
func (r Resolved) Proper(intercept bool) bool {
	for _, c := range r.Coef {
		if !c.Proper() {
			return false
		}
	}
	if intercept && !r.Intercept.Proper() {
		return false
	}
	return r.Aux.Proper()
}

// Resolve applies autoscaling. With sy the sample sd of y:
//   - coefficient k: scale *= sy / sd(x_k) (unchanged when sd(x_k) is 0)
//   - intercept: location is taken relative to mean(y), scale *= sy
//   - exponential aux: rate /= sy; half families: scale *= sy
//
// Specs without Autoscale are used as given.
func (s Set) Resolve(X *core.Matrix, columns []string, y []float64) (Resolved, error) {
	if err := s.Validate(); err != nil {
		return Resolved{}, err
	}
	if X.C != len(columns) {
		return Resolved{}, fmt.Errorf("prior: %d columns but %d names", X.C, len(columns))
	}
	for name := range s.Terms {
		found := false
		for _, c := range columns {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			return Resolved{}, fmt.Errorf("%w: no coefficient named %q", ErrInvalidPrior, name)
		}
	}

	sy := stats.Std(y)
	if sy == 0 {
		sy = 1
	}
	r := Resolved{Coef: make([]Spec, X.C)}
	for j, name := range columns {
		sp, ok := s.Terms[name]
		if !ok {
			sp = s.Coefficients
		}
		if sp.Autoscale {
			if sx := stats.Std(X.Col(j)); sx > 0 {
				sp.Scale *= sy / sx
			}
		}
		r.Coef[j] = sp.Fixed()
	}

	ic := s.Intercept
	if ic.Autoscale {
		ic.Location += stats.Mean(y)
		ic.Scale *= sy
	}
	r.Intercept = ic.Fixed()

	aux := s.Aux
	if aux.Autoscale {
		switch aux.Family {
		case Exponential:
			aux.Rate /= sy
		case HalfNormal, HalfStudentT, HalfCauchy:
			aux.Scale *= sy
		}
	}
	r.Aux = aux.Fixed()
	return r, nil
}
