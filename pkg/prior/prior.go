// Package prior describes prior distributions for the coefficients, the
// intercept and the residual standard deviation of a linear model, and
// resolves autoscaled hyperparameters against data.
package prior

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidPrior is wrapped by validation failures.
var ErrInvalidPrior = errors.New("prior: invalid specification")

// Family names a prior distribution.
type Family string

const (
	Normal       Family = "normal"
	StudentT     Family = "student_t"
	Cauchy       Family = "cauchy"
	Flat         Family = "flat"
	Exponential  Family = "exponential"
	HalfNormal   Family = "half_normal"
	HalfStudentT Family = "half_student_t"
	HalfCauchy   Family = "half_cauchy"
)

// Spec is one prior distribution. Location, Scale and DF apply to the
// location-scale families; Rate applies to Exponential. With Autoscale the
// hyperparameters are rescaled by the data before sampling.
type Spec struct {
	Family    Family  `yaml:"family" validate:"required,oneof=normal student_t cauchy flat exponential half_normal half_student_t half_cauchy"`
	Location  float64 `yaml:"location"`
	Scale     float64 `yaml:"scale" validate:"gte=0"`
	DF        float64 `yaml:"df,omitempty" validate:"gte=0"`
	Rate      float64 `yaml:"rate,omitempty" validate:"gte=0"`
	Autoscale bool    `yaml:"autoscale"`
}

func NewNormal(location, scale float64) Spec {
	return Spec{Family: Normal, Location: location, Scale: scale, Autoscale: true}
}

func NewStudentT(df, location, scale float64) Spec {
	return Spec{Family: StudentT, DF: df, Location: location, Scale: scale, Autoscale: true}
}

func NewCauchy(location, scale float64) Spec {
	return Spec{Family: Cauchy, Location: location, Scale: scale, Autoscale: true}
}

func NewFlat() Spec { return Spec{Family: Flat} }

func NewExponential(rate float64) Spec {
	return Spec{Family: Exponential, Rate: rate, Autoscale: true}
}

func NewHalfNormal(scale float64) Spec {
	return Spec{Family: HalfNormal, Scale: scale, Autoscale: true}
}

// Fixed returns a copy of s with autoscaling switched off.
func (s Spec) Fixed() Spec { s.Autoscale = false; return s }

// String renders the spec the way it is printed in summaries.
func (s Spec) String() string {
	switch s.Family {
	case Flat:
		return "flat"
	case Exponential:
		return fmt.Sprintf("exponential(rate = %.3g)", s.Rate)
	case StudentT:
		return fmt.Sprintf("student_t(df = %.3g, location = %.3g, scale = %.3g)", s.DF, s.Location, s.Scale)
	case HalfNormal, HalfCauchy:
		return fmt.Sprintf("%s(scale = %.3g)", s.Family, s.Scale)
	case HalfStudentT:
		return fmt.Sprintf("%s(df = %.3g, scale = %.3g)", s.Family, s.DF, s.Scale)
	}
	return fmt.Sprintf("%s(location = %.3g, scale = %.3g)", s.Family, s.Location, s.Scale)
}

// Proper reports whether the prior integrates to one.
func (s Spec) Proper() bool { return s.Family != Flat }

// IsLocationScale reports whether s is a prior for an unbounded parameter.
func (s Spec) IsLocationScale() bool {
	switch s.Family {
	case Normal, StudentT, Cauchy, Flat:
		return true
	}
	return false
}

// IsPositive reports whether s is a prior for a positive parameter.
func (s Spec) IsPositive() bool {
	switch s.Family {
	case Exponential, HalfNormal, HalfStudentT, HalfCauchy, Flat:
		return true
	}
	return false
}

// MixtureDF returns the degrees of freedom when s is a normal scale mixture
// (Student-t or Cauchy) and 0 otherwise.
func (s Spec) MixtureDF() float64 {
	switch s.Family {
	case StudentT:
		return s.DF
	case Cauchy:
		return 1
	}
	return 0
}

var validate = validator.New()

// Validate checks the struct tags and the family-specific rules.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrior, err)
	}
	switch s.Family {
	case Normal, Cauchy, HalfNormal, HalfCauchy:
		if s.Scale <= 0 {
			return fmt.Errorf("%w: %s needs scale > 0", ErrInvalidPrior, s.Family)
		}
	case StudentT, HalfStudentT:
		if s.Scale <= 0 || s.DF <= 0 {
			return fmt.Errorf("%w: %s needs scale > 0 and df > 0", ErrInvalidPrior, s.Family)
		}
	case Exponential:
		if s.Rate <= 0 {
			return fmt.Errorf("%w: exponential needs rate > 0", ErrInvalidPrior)
		}
	}
	return nil
}

// LogDensity returns the log prior density at x, up to a constant for Flat.
// Positive families return -Inf for x <= 0.
func (s Spec) LogDensity(x float64) float64 {
	if s.IsPositive() && x <= 0 {
		return math.Inf(-1)
	}
	switch s.Family {
	case Normal:
		return distuv.Normal{Mu: s.Location, Sigma: s.Scale}.LogProb(x)
	case StudentT:
		return distuv.StudentsT{Mu: s.Location, Sigma: s.Scale, Nu: s.DF}.LogProb(x)
	case Cauchy:
		return distuv.StudentsT{Mu: s.Location, Sigma: s.Scale, Nu: 1}.LogProb(x)
	case Exponential:
		return distuv.Exponential{Rate: s.Rate}.LogProb(x)
	case HalfNormal:
		return math.Ln2 + distuv.Normal{Mu: 0, Sigma: s.Scale}.LogProb(x)
	case HalfStudentT:
		return math.Ln2 + distuv.StudentsT{Mu: 0, Sigma: s.Scale, Nu: s.DF}.LogProb(x)
	case HalfCauchy:
		return math.Ln2 + distuv.StudentsT{Mu: 0, Sigma: s.Scale, Nu: 1}.LogProb(x)
	}
	return 0
}

// Rand draws one value from a proper prior.
func (s Spec) Rand(src rand.Source) float64 {
	switch s.Family {
	case Normal:
		return distuv.Normal{Mu: s.Location, Sigma: s.Scale, Src: src}.Rand()
	case StudentT:
		return distuv.StudentsT{Mu: s.Location, Sigma: s.Scale, Nu: s.DF, Src: src}.Rand()
	case Cauchy:
		return distuv.StudentsT{Mu: s.Location, Sigma: s.Scale, Nu: 1, Src: src}.Rand()
	case Exponential:
		return distuv.Exponential{Rate: s.Rate, Src: src}.Rand()
	case HalfNormal:
		return math.Abs(distuv.Normal{Mu: 0, Sigma: s.Scale, Src: src}.Rand())
	case HalfStudentT:
		return math.Abs(distuv.StudentsT{Mu: 0, Sigma: s.Scale, Nu: s.DF, Src: src}.Rand())
	case HalfCauchy:
		return math.Abs(distuv.StudentsT{Mu: 0, Sigma: s.Scale, Nu: 1, Src: src}.Rand())
	}
	return math.NaN()
}
