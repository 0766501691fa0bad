package sweep

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nvandessel/gridsweep/internal/runspec"
)

// Axes are the three parameter axes of a sweep. Their cross-product, in
// declaration order, is the run plan.
type Axes struct {
	// ArrivalRates are demand arrival rates in vehicles per second per entry.
	ArrivalRates []float64 `json:"arrival_rates" validate:"required,min=1,dive,gt=0"`

	// Controllers are traffic light controller family tokens.
	Controllers []string `json:"controllers" validate:"required,min=1,dive,ctrltoken"`

	// Seeds are simulator random seeds.
	Seeds []int64 `json:"seeds" validate:"required,min=1,dive,gte=0"`
}

// Size returns the number of runs in the plan.
func (a Axes) Size() int {
	return len(a.ArrivalRates) * len(a.Controllers) * len(a.Seeds)
}

// Plan enumerates the cross-product with the arrival rate outermost and the
// seed innermost.
func (a Axes) Plan() []runspec.RunSpec {
	specs := make([]runspec.RunSpec, 0, a.Size())
	for _, rate := range a.ArrivalRates {
		for _, ctrl := range a.Controllers {
			for _, seed := range a.Seeds {
				specs = append(specs, runspec.RunSpec{ArrivalRate: rate, Controller: ctrl, Seed: seed})
			}
		}
	}
	return specs
}

// Validate checks every axis is non-empty with legal values, and that no
// two runs of the plan share a tag. Arrival rates closer together than the
// tag precision would collide on disk.
func (a Axes) Validate() error {
	if err := axesValidate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid axes: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeAxis(fe))
		}
		return fmt.Errorf("invalid axes: %s", strings.Join(msgs, "; "))
	}

	seen := make(map[string]runspec.RunSpec, a.Size())
	for _, spec := range a.Plan() {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("invalid axes: %w", err)
		}
		tag := spec.Tag()
		if prev, ok := seen[tag]; ok {
			return fmt.Errorf("invalid axes: runs %v and %v share tag %s", prev, spec, tag)
		}
		seen[tag] = spec
	}
	return nil
}

var axesValidate *validator.Validate

func init() {
	axesValidate = validator.New()
	axesValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = axesValidate.RegisterValidation("ctrltoken", func(fl validator.FieldLevel) bool {
		return runspec.ValidController(fl.Field().String())
	})
}

func describeAxis(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Axes.")
	switch fe.Tag() {
	case "required", "min":
		return field + " must not be empty"
	case "gt":
		return fmt.Sprintf("%s must be positive, got %v", field, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be non-negative, got %v", field, fe.Value())
	case "ctrltoken":
		return fmt.Sprintf("%s must match [a-z_]+, got %q", field, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
