// Package runspec defines the identity of a single sweep run and the
// canonical tag grammar used to name its results directory.
//
// A tag has the form
//
//	lam_<arrival rate, 3 decimals>_ctrl_<controller token>_seed_<seed>
//
// for example "lam_0.050_ctrl_max_pressure_seed_3". Format and Parse are
// inverse operations for every canonical RunSpec.
package runspec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ArrivalRateDecimals is the fixed precision of the arrival rate in a tag.
// Parse relies on it; changing one without the other breaks aggregation.
const ArrivalRateDecimals = 3

var (
	tagPattern        = regexp.MustCompile(`^lam_(\d+\.\d{3})_ctrl_([a-z_]+)_seed_(\d+)$`)
	controllerPattern = regexp.MustCompile(`^[a-z_]+$`)
)

// RunSpec is one point of the sweep's parameter cross-product.
type RunSpec struct {
	// ArrivalRate is the demand arrival rate in vehicles per second per entry.
	ArrivalRate float64 `json:"arrival_rate"`

	// Controller is the traffic light controller family token.
	Controller string `json:"controller"`

	// Seed is the simulator random seed.
	Seed int64 `json:"seed"`
}

// Tag returns the canonical directory name for the run.
func (s RunSpec) Tag() string {
	return fmt.Sprintf("lam_%.*f_ctrl_%s_seed_%d", ArrivalRateDecimals, s.ArrivalRate, s.Controller, s.Seed)
}

// String implements fmt.Stringer.
func (s RunSpec) String() string {
	return s.Tag()
}

// Canonical returns the RunSpec as it reads back from its own tag: the
// arrival rate rounded to the tag precision.
func (s RunSpec) Canonical() RunSpec {
	s.ArrivalRate = CanonicalRate(s.ArrivalRate)
	return s
}

// Validate reports whether the RunSpec can be encoded losslessly enough to
// parse back: a non-negative arrival rate, a controller token of lowercase
// letters and underscores, and a non-negative seed.
func (s RunSpec) Validate() error {
	if math.IsNaN(s.ArrivalRate) || math.IsInf(s.ArrivalRate, 0) || s.ArrivalRate < 0 {
		return fmt.Errorf("arrival rate must be a non-negative number, got %v", s.ArrivalRate)
	}
	if !ValidController(s.Controller) {
		return fmt.Errorf("controller %q must match [a-z_]+", s.Controller)
	}
	if s.Seed < 0 {
		return fmt.Errorf("seed must be non-negative, got %d", s.Seed)
	}
	return nil
}

// Parse decodes a tag produced by Tag. The boolean is false for any name that
// does not follow the grammar exactly.
func Parse(tag string) (RunSpec, bool) {
	m := tagPattern.FindStringSubmatch(tag)
	if m == nil {
		return RunSpec{}, false
	}

	rate, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return RunSpec{}, false
	}
	seed, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return RunSpec{}, false
	}

	return RunSpec{ArrivalRate: rate, Controller: m[2], Seed: seed}, true
}

// ValidController reports whether s is a legal controller token.
func ValidController(s string) bool {
	return controllerPattern.MatchString(s)
}

// CanonicalRate rounds an arrival rate to tag precision by formatting and
// re-parsing it, so the result is bit-identical to what Parse returns.
func CanonicalRate(rate float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(rate, 'f', ArrivalRateDecimals, 64), 64)
	if err != nil {
		return rate
	}
	return v
}
