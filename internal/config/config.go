// Package config provides unified settings loading for gridsweep.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nvandessel/gridsweep/internal/constants"
	"github.com/nvandessel/gridsweep/internal/runspec"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the settings file picked up from the working directory
// when no --config flag is given.
const DefaultFileName = "gridsweep.yaml"

// Settings contains all gridsweep settings.
type Settings struct {
	// Simulator locates and bounds the external simulator.
	Simulator SimulatorConfig `json:"simulator" yaml:"simulator"`

	// Template is the nested YAML configuration every run is projected from.
	Template string `json:"template" yaml:"template" validate:"required"`

	// Paths are the output locations.
	Paths PathsConfig `json:"paths" yaml:"paths"`

	// Sweep defines the parameter axes and the failure policy.
	Sweep SweepConfig `json:"sweep" yaml:"sweep"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Metrics configures the Prometheus textfile export.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SimulatorConfig configures the external simulator.
type SimulatorConfig struct {
	// Path is the simulator executable.
	Path string `json:"path" yaml:"path" validate:"required"`

	// BuildDir, when set, is built with make if Path does not exist.
	BuildDir string `json:"build_dir,omitempty" yaml:"build_dir,omitempty"`

	// Timeout bounds each run. Zero disables the bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// PathsConfig holds the output directories.
type PathsConfig struct {
	// Results is the sweep results root. It is deleted at the start of every sweep.
	Results string `json:"results" yaml:"results" validate:"required"`

	// Tables receives summary.csv, raw_metrics.csv and sweep.db.
	Tables string `json:"tables" yaml:"tables" validate:"required"`

	// Figures receives the comparison charts.
	Figures string `json:"figures" yaml:"figures" validate:"required"`
}

// SweepConfig defines the sweep axes.
type SweepConfig struct {
	// Policy is "fail_fast" (default) or "collect_all".
	Policy constants.Policy `json:"policy" yaml:"policy" validate:"oneof=fail_fast collect_all"`

	// ArrivalRatesPerMin are entry arrival rates in vehicles per minute.
	ArrivalRatesPerMin []float64 `json:"arrival_rates_per_min" yaml:"arrival_rates_per_min" validate:"required,min=1,dive,gt=0"`

	// Controllers are traffic-light controller names.
	Controllers []string `json:"controllers" yaml:"controllers" validate:"required,min=1,dive,ctrltoken"`

	// Seeds are simulator random seeds.
	Seeds []int64 `json:"seeds" yaml:"seeds" validate:"required,min=1,dive,gte=0"`
}

// ArrivalRates converts the configured per-minute rates to vehicles per second.
func (c SweepConfig) ArrivalRates() []float64 {
	rates := make([]float64, len(c.ArrivalRatesPerMin))
	for i, r := range c.ArrivalRatesPerMin {
		rates[i] = r / constants.SecondsPerMinute
	}
	return rates
}

// LoggingConfig configures gridsweep's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" additionally logs simulator output.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=error warn info debug trace"`
}

// MetricsConfig configures run metrics export.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile path. Empty disables the export.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// Default returns Settings matching the reference experiment layout.
func Default() *Settings {
	return &Settings{
		Simulator: SimulatorConfig{
			Path:     "src_c/bin/traffic_sim",
			BuildDir: "src_c",
		},
		Template: "config/base.yaml",
		Paths: PathsConfig{
			Results: "results",
			Tables:  "report_tables",
			Figures: "report_figures",
		},
		Sweep: SweepConfig{
			Policy:             constants.PolicyFailFast,
			ArrivalRatesPerMin: []float64{3, 6, 9, 12, 15, 18, 21, 24, 27, 30},
			Controllers: []string{
				constants.ControllerFixed,
				constants.ControllerActuated,
				constants.ControllerMaxPressure,
			},
			Seeds: []int64{0, 1, 2, 3, 4},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads settings from path, or from ./gridsweep.yaml when path is
// empty and that file exists, then applies environment variable overrides.
// Order: defaults -> settings file -> environment variables
func Load(path string) (*Settings, error) {
	settings := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	if path != "" {
		fileSettings, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading settings file: %w", err)
		}
		settings = fileSettings
	}

	if err := applyEnvOverrides(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// LoadFromFile loads settings from a specific YAML file on top of the defaults.
// Lists in the file replace the default lists.
func LoadFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return settings, nil
}

// Validate checks that the settings are usable for a sweep.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid settings: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// applyEnvOverrides applies environment variable overrides to the settings.
func applyEnvOverrides(s *Settings) error {
	if v := os.Getenv("GRIDSWEEP_SIMULATOR"); v != "" {
		s.Simulator.Path = v
	}
	if v := os.Getenv("GRIDSWEEP_TEMPLATE"); v != "" {
		s.Template = v
	}
	if v := os.Getenv("GRIDSWEEP_RESULTS"); v != "" {
		s.Paths.Results = v
	}
	if v := os.Getenv("GRIDSWEEP_TABLES"); v != "" {
		s.Paths.Tables = v
	}
	if v := os.Getenv("GRIDSWEEP_FIGURES"); v != "" {
		s.Paths.Figures = v
	}
	if v := os.Getenv("GRIDSWEEP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GRIDSWEEP_TIMEOUT %q: %w", v, err)
		}
		s.Simulator.Timeout = d
	}
	if v := os.Getenv("GRIDSWEEP_POLICY"); v != "" {
		s.Sweep.Policy = constants.Policy(v)
	}
	if v := os.Getenv("GRIDSWEEP_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	return nil
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their YAML names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("ctrltoken", validateControllerToken)
}

// validateControllerToken accepts controller names the tag grammar can carry.
func validateControllerToken(fl validator.FieldLevel) bool {
	return runspec.ValidController(fl.Field().String())
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Settings.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "ctrltoken":
		return fmt.Sprintf("%s must match [a-z_]+, got %q", field, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
