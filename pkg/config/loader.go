package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to unset fields
const (
	DefaultHTTPAddr          = ":8080"
	DefaultGRPCAddr          = ":50051"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultOptimizerClass    = "BaseGA"
	DefaultPathLength        = 10
	DefaultPathSample        = 500
	DefaultLambdaConst       = 1.0
	DefaultMaxEpoch          = 100
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

var validate = validator.New()

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Optimizer.Class == "" {
		cfg.Optimizer.Class = DefaultOptimizerClass
	}
	if cfg.TermDict == nil {
		cfg.TermDict = map[string]any{"max_epoch": DefaultMaxEpoch}
	}
	if cfg.PathLength == 0 {
		cfg.PathLength = DefaultPathLength
	}
	if cfg.PathSample == 0 {
		cfg.PathSample = DefaultPathSample
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return describeValidation(err)
	}

	if (cfg.Value.Name == "") == (len(cfg.Value.Weights) == 0) {
		return fmt.Errorf("value: exactly one of name or weights must be set")
	}

	declared := make(map[string]map[string]bool, len(cfg.Norms))
	for norm, params := range cfg.Norms {
		declared[norm] = make(map[string]bool, len(params))
		for _, p := range params {
			if declared[norm][p] {
				return fmt.Errorf("norms: %s declares parameter %s twice", norm, p)
			}
			declared[norm][p] = true
		}
	}

	for _, side := range []struct {
		name   string
		bounds map[string]map[string]float64
	}{{"lower_bounds", cfg.LowerBounds}, {"upper_bounds", cfg.UpperBounds}} {
		if err := checkDeclared(side.name, side.bounds, declared); err != nil {
			return err
		}
	}

	for _, norm := range sortedKeys(cfg.Norms) {
		for _, param := range cfg.Norms[norm] {
			lo, okLo := cfg.LowerBounds[norm][param]
			hi, okHi := cfg.UpperBounds[norm][param]
			if !okLo {
				return fmt.Errorf("lower_bounds: missing %s.%s", norm, param)
			}
			if !okHi {
				return fmt.Errorf("upper_bounds: missing %s.%s", norm, param)
			}
			if lo > hi {
				return fmt.Errorf("bounds: %s.%s has lower bound %g above upper bound %g", norm, param, lo, hi)
			}
		}
	}

	for i, c := range cfg.Constraints {
		if err := checkDeclared(fmt.Sprintf("constraints[%d].coef", i), c.Coef, declared); err != nil {
			return err
		}
	}

	return nil
}

func checkDeclared(field string, values map[string]map[string]float64, declared map[string]map[string]bool) error {
	for _, norm := range sortedKeys(values) {
		for _, param := range sortedKeys(values[norm]) {
			if !declared[norm][param] {
				return fmt.Errorf("%s: %s.%s is not a declared norm parameter", field, norm, param)
			}
		}
	}
	return nil
}

// describeValidation turns validator errors into one readable message.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
