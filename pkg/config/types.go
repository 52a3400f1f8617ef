package config

import "time"

// Config is the service configuration: server and logging settings plus the
// initial contents of the configuration holder.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`

	Model       ModelConfig                   `yaml:"model"`
	Value       ValueConfig                   `yaml:"value"`
	Norms       map[string][]string           `yaml:"norms" validate:"required,min=1,dive,min=1,dive,required"`
	LowerBounds map[string]map[string]float64 `yaml:"lower_bounds" validate:"required"`
	UpperBounds map[string]map[string]float64 `yaml:"upper_bounds" validate:"required"`
	Constraints []Constraint                  `yaml:"constraints,omitempty" validate:"dive"`
	LambdaConst *float64                      `yaml:"lambda_const,omitempty" validate:"omitempty,gte=0"`

	Optimizer OptimizerConfig `yaml:"optimizer"`
	TermDict  map[string]any  `yaml:"term_dict,omitempty"`

	PathLength int   `yaml:"path_length" validate:"gte=1"`
	PathSample int   `yaml:"path_sample" validate:"gte=1"`
	Workers    int   `yaml:"workers,omitempty" validate:"gte=0"`
	Seed       int64 `yaml:"seed,omitempty" validate:"gte=0"`
}

// ServerConfig configures the HTTP and gRPC listeners
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" validate:"required"`
	GRPCAddr string `yaml:"grpc_addr,omitempty"`
	// ExposeErrorDetail returns full error chains (and panic stacks) to clients.
	ExposeErrorDetail *bool         `yaml:"expose_error_detail,omitempty"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout,omitempty" validate:"gte=0"`
	// WriteTimeout of zero disables the timeout; optimization runs can be long.
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty" validate:"gte=0"`
}

// LoggingConfig configures pkg/logger
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=json text"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups,omitempty" validate:"gte=0"`
}

// ModelConfig names a registered model and its construction arguments
type ModelConfig struct {
	Name   string         `yaml:"name" validate:"required"`
	Args   []any          `yaml:"args,omitempty"`
	Kwargs map[string]any `yaml:"kwargs,omitempty"`
}

// ValueConfig names a registered value, or weights several of them.
type ValueConfig struct {
	Name    string             `yaml:"name,omitempty"`
	Weights map[string]float64 `yaml:"weights,omitempty"`
}

// Constraint is a linear constraint over norm parameters:
// g(x) = offset + sum(coef[norm][param] * x).
type Constraint struct {
	Name   string                        `yaml:"name,omitempty"`
	Kind   string                        `yaml:"kind" validate:"oneof=eq le"`
	Coef   map[string]map[string]float64 `yaml:"coef" validate:"required,min=1"`
	Offset float64                       `yaml:"offset,omitempty"`
}

// OptimizerConfig selects the initial optimizer
type OptimizerConfig struct {
	Class  string         `yaml:"class" validate:"required"`
	Args   []any          `yaml:"args,omitempty"`
	Kwargs map[string]any `yaml:"kwargs,omitempty"`
}

// ExposeDetail reports whether error detail is returned to clients
func (s ServerConfig) ExposeDetail() bool {
	return s.ExposeErrorDetail == nil || *s.ExposeErrorDetail
}

// Lambda returns the constraint penalty weight
func (c *Config) Lambda() float64 {
	if c.LambdaConst == nil {
		return DefaultLambdaConst
	}
	return *c.LambdaConst
}
