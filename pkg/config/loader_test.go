package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
model:
  name: tax
value:
  name: equality
norms:
  tax: [rate_0]
lower_bounds:
  tax: {rate_0: 0}
upper_bounds:
  tax: {rate_0: 1}
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../../config/normd.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Model.Name != "tax" {
		t.Errorf("Expected model 'tax', got '%s'", cfg.Model.Name)
	}
	if len(cfg.Norms) != 2 {
		t.Errorf("Expected 2 norms, got %d", len(cfg.Norms))
	}
	if len(cfg.Constraints) != 1 || cfg.Constraints[0].Kind != "le" {
		t.Errorf("Expected one 'le' constraint, got %+v", cfg.Constraints)
	}
	if cfg.PathSample != 50 {
		t.Errorf("Expected path_sample 50, got %d", cfg.PathSample)
	}
	if cfg.Server.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("Expected read_header_timeout 5s, got %v", cfg.Server.ReadHeaderTimeout)
	}
	if cfg.Optimizer.Kwargs["pop_size"] != 20 {
		t.Errorf("Expected pop_size 20, got %v", cfg.Optimizer.Kwargs["pop_size"])
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfigYAMLString(minimalYAML)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}

	if cfg.Optimizer.Class != DefaultOptimizerClass {
		t.Errorf("Expected default optimizer %s, got %s", DefaultOptimizerClass, cfg.Optimizer.Class)
	}
	if cfg.PathLength != 10 || cfg.PathSample != 500 {
		t.Errorf("Expected path length/sample 10/500, got %d/%d", cfg.PathLength, cfg.PathSample)
	}
	if cfg.Lambda() != 1 {
		t.Errorf("Expected lambda 1, got %v", cfg.Lambda())
	}
	if cfg.TermDict["max_epoch"] != DefaultMaxEpoch {
		t.Errorf("Expected term_dict max_epoch %d, got %v", DefaultMaxEpoch, cfg.TermDict["max_epoch"])
	}
	if !cfg.Server.ExposeDetail() {
		t.Error("Expected error detail to be exposed by default")
	}
	if cfg.Server.HTTPAddr != DefaultHTTPAddr || cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Unexpected server/logging defaults: %+v %+v", cfg.Server, cfg.Logging)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("Expected no write timeout, got %v", cfg.Server.WriteTimeout)
	}
}

func TestParseConfigExplicitZeroLambda(t *testing.T) {
	cfg, err := ParseConfigYAMLString(minimalYAML + "lambda_const: 0\n")
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}
	if cfg.Lambda() != 0 {
		t.Errorf("Expected lambda 0, got %v", cfg.Lambda())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing model",
			yaml:    strings.Replace(minimalYAML, "name: tax", "name: \"\"", 1),
			wantErr: "Model.Name",
		},
		{
			name:    "no value",
			yaml:    strings.Replace(minimalYAML, "value:\n  name: equality\n", "", 1),
			wantErr: "exactly one of name or weights",
		},
		{
			name:    "empty norms",
			yaml:    strings.Replace(minimalYAML, "tax: [rate_0]", "tax: []", 1),
			wantErr: "Norms",
		},
		{
			name:    "undeclared bound",
			yaml:    strings.Replace(minimalYAML, "upper_bounds:\n  tax: {rate_0: 1}", "upper_bounds:\n  tax: {rate_0: 1, rate_9: 2}", 1),
			wantErr: "tax.rate_9 is not a declared",
		},
		{
			name:    "missing bound",
			yaml:    strings.Replace(minimalYAML, "lower_bounds:\n  tax: {rate_0: 0}", "lower_bounds:\n  tax: {}", 1),
			wantErr: "lower_bounds: missing tax.rate_0",
		},
		{
			name:    "inverted bound",
			yaml:    strings.Replace(minimalYAML, "tax: {rate_0: 0}", "tax: {rate_0: 3}", 1),
			wantErr: "above upper bound",
		},
		{
			name:    "negative lambda",
			yaml:    minimalYAML + "lambda_const: -1\n",
			wantErr: "LambdaConst",
		},
		{
			name:    "bad log level",
			yaml:    minimalYAML + "logging:\n  level: verbose\n",
			wantErr: "Logging.Level",
		},
		{
			name:    "bad constraint kind",
			yaml:    minimalYAML + "constraints:\n  - kind: ge\n    coef: {tax: {rate_0: 1}}\n",
			wantErr: "Kind",
		},
		{
			name:    "constraint on undeclared parameter",
			yaml:    minimalYAML + "constraints:\n  - kind: eq\n    coef: {tax: {rate_7: 1}}\n",
			wantErr: "constraints[0].coef",
		},
		{
			name:    "negative path length",
			yaml:    minimalYAML + "path_length: -2\n",
			wantErr: "PathLength",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigYAMLString(tt.yaml)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValueWeights(t *testing.T) {
	yaml := strings.Replace(minimalYAML, "value:\n  name: equality\n", "value:\n  weights: {equality: 2, fairness: 1}\n", 1)
	cfg, err := ParseConfigYAMLString(yaml)
	if err != nil {
		t.Fatalf("ParseConfigYAMLString error: %v", err)
	}
	if cfg.Value.Weights["equality"] != 2 {
		t.Errorf("Expected equality weight 2, got %v", cfg.Value.Weights["equality"])
	}

	both := strings.Replace(minimalYAML, "value:\n  name: equality\n", "value:\n  name: equality\n  weights: {fairness: 1}\n", 1)
	if _, err := ParseConfigYAMLString(both); err == nil {
		t.Fatal("expected error when both name and weights are set")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	if _, err := LoadConfig("nonexistent.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
