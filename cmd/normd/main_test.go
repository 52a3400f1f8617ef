package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/norm-optimizer/internal/search"
	"github.com/spf13/cobra"
)

func TestListOptimizers(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := listOptimizers(cmd, nil); err != nil {
		t.Fatalf("listOptimizers error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{search.IDGA, search.IDDE, search.IDPSO, search.IDHC, search.IDRS, "pop_size", "neighbour_size"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListModels(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	if err := listModels(cmd, nil); err != nil {
		t.Fatalf("listModels error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "models: tax") || !strings.Contains(out, "equality") {
		t.Fatalf("unexpected output %q", out)
	}
}
