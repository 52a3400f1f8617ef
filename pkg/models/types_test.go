package models

import (
	"errors"
	"math"
	"testing"
)

func testSpace() NormSpace {
	return NormSpace{
		"tax":            {"rate_0", "rate_1"},
		"redistribution": {"rate_0", "rate_1", "rate_0"},
	}
}

func TestLayoutOrder(t *testing.T) {
	l := NewLayout(testSpace())

	if l.Dim() != 4 {
		t.Fatalf("expected 4 coordinates, got %d", l.Dim())
	}
	want := []string{"redistribution.rate_0", "redistribution.rate_1", "tax.rate_0", "tax.rate_1"}
	for i, c := range l.Coords() {
		if c.String() != want[i] {
			t.Errorf("coord %d = %s, want %s", i, c, want[i])
		}
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	l := NewLayout(testSpace())
	x := []float64{0.1, 0.2, 0.3, 0.4}

	a := l.Assignment(x)
	if v, _ := a.Get("tax", "rate_1"); v != 0.4 {
		t.Errorf("tax.rate_1 = %f, want 0.4", v)
	}

	back, err := l.Flatten(a)
	if err != nil {
		t.Fatalf("Flatten error: %v", err)
	}
	for i := range x {
		if back[i] != x[i] {
			t.Errorf("coordinate %d = %f, want %f", i, back[i], x[i])
		}
	}
}

func TestLayoutVectorMissingBound(t *testing.T) {
	l := NewLayout(NormSpace{"tax": {"rate_0", "rate_1"}})
	_, err := l.Vector(Bounds{"tax": {"rate_0": 0}}, "lower")

	var missing *MissingBoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingBoundError, got %v", err)
	}
	if missing.Coord.Param != "rate_1" || missing.Side != "lower" {
		t.Errorf("unexpected error detail: %+v", missing)
	}
}

func TestLayoutVectorRejectsNaN(t *testing.T) {
	l := NewLayout(NormSpace{"tax": {"rate_0"}})
	if _, err := l.Vector(Bounds{"tax": {"rate_0": math.NaN()}}, "upper"); err == nil {
		t.Fatal("expected error for NaN bound")
	}
}

func TestLayoutUndeclared(t *testing.T) {
	l := NewLayout(NormSpace{"tax": {"rate_0"}})
	extra := l.Undeclared(Bounds{"tax": {"rate_0": 0, "rate_9": 1}, "other": {"x": 0}})
	if len(extra) != 2 {
		t.Fatalf("expected 2 undeclared entries, got %v", extra)
	}
	if extra[0].String() != "other.x" || extra[1].String() != "tax.rate_9" {
		t.Errorf("unexpected undeclared entries: %v", extra)
	}
}

func TestAssignmentCloneIsDeep(t *testing.T) {
	a := Assignment{"tax": {"rate_0": 1}}
	b := a.Clone()
	b["tax"]["rate_0"] = 2
	if a["tax"]["rate_0"] != 1 {
		t.Error("clone shares inner map with source")
	}
}

func TestLinearConstraint(t *testing.T) {
	coef := Assignment{"tax": {"rate_0": 1, "rate_1": 1}}
	a := Assignment{"tax": {"rate_0": 0.7, "rate_1": 0.5}}

	eq := LinearConstraint{Kind: ConstraintEqual, Coef: coef, Offset: -1}.Func()
	if got := eq(a); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("eq penalty = %f, want 0.2", got)
	}

	le := LinearConstraint{Kind: ConstraintLessEqual, Coef: coef, Offset: -2}.Func()
	if got := le(a); got != 0 {
		t.Errorf("le penalty for satisfied constraint = %f, want 0", got)
	}
}
