package models

import (
	"fmt"
	"math"
	"sort"
)

// NormSpace maps a norm identifier to the parameter names it exposes.
type NormSpace map[string][]string

// Assignment gives a value to every normative parameter: norm -> param -> value.
type Assignment map[string]map[string]float64

// Bounds holds one side (lower or upper) of the search box: norm -> param -> bound.
type Bounds map[string]map[string]float64

// ConstraintFunc scores an assignment; the closer to 0, the better the
// assignment respects the constraint.
type ConstraintFunc func(Assignment) float64

// Get returns the value of norm.param.
func (a Assignment) Get(norm, param string) (float64, bool) {
	params, ok := a[norm]
	if !ok {
		return 0, false
	}
	v, ok := params[param]
	return v, ok
}

// Clone deep-copies the assignment
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	for norm, params := range a {
		cp := make(map[string]float64, len(params))
		for k, v := range params {
			cp[k] = v
		}
		out[norm] = cp
	}
	return out
}

// Clone deep-copies the bounds
func (b Bounds) Clone() Bounds {
	return Bounds(Assignment(b).Clone())
}

// Clone deep-copies the norm space
func (n NormSpace) Clone() NormSpace {
	if n == nil {
		return nil
	}
	out := make(NormSpace, len(n))
	for norm, params := range n {
		out[norm] = append([]string(nil), params...)
	}
	return out
}

// Coord addresses one normative parameter.
type Coord struct {
	Norm  string
	Param string
}

func (c Coord) String() string {
	return c.Norm + "." + c.Param
}

// Layout is a deterministic flattening of a NormSpace into a vector:
// norms sorted by identifier, parameters in declared order.
type Layout struct {
	coords []Coord
}

// NewLayout builds the layout of space. Repeated parameter names within a norm
// are kept once.
func NewLayout(space NormSpace) Layout {
	norms := make([]string, 0, len(space))
	for norm := range space {
		norms = append(norms, norm)
	}
	sort.Strings(norms)

	coords := make([]Coord, 0)
	for _, norm := range norms {
		seen := make(map[string]bool, len(space[norm]))
		for _, param := range space[norm] {
			if seen[param] {
				continue
			}
			seen[param] = true
			coords = append(coords, Coord{Norm: norm, Param: param})
		}
	}
	return Layout{coords: coords}
}

// Dim is the number of searched parameters
func (l Layout) Dim() int {
	return len(l.coords)
}

// Coords returns the flattened coordinates in order
func (l Layout) Coords() []Coord {
	return append([]Coord(nil), l.coords...)
}

// Vector reads one side of the bounds in layout order.
func (l Layout) Vector(b Bounds, side string) ([]float64, error) {
	out := make([]float64, len(l.coords))
	for i, c := range l.coords {
		v, ok := Assignment(b).Get(c.Norm, c.Param)
		if !ok {
			return nil, &MissingBoundError{Coord: c, Side: side}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s bound for %s is not finite", side, c)
		}
		out[i] = v
	}
	return out, nil
}

// Assignment converts a point of the search space back into norm form.
func (l Layout) Assignment(x []float64) Assignment {
	out := make(Assignment)
	for i, c := range l.coords {
		if out[c.Norm] == nil {
			out[c.Norm] = make(map[string]float64)
		}
		out[c.Norm][c.Param] = x[i]
	}
	return out
}

// Flatten converts an assignment into a point of the search space.
func (l Layout) Flatten(a Assignment) ([]float64, error) {
	out := make([]float64, len(l.coords))
	for i, c := range l.coords {
		v, ok := a.Get(c.Norm, c.Param)
		if !ok {
			return nil, fmt.Errorf("assignment is missing %s", c)
		}
		out[i] = v
	}
	return out, nil
}

// Undeclared lists bound entries that do not belong to the layout.
func (l Layout) Undeclared(b Bounds) []Coord {
	known := make(map[Coord]bool, len(l.coords))
	for _, c := range l.coords {
		known[c] = true
	}
	extra := make([]Coord, 0)
	for norm, params := range b {
		for param := range params {
			c := Coord{Norm: norm, Param: param}
			if !known[c] {
				extra = append(extra, c)
			}
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].String() < extra[j].String() })
	return extra
}

// MissingBoundError reports a declared parameter without a bound
type MissingBoundError struct {
	Coord Coord
	Side  string
}

func (e *MissingBoundError) Error() string {
	return fmt.Sprintf("missing %s bound for %s", e.Side, e.Coord)
}

// ConstraintKind selects how a linear constraint turns into a penalty.
type ConstraintKind string

const (
	// ConstraintEqual penalizes |g(x)|
	ConstraintEqual ConstraintKind = "eq"
	// ConstraintLessEqual penalizes max(0, g(x))
	ConstraintLessEqual ConstraintKind = "le"
)

// LinearConstraint is g(x) = offset + sum(coef[norm][param] * x[norm][param]).
type LinearConstraint struct {
	Name   string
	Kind   ConstraintKind
	Coef   Assignment
	Offset float64
}

// Func returns the penalty function of the constraint. Parameters missing from
// the scored assignment count as zero.
func (c LinearConstraint) Func() ConstraintFunc {
	coef := c.Coef.Clone()
	kind := c.Kind
	offset := c.Offset
	return func(a Assignment) float64 {
		g := offset
		for norm, params := range coef {
			for param, w := range params {
				v, _ := a.Get(norm, param)
				g += w * v
			}
		}
		if kind == ConstraintLessEqual {
			return math.Max(0, g)
		}
		return math.Abs(g)
	}
}
