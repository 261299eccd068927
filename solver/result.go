// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import "time"

// Status is the termination kind of a solve.
type Status int

const (
	// Optimal the returned point is optimal within tolerance.
	Optimal Status = iota
	// TimeLimit the time limit elapsed, Values is the incumbent if any.
	TimeLimit
	// Infeasible the constraints have no common point.
	Infeasible
	// Unbounded the objective decreases without bound.
	Unbounded
	// Error the backend failed numerically.
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case TimeLimit:
		return "time limit"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case Error:
		return "error"
	}
	return "unknown"
}

// Result is the outcome of Solver.Solve.
type Result struct {
	Status    Status
	Objective float64
	// Values is nil when no feasible point is known.
	Values []float64
	// Bound is the best proven bound on the objective (branch-and-bound only).
	Bound   float64
	Nodes   int
	Elapsed time.Duration

	names []string
}

// NamedValue pairs a variable name with its value.
type NamedValue struct {
	Name  string
	Value float64
}

func newResult(m *Model) *Result {
	names := make([]string, len(m.vars))
	for i, v := range m.vars {
		names[i] = v.name
	}
	return &Result{Status: Error, names: names}
}

// HasSolution reports whether Values holds a feasible point.
func (r *Result) HasSolution() bool { return r != nil && r.Values != nil }

// Value returns the value of v, zero without solution.
func (r *Result) Value(v Var) float64 {
	if !r.HasSolution() {
		return 0
	}
	return r.Values[v]
}

// Named returns every variable with its value, in creation order.
func (r *Result) Named() []NamedValue {
	if !r.HasSolution() {
		return nil
	}
	out := make([]NamedValue, len(r.Values))
	for i, v := range r.Values {
		out[i] = NamedValue{Name: r.names[i], Value: v}
	}
	return out
}
