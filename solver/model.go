// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"math"
	"time"
)

// Var identifies a decision variable inside the Model that created it.
type Var int

// VarKind is the integrality class of a variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// Term is the product Coef × Var.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is an affine expression ∑ Terms + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Const returns the constant expression c.
func Const(c float64) Expr { return Expr{Constant: c} }

// Add returns e + coef × v.
func (e Expr) Add(v Var, coef float64) Expr {
	e.Terms = append(e.Terms[:len(e.Terms):len(e.Terms)], Term{Var: v, Coef: coef})
	return e
}

// Plus returns e + c.
func (e Expr) Plus(c float64) Expr {
	e.Constant += c
	return e
}

// Merge returns e + s × o.
func (e Expr) Merge(o Expr, s float64) Expr {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	for _, t := range o.Terms {
		terms = append(terms, Term{Var: t.Var, Coef: s * t.Coef})
	}
	return Expr{Terms: terms, Constant: e.Constant + s*o.Constant}
}

// Eval evaluates e at the given variable values.
func (e Expr) Eval(values []float64) float64 {
	s := e.Constant
	for _, t := range e.Terms {
		s += t.Coef * values[t.Var]
	}
	return s
}

// Relation is the comparison of a linear constraint.
type Relation int

const (
	LessEq Relation = iota
	GreaterEq
	Equal
)

func (r Relation) String() string {
	switch r {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	}
	return "?"
}

// Constraint is the normalised row ∑ Terms (Rel) RHS.
// Tag is carried for diagnostics only.
type Constraint struct {
	Tag   string
	Terms []Term
	Rel   Relation
	RHS   float64
}

// Slack returns the signed violation of the constraint at values, positive when violated.
func (c Constraint) Slack(values []float64) float64 {
	lhs := zeroExpr(c.Terms).Eval(values)
	switch c.Rel {
	case LessEq:
		return lhs - c.RHS
	case GreaterEq:
		return c.RHS - lhs
	default:
		return math.Abs(lhs - c.RHS)
	}
}

func zeroExpr(terms []Term) Expr { return Expr{Terms: terms} }

// Deviation is the objective term Weight × (Var - Target)².
type Deviation struct {
	Var    Var
	Target float64
	Weight float64
}

// Sense is the optimisation direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

type variable struct {
	name   string
	lo, up float64
	kind   VarKind
}

// Model is a mixed binary program with a linear objective and optional
// separable squared deviations:
//
//	𝚖𝚒𝚗/𝚖𝚊𝚡 𝐜ᵀ𝐱 + ∑ 𝐰ₖ(𝐱ₖ - 𝐭ₖ)²  subject to linear rows and 𝐥 ≤ 𝐱 ≤ 𝐮.
//
// Infinite bounds are expressed with ±math.Inf.
type Model struct {
	Name      string
	TimeLimit time.Duration

	vars  []variable
	cons  []Constraint
	sense Sense
	obj   Expr
	devs  []Deviation
}

// NewModel creates an empty minimisation model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVar adds a variable with bounds [lo, up].
func (m *Model) AddVar(name string, lo, up float64, kind VarKind) Var {
	if kind == Binary {
		lo, up = math.Max(lo, 0), math.Min(up, 1)
	}
	m.vars = append(m.vars, variable{name: name, lo: lo, up: up, kind: kind})
	return Var(len(m.vars) - 1)
}

// AddBinary adds a {0,1} variable.
func (m *Model) AddBinary(name string) Var {
	return m.AddVar(name, 0, 1, Binary)
}

// AddConstraint adds lhs (rel) rhs, moving every term to the left.
func (m *Model) AddConstraint(tag string, lhs Expr, rel Relation, rhs Expr) {
	e := lhs.Merge(rhs, -1)
	m.cons = append(m.cons, Constraint{
		Tag:   tag,
		Terms: e.Terms,
		Rel:   rel,
		RHS:   -e.Constant,
	})
}

// SetObjective replaces the linear part of the objective.
func (m *Model) SetObjective(sense Sense, obj Expr) {
	m.sense, m.obj = sense, obj
}

// AddSquaredDeviation adds weight × (v - target)² to the objective.
func (m *Model) AddSquaredDeviation(v Var, target, weight float64) {
	m.devs = append(m.devs, Deviation{Var: v, Target: target, Weight: weight})
}

func (m *Model) NumVars() int { return len(m.vars) }

func (m *Model) NumConstraints() int { return len(m.cons) }

func (m *Model) Constraints() []Constraint { return m.cons }

func (m *Model) Deviations() []Deviation { return m.devs }

func (m *Model) Objective() (Sense, Expr) { return m.sense, m.obj }

func (m *Model) VarName(v Var) string { return m.vars[v].name }

func (m *Model) Bounds(v Var) (lo, up float64) { return m.vars[v].lo, m.vars[v].up }

func (m *Model) Kind(v Var) VarKind { return m.vars[v].kind }

// HasBinary reports whether any variable is binary.
func (m *Model) HasBinary() bool {
	for _, v := range m.vars {
		if v.kind == Binary {
			return true
		}
	}
	return false
}

// Evaluate returns the full objective value at values.
func (m *Model) Evaluate(values []float64) float64 {
	f := m.obj.Eval(values)
	for _, d := range m.devs {
		r := values[d.Var] - d.Target
		f += d.Weight * r * r
	}
	return f
}

// Validate checks references and bounds.
func (m *Model) Validate() error {
	n := Var(len(m.vars))
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("%w: %s references unknown variable %d", ErrBadModel, where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("%w: %s has non-finite coefficient", ErrBadModel, where)
			}
		}
		return nil
	}
	for _, v := range m.vars {
		if math.IsNaN(v.lo) || math.IsNaN(v.up) || v.lo > v.up {
			return fmt.Errorf("%w: variable %q has bounds [%g, %g]", ErrBadModel, v.name, v.lo, v.up)
		}
	}
	for _, c := range m.cons {
		if err := check("constraint "+c.Tag, c.Terms); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("%w: constraint %s has non-finite rhs", ErrBadModel, c.Tag)
		}
	}
	if err := check("objective", m.obj.Terms); err != nil {
		return err
	}
	for _, d := range m.devs {
		if d.Var < 0 || d.Var >= n {
			return fmt.Errorf("%w: deviation references unknown variable %d", ErrBadModel, d.Var)
		}
		if !(d.Weight >= 0) || math.IsInf(d.Weight, 0) || math.IsNaN(d.Target) {
			return fmt.Errorf("%w: deviation on %q is not a finite non-negative weight", ErrBadModel, m.vars[d.Var].name)
		}
	}
	return nil
}

// linear returns the dense objective coefficients and constant in minimisation form.
func (m *Model) linear() (c []float64, constant float64) {
	c = make([]float64, len(m.vars))
	for _, t := range m.obj.Terms {
		c[t.Var] += t.Coef
	}
	constant = m.obj.Constant
	if m.sense == Maximize {
		for i := range c {
			c[i] = -c[i]
		}
		constant = -constant
	}
	return
}
