// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package master formulates the restricted master MIP on the finite supports E(τ,j):
//
//	𝚖𝚒𝚗 λθᵗ - ∑ⱼ νⱼwⱼ
//	s.t. u_f(𝐱,a) ≥ u_f(𝐱,a') + M(δ_{a,u} - 1)          ∀j, u ∈ E(τ,j), a ≠ a'
//	     wⱼ ≤ M(1 - δ_{a,u}) + λ·d(u,ûⱼ)ᵗ + u_l(𝐱,a)    ∀j, u ∈ E(τ,j), a
//	     ∑ₐ δ_{a,u} = 1                                  ∀j, u ∈ E(τ,j)
//	     ∑ᵢ 𝐱ᵢ = 1, 𝐱 ∈ [0,1]ⁿ, λ ≥ 0, w free, δ binary
//
// The binary δ_{a,u} selects the follower response to 𝐱 under u. Payoffs lie in [0,1]
// so any M ≥ 1 deactivates a row when δ = 0.
package master

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/solver"
	"github.com/curioloop/stackelberg/support"
)

var (
	ErrInfeasible = errors.New("master: infeasible")
	ErrUnbounded  = errors.New("master: unbounded")
	ErrSolver     = errors.New("master: solver failure")
	ErrBigM       = errors.New("master: big-M below the payoff spread")
)

// Problem is one master instance.
type Problem struct {
	Game    *game.Game
	Support *support.Set
	// Exponent is the Wasserstein exponent t.
	Exponent float64
	// Radius is the ball radius θ.
	Radius    float64
	BigM      float64
	TimeLimit time.Duration
}

// Solution of the master. On TimeLimit without incumbent every field but
// Status, TimedOut and Elapsed is zero.
type Solution struct {
	X      []float64
	Lambda float64
	W      []float64
	// Delta[j][l][a] is δ for follower action a under the l-th member of E(τ,j).
	Delta     [][][]float64
	Objective float64
	Status    solver.Status
	TimedOut  bool
	Elapsed   time.Duration
	Nodes     int
	Named     []solver.NamedValue
}

// HasSolution reports whether X, Lambda and W hold a feasible point.
func (s *Solution) HasSolution() bool { return s.X != nil }

// vars indexes the model variables.
type vars struct {
	x      []solver.Var
	lambda solver.Var
	w      []solver.Var
	delta  [][][]solver.Var
}

// bigM emits the indicator rows guarded by δ with an explicit M.
type bigM struct {
	model *solver.Model
	M     float64
}

// geq adds lhs ≥ rhs + M(δ - 1).
func (b bigM) geq(tag string, lhs, rhs solver.Expr, delta solver.Var) {
	b.model.AddConstraint(tag, lhs, solver.GreaterEq, rhs.Add(delta, b.M).Plus(-b.M))
}

// leq adds lhs ≤ rhs + M(1 - δ).
func (b bigM) leq(tag string, lhs, rhs solver.Expr, delta solver.Var) {
	b.model.AddConstraint(tag, lhs, solver.LessEq, rhs.Add(delta, -b.M).Plus(b.M))
}

func (p Problem) validate() error {
	if p.Game == nil || p.Support == nil {
		return fmt.Errorf("master: missing game or support")
	}
	if p.Support.Len() != p.Game.K() {
		return fmt.Errorf("master: support has %d nominals, game has %d", p.Support.Len(), p.Game.K())
	}
	if !(p.BigM >= 1) {
		return fmt.Errorf("%w: M = %g", ErrBigM, p.BigM)
	}
	if !(p.Exponent > 0) || !(p.Radius >= 0) {
		return fmt.Errorf("master: need exponent > 0 and radius ≥ 0, got %g and %g", p.Exponent, p.Radius)
	}
	return nil
}

// build formulates the master model.
func build(p Problem) (*solver.Model, *vars, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}
	g, s := p.Game, p.Support
	n, m := g.Dims()
	k := g.K()

	model := solver.NewModel("master")
	model.TimeLimit = p.TimeLimit
	v := &vars{
		x: make([]solver.Var, n),
		w: make([]solver.Var, k),
	}
	for i := range v.x {
		v.x[i] = model.AddVar(fmt.Sprintf("x_%d", i), 0, 1, solver.Continuous)
	}
	v.lambda = model.AddVar("lambda", 0, math.Inf(1), solver.Continuous)
	for j := range v.w {
		v.w[j] = model.AddVar(fmt.Sprintf("w_%d", j), math.Inf(-1), math.Inf(1), solver.Continuous)
	}
	v.delta = make([][][]solver.Var, k)
	for j := range v.delta {
		v.delta[j] = make([][]solver.Var, s.Size(j))
		for l := range v.delta[j] {
			v.delta[j][l] = make([]solver.Var, m)
			for a := range v.delta[j][l] {
				v.delta[j][l][a] = model.AddBinary(fmt.Sprintf("delta_%d_%d_%d", j, l, a))
			}
		}
	}

	obj := solver.Expr{}.Add(v.lambda, math.Pow(p.Radius, p.Exponent))
	for j, w := range v.w {
		obj = obj.Add(w, -g.Nu[j])
	}
	model.SetObjective(solver.Minimize, obj)

	// u(𝐱,a) as an expression in 𝐱.
	utility := func(u mat.Matrix, a int) solver.Expr {
		e := solver.Expr{}
		for i, xi := range v.x {
			if c := u.At(i, a); c != 0 {
				e = e.Add(xi, c)
			}
		}
		return e
	}

	dist := s.Distances()
	bm := bigM{model: model, M: p.BigM}
	row := 0
	for j := 0; j < k; j++ {
		for l := 0; l < s.Size(j); l++ {
			u := s.At(j, l)
			d := math.Pow(dist.At(row, j), p.Exponent)
			row++

			pick := solver.Expr{}
			for a := 0; a < m; a++ {
				delta := v.delta[j][l][a]
				pick = pick.Add(delta, 1)
				for b := 0; b < m; b++ {
					if b != a {
						bm.geq(fmt.Sprintf("br_%d_%d_%d_%d", j, l, a, b), utility(u, a), utility(u, b), delta)
					}
				}
				rhs := utility(g.Leader, a)
				if d != 0 {
					rhs = rhs.Add(v.lambda, d)
				}
				bm.leq(fmt.Sprintf("dual_%d_%d_%d", j, l, a), solver.Expr{}.Add(v.w[j], 1), rhs, delta)
			}
			model.AddConstraint(fmt.Sprintf("pick_%d_%d", j, l), pick, solver.Equal, solver.Const(1))
		}
	}

	simplex := solver.Expr{}
	for _, xi := range v.x {
		simplex = simplex.Add(xi, 1)
	}
	model.AddConstraint("simplex", simplex, solver.Equal, solver.Const(1))
	return model, v, nil
}

// Solve builds and solves the master. Infeasible, unbounded and failed solves are errors;
// a time limit without incumbent is not.
func Solve(ctx context.Context, slv solver.Solver, p Problem) (*Solution, error) {
	model, v, err := build(p)
	if err != nil {
		return nil, err
	}
	res, err := slv.Solve(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSolver, err)
	}

	sol := &Solution{
		Status:   res.Status,
		TimedOut: res.Status == solver.TimeLimit,
		Elapsed:  res.Elapsed,
		Nodes:    res.Nodes,
	}
	switch res.Status {
	case solver.Infeasible:
		return sol, ErrInfeasible
	case solver.Unbounded:
		return sol, ErrUnbounded
	case solver.Error:
		return sol, ErrSolver
	}
	if !res.HasSolution() {
		return sol, nil
	}

	sol.X = make([]float64, len(v.x))
	for i, xi := range v.x {
		sol.X[i] = res.Value(xi)
	}
	sol.Lambda = res.Value(v.lambda)
	sol.W = make([]float64, len(v.w))
	for j, w := range v.w {
		sol.W[j] = res.Value(w)
	}
	sol.Delta = make([][][]float64, len(v.delta))
	for j := range v.delta {
		sol.Delta[j] = make([][]float64, len(v.delta[j]))
		for l := range v.delta[j] {
			sol.Delta[j][l] = make([]float64, len(v.delta[j][l]))
			for a, d := range v.delta[j][l] {
				sol.Delta[j][l][a] = res.Value(d)
			}
		}
	}
	sol.Objective = res.Objective
	sol.Named = res.Named()
	return sol, nil
}

// Response returns the follower action selected by δ for member (j,l), or -1.
func (s *Solution) Response(j, l int) int {
	if !s.HasSolution() {
		return -1
	}
	for a, d := range s.Delta[j][l] {
		if d > 0.5 {
			return a
		}
	}
	return -1
}
