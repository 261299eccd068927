// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oracle implements the separation step of the cutting-plane loop.
//
// For a master point (𝐱, λ) and a nominal j the oracle evaluates
//
//	Γ(τ,j) = 𝚖𝚒𝚗_{u,a} λ·d(u,ûⱼ)ᵗ + u_l(𝐱,a)   subject to a being the leader-favoured response under u
//
// one follower action at a time, and returns the minimising u as witness.
// A negative gap Γ(τ,j) - wⱼ means the witness cuts off the current master solution.
package oracle

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/solver"
)

// Sentinel is the value of an action whose subproblem produced no solution.
const Sentinel = 1e3

// Query is the master state seen by the oracle.
type Query struct {
	X        []float64
	Lambda   float64
	Exponent float64
	Nominal  int
}

// Report is the outcome for one nominal.
type Report struct {
	Nominal int
	// Value is Γ(τ,j), Sentinel when no action was solved.
	Value float64
	// Action is the minimising follower action, -1 when no action was solved.
	Action int
	// Witness is the follower utility attaining Value, nil when Action is -1.
	Witness *mat.Dense
	// Values and Statuses are indexed by follower action.
	Values   []float64
	Statuses []solver.Status
	// Failures counts actions whose subproblem failed for reasons other than infeasibility.
	Failures int
	Elapsed  time.Duration
}

// Oracle evaluates Γ(τ,j). Implementations only read shared state and are safe for concurrent use.
type Oracle interface {
	Solve(ctx context.Context, q Query) (*Report, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, q Query) (*Report, error)

func (f Func) Solve(ctx context.Context, q Query) (*Report, error) { return f(ctx, q) }

func newReport(j, m int) *Report {
	r := &Report{
		Nominal:  j,
		Value:    Sentinel,
		Action:   -1,
		Values:   make([]float64, m),
		Statuses: make([]solver.Status, m),
	}
	for a := range r.Values {
		r.Values[a] = Sentinel
		r.Statuses[a] = solver.Error
	}
	return r
}

// record stores the solved action a and keeps the first minimum.
func (r *Report) record(a int, value float64, witness *mat.Dense) {
	r.Values[a] = value
	r.Statuses[a] = solver.Optimal
	if value < r.Value {
		r.Value, r.Action, r.Witness = value, a, witness
	}
}

// fail stores the status of an unsolved action a.
func (r *Report) fail(a int, st solver.Status) {
	r.Statuses[a] = st
	if st != solver.Infeasible {
		r.Failures++
	}
}

// value returns λ·dᵗ + u_l(𝐱,a).
func value(g *game.Game, q Query, witness mat.Matrix, a int) float64 {
	d := game.Frobenius(witness, g.Nominals[q.Nominal])
	return q.Lambda*math.Pow(d, q.Exponent) + game.Utility(g.Leader, q.X, a)
}
