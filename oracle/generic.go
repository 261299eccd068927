// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oracle

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/solver"
)

// Generic searches the whole box [0,1]^{n×m} of follower utilities.
//
// For action a it projects the nominal 𝐍 onto the polyhedron of utilities under which a
// is the leader-favoured response to 𝐱:
//
//	𝚖𝚒𝚗 ‖ 𝐔 - 𝐍 ‖²_F   s.t. 𝐔 ∈ [0,1]^{n×m}
//	                         u(𝐱,a) ≥ u(𝐱,a') + margin   a' ∈ B𝐱(a)
//	                         u(𝐱,a) ≥ u(𝐱,a')            otherwise
//
// Since u_l(𝐱,a) does not depend on 𝐔 and λsᵗ is non-decreasing in s for λ ≥ 0, t > 0,
// the projection also minimises λ‖𝐔 - 𝐍‖ᵗ + u_l(𝐱,a) for every exponent t.
type Generic struct {
	Game   *game.Game
	Solver solver.Solver
	// Margin is the strict-preference gap for a' ∈ B𝐱(a) (default 1e-5).
	Margin float64
	// Tol decides membership in B𝐱(a) (default game.Tol).
	Tol       float64
	TimeLimit time.Duration
}

func (o Generic) Solve(ctx context.Context, q Query) (*Report, error) {
	start := time.Now()
	g := o.Game
	if q.Nominal < 0 || q.Nominal >= g.K() {
		return nil, fmt.Errorf("oracle: nominal %d out of range", q.Nominal)
	}
	margin, tol, slv := o.Margin, o.Tol, o.Solver
	if margin <= 0 {
		margin = 1e-5
	}
	if tol <= 0 {
		tol = game.Tol
	}
	if slv == nil {
		slv = solver.LeastSquares{}
	}

	n, m := g.Dims()
	nom := g.Nominals[q.Nominal]
	rep := newReport(q.Nominal, m)

	for a := 0; a < m; a++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model, u := o.projection(nom, q.X, a, margin, tol)
		res, err := slv.Solve(ctx, model)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			rep.fail(a, solver.Error)
			continue
		}
		if res.Status != solver.Optimal {
			rep.fail(a, res.Status)
			continue
		}
		w := mat.NewDense(n, m, nil)
		for i := 0; i < n; i++ {
			for c := 0; c < m; c++ {
				w.Set(i, c, res.Value(u[i*m+c]))
			}
		}
		rep.record(a, value(g, q, w, a), w)
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// projection builds the least-distance model for action a; u holds the variables row-major.
func (o Generic) projection(nom mat.Matrix, x []float64, a int, margin, tol float64) (*solver.Model, []solver.Var) {
	n, m := nom.Dims()
	model := solver.NewModel(fmt.Sprintf("oracle_a%d", a))
	model.TimeLimit = o.TimeLimit

	u := make([]solver.Var, n*m)
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			v := model.AddVar(fmt.Sprintf("u_%d_%d", i, c), 0, 1, solver.Continuous)
			model.AddSquaredDeviation(v, nom.At(i, c), 1)
			u[i*m+c] = v
		}
	}

	preferred := make(map[int]bool)
	for _, b := range game.StrictlyPreferred(o.Game.Leader, x, a, tol) {
		preferred[b] = true
	}
	for b := 0; b < m; b++ {
		if b == a {
			continue
		}
		// ∑ᵢ 𝐱ᵢ(𝐔ᵢₐ - 𝐔ᵢᵦ)
		gap := solver.Expr{}
		for i, xi := range x {
			if xi != 0 {
				gap = gap.Add(u[i*m+a], xi).Add(u[i*m+b], -xi)
			}
		}
		rhs := 0.0
		if preferred[b] {
			rhs = margin
		}
		model.AddConstraint(fmt.Sprintf("br_%d_%d", a, b), gap, solver.GreaterEq, solver.Const(rhs))
	}
	return model, u
}
