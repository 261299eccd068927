// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/curioloop/stackelberg/lsq"
)

// LeastSquares solves continuous models whose objective is
//
//	𝚖𝚒𝚗 𝐜ᵀ𝐱 + ∑ 𝐰ₖ(𝐱ₖ - 𝐭ₖ)²
//
// where every variable carries a positive total deviation weight.
//
// Folding the deviations of variable v gives 𝐖ᵥ(𝐱ᵥ - 𝐭'ᵥ)² + const with
// 𝐖ᵥ = ∑𝐰ₖ and 𝐭'ᵥ = (∑𝐰ₖ𝐭ₖ - 𝐜ᵥ/2)/𝐖ᵥ. The substitution 𝐲ᵥ = √𝐖ᵥ(𝐱ᵥ - 𝐭'ᵥ)
// turns the problem into 𝚖𝚒𝚗 ‖ 𝐲 ‖₂ subject to 𝐆𝐲 ≥ 𝐡 which is solved by lsq.LDP.
type LeastSquares struct {
	// MaxIter bounds the NNLS iterations (default five times the number of rows).
	MaxIter int
}

func (l LeastSquares) Solve(ctx context.Context, m *Model) (*Result, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.HasBinary() {
		return nil, fmt.Errorf("%w: least squares accepts continuous variables only", ErrUnsupported)
	}
	if m.sense != Minimize {
		return nil, fmt.Errorf("%w: least squares minimises only", ErrUnsupported)
	}

	n := len(m.vars)
	weight := make([]float64, n)
	target := make([]float64, n)
	for _, d := range m.devs {
		weight[d.Var] += d.Weight
		target[d.Var] += d.Weight * d.Target
	}
	c, _ := m.linear()
	scale := make([]float64, n) // √𝐖
	for v := range weight {
		if !(weight[v] > 0) {
			return nil, fmt.Errorf("%w: variable %q has no squared deviation", ErrUnsupported, m.vars[v].name)
		}
		target[v] = (target[v] - c[v]/2) / weight[v]
		scale[v] = math.Sqrt(weight[v])
	}

	// Rows of 𝐆𝐲 ≥ 𝐡, stored row-wise then packed column-major.
	var (
		rows [][]float64
		h    []float64
	)
	for _, con := range m.cons {
		row := make([]float64, n)
		rhs := con.RHS
		for _, t := range con.Terms {
			row[t.Var] += t.Coef / scale[t.Var]
			rhs -= t.Coef * target[t.Var]
		}
		if con.Rel != LessEq {
			rows, h = append(rows, row), append(h, rhs)
		}
		if con.Rel != GreaterEq {
			neg := make([]float64, n)
			for j, a := range row {
				neg[j] = -a
			}
			rows, h = append(rows, neg), append(h, -rhs)
		}
	}
	for v, vr := range m.vars {
		if !math.IsInf(vr.lo, -1) {
			row := make([]float64, n)
			row[v] = 1
			rows, h = append(rows, row), append(h, scale[v]*(vr.lo-target[v]))
		}
		if !math.IsInf(vr.up, 1) {
			row := make([]float64, n)
			row[v] = -1
			rows, h = append(rows, row), append(h, -scale[v]*(vr.up-target[v]))
		}
	}

	mr := len(rows)
	g := make([]float64, mr*n)
	for i, row := range rows {
		for j, a := range row {
			g[i+mr*j] = a
		}
	}

	maxIter := l.MaxIter
	if maxIter <= 0 {
		maxIter = 5 * mr
	}

	y := make([]float64, n)
	_, _, st := lsq.LDP(mr, n, g, mr, h, y, maxIter)

	res := newResult(m)
	res.Nodes = 1
	switch st {
	case lsq.Solved:
		x := make([]float64, n)
		for v := range x {
			x[v] = target[v] + y[v]/scale[v]
		}
		res.Status = Optimal
		res.Values = x
		res.Objective = m.Evaluate(x)
		res.Bound = res.Objective
	case lsq.Incompatible:
		res.Status = Infeasible
	default:
		res.Status = Error
	}
	res.Elapsed = time.Since(start)
	return res, nil
}
