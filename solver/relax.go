// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// relaxation solves the LP obtained from a model by replacing its bounds with lo and up.
//
// Every row gets a slack with bounds [0,∞), (-∞,0] or [0,0] so that 𝐚ᵀ𝐱 + s = b.
// Structural variables start on a finite bound (zero when free) and a row whose slack
// cannot absorb the residual starts on an artificial variable removed by phase one.
type relaxation struct {
	model *Model
	c     []float64 // minimisation costs
	cst   float64
	tol   float64

	// pivots per phase, 50·(rows+columns) when zero
	maxIter int
	// polled once per pivot
	stop    func() bool
}

func newRelaxation(m *Model, tol float64) *relaxation {
	c, cst := m.linear()
	return &relaxation{model: m, c: c, cst: cst, tol: tol}
}

// resting is the value of a nonbasic variable.
func resting(lo, up float64) float64 {
	switch {
	case !math.IsInf(lo, -1):
		return lo
	case !math.IsInf(up, 1):
		return up
	}
	return 0
}

// solve returns the relaxed minimisation objective and point.
func (r *relaxation) solve(lo, up []float64) (float64, []float64, error) {
	n := len(lo)
	feaTol := 1e-7

	x0 := make([]float64, n)
	for v := range x0 {
		x0[v] = resting(lo[v], up[v])
	}

	type row struct {
		a          []float64
		slo, sup   float64
		resid      float64
		artificial bool
	}
	var rows []row
	for _, c := range r.model.cons {
		a := make([]float64, n)
		nz := false
		for _, t := range c.Terms {
			a[t.Var] += t.Coef
		}
		for v, av := range a {
			if av != 0 && lo[v] != up[v] {
				nz = true
			}
		}
		rw := row{a: a, resid: c.RHS}
		for v, av := range a {
			rw.resid -= av * x0[v]
		}
		switch c.Rel {
		case LessEq:
			rw.slo, rw.sup = 0, math.Inf(1)
		case GreaterEq:
			rw.slo, rw.sup = math.Inf(-1), 0
		}
		if !nz {
			// every term is fixed: the row is a feasibility check
			if rw.resid < rw.slo-feaTol || rw.resid > rw.sup+feaTol {
				return math.NaN(), nil, errRelaxInfeasible
			}
			continue
		}
		rw.artificial = rw.resid < rw.slo-feaTol || rw.resid > rw.sup+feaTol
		rows = append(rows, rw)
	}

	m := len(rows)
	if m == 0 {
		return r.bounded(lo, up, x0)
	}
	na := 0
	for _, rw := range rows {
		if rw.artificial {
			na++
		}
	}
	cols := n + m + na
	limit := r.maxIter
	if limit <= 0 {
		limit = 50 * (m + cols)
	}
	s := &tableau{
		t:     mat.NewDense(m, cols, nil),
		beta:  make([]float64, m),
		d:     make([]float64, cols),
		lo:    make([]float64, cols),
		up:    make([]float64, cols),
		x:     make([]float64, cols),
		head:  make([]int, m),
		pos:   make([]int, cols),
		tol:   r.tol,
		stop:  r.stop,
		limit: limit,
	}
	copy(s.lo, lo)
	copy(s.up, up)
	copy(s.x, x0)
	for j := range s.pos {
		s.pos[j] = -1
	}

	phase1 := make([]float64, cols)
	art := n + m
	for i, rw := range rows {
		sl := n + i
		s.lo[sl], s.up[sl] = rw.slo, rw.sup
		sign := 1.0
		if rw.artificial {
			// the slack rests at zero and the artificial carries |resid|
			if rw.resid < 0 {
				sign = -1
			}
			s.lo[art], s.up[art] = 0, math.Inf(1)
			s.t.Set(i, art, 1)
			s.head[i], s.pos[art] = art, i
			s.beta[i] = math.Abs(rw.resid)
			phase1[art] = 1
			art++
		} else {
			s.head[i], s.pos[sl] = sl, i
			s.beta[i] = rw.resid
		}
		for v, av := range rw.a {
			s.t.Set(i, v, sign*av)
		}
		s.t.Set(i, sl, sign)
	}

	if na > 0 {
		if err := s.run(phase1); err != nil {
			if errors.Is(err, errRelaxUnbounded) {
				// phase one is bounded below by zero
				err = errRelaxStalled
			}
			return math.NaN(), nil, err
		}
		infeas := 0.0
		for j := n + m; j < cols; j++ {
			infeas += s.value(j)
		}
		if infeas > feaTol*float64(m) {
			return math.NaN(), nil, errRelaxInfeasible
		}
		for j := n + m; j < cols; j++ {
			s.lo[j], s.up[j], s.x[j] = 0, 0, 0
		}
	}

	c := make([]float64, cols)
	copy(c, r.c)
	if err := s.run(c); err != nil {
		return math.Inf(-1), nil, err
	}

	xs := make([]float64, n)
	for v := range xs {
		xs[v] = math.Min(math.Max(s.value(v), lo[v]), up[v])
	}
	return r.objective(xs), xs, nil
}

// bounded solves a relaxation without rows: every variable sits on its cheaper bound.
func (r *relaxation) bounded(lo, up, x []float64) (float64, []float64, error) {
	for v, cv := range r.c {
		switch {
		case cv > 0:
			x[v] = lo[v]
		case cv < 0:
			x[v] = up[v]
		}
		if math.IsInf(x[v], 0) {
			return math.Inf(-1), nil, errRelaxUnbounded
		}
	}
	return r.objective(x), x, nil
}

func (r *relaxation) objective(x []float64) float64 {
	f := r.cst
	for v, cv := range r.c {
		f += cv * x[v]
	}
	return f
}
