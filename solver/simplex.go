// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	errRelaxInfeasible = errors.New("solver: relaxation infeasible")
	errRelaxUnbounded  = errors.New("solver: relaxation unbounded")
	errRelaxStalled    = errors.New("solver: relaxation iteration limit")
	errRelaxStopped    = errors.New("solver: relaxation stopped")
)

// degenerate pivots in a row before pricing falls back to Bland's rule.
const blandAfter = 50

// tableau is a dense bounded-variable primal simplex for
//
//	𝚖𝚒𝚗 𝐜ᵀ𝐱  s.t. 𝐀𝐱 = 𝐛, 𝐥 ≤ 𝐱 ≤ 𝐮
//
// A nonbasic variable rests on one of its bounds, or at zero when it is free.
// Row i of t holds row i of 𝐁⁻¹𝐀 and beta[i] the value of its basic variable head[i].
type tableau struct {
	t      *mat.Dense
	beta   []float64
	d      []float64 // reduced costs
	lo, up []float64
	x      []float64 // nonbasic values
	head   []int
	pos    []int // row of a basic variable, -1 otherwise

	tol   float64 // reduced cost and pivot tolerance
	stop  func() bool
	iter  int
	limit int
}

// price recomputes the reduced costs 𝐝 = 𝐜 - 𝐜_Bᵀ𝐁⁻¹𝐀.
func (s *tableau) price(c []float64) {
	copy(s.d, c)
	for i, h := range s.head {
		if ch := c[h]; ch != 0 {
			floats.AddScaled(s.d, -ch, s.t.RawRowView(i))
		}
	}
}

func (s *tableau) value(j int) float64 {
	if r := s.pos[j]; r >= 0 {
		return s.beta[r]
	}
	return s.x[j]
}

// entering returns the improving nonbasic column and its direction, or -1 at optimality.
func (s *tableau) entering(bland bool) (int, float64) {
	q, dir, best := -1, 0.0, 0.0
	for j, dj := range s.d {
		if s.pos[j] >= 0 || s.lo[j] == s.up[j] {
			continue
		}
		var sc, dr float64
		switch {
		case dj < -s.tol && s.x[j] < s.up[j]:
			sc, dr = -dj, 1
		case dj > s.tol && s.x[j] > s.lo[j]:
			sc, dr = dj, -1
		default:
			continue
		}
		if bland {
			return j, dr
		}
		if sc > best {
			q, dir, best = j, dr, sc
		}
	}
	return q, dir
}

// leaving runs the ratio test for column q moved in direction dir. It returns the
// blocking row (-1 for a bound flip of q itself) and the step length.
func (s *tableau) leaving(q int, dir float64, bland bool) (int, float64) {
	step := s.up[q] - s.lo[q]
	if math.IsNaN(step) {
		step = math.Inf(1)
	}
	r := -1
	lim := make([]float64, len(s.beta))
	for i := range s.beta {
		lim[i] = math.Inf(1)
		a := dir * s.t.At(i, q)
		h := s.head[i]
		switch {
		case a > s.tol && !math.IsInf(s.lo[h], -1):
			lim[i] = math.Max(0, (s.beta[i]-s.lo[h])/a)
		case a < -s.tol && !math.IsInf(s.up[h], 1):
			lim[i] = math.Max(0, (s.up[h]-s.beta[i])/-a)
		}
		step = math.Min(step, lim[i])
	}
	if math.IsInf(step, 1) {
		return -1, step
	}
	// among the rows blocking at the step, prefer the largest pivot
	tie := s.tol * math.Max(1, step)
	for i, li := range lim {
		if li > step+tie {
			continue
		}
		switch {
		case r < 0:
			r = i
		case bland:
			if s.head[i] < s.head[r] {
				r = i
			}
		case math.Abs(s.t.At(i, q)) > math.Abs(s.t.At(r, q)):
			r = i
		}
	}
	if r >= 0 && step >= s.up[q]-s.lo[q] {
		// the entering variable reaches its own bound first
		r = -1
	}
	return r, step
}

// pivot moves q into the basis at row r.
func (s *tableau) pivot(r, q int) {
	row := s.t.RawRowView(r)
	floats.Scale(1/row[q], row)
	m, _ := s.t.Dims()
	for i := 0; i < m; i++ {
		if i == r {
			continue
		}
		if f := s.t.At(i, q); f != 0 {
			floats.AddScaled(s.t.RawRowView(i), -f, row)
		}
	}
	if f := s.d[q]; f != 0 {
		floats.AddScaled(s.d, -f, row)
	}
	h := s.head[r]
	s.pos[h], s.pos[q], s.head[r] = -1, r, q
}

// run iterates until no reduced cost improves the objective priced by c.
func (s *tableau) run(c []float64) error {
	s.price(c)
	s.iter = 0
	degenerate := 0
	for {
		if s.iter >= s.limit {
			return errRelaxStalled
		}
		if s.stop != nil && s.stop() {
			return errRelaxStopped
		}
		s.iter++

		bland := degenerate > blandAfter
		q, dir := s.entering(bland)
		if q < 0 {
			return nil
		}
		r, step := s.leaving(q, dir, bland)
		if math.IsInf(step, 1) {
			return errRelaxUnbounded
		}

		if step > 0 {
			m, _ := s.t.Dims()
			for i := 0; i < m; i++ {
				s.beta[i] -= dir * step * s.t.At(i, q)
			}
		}
		enter := s.x[q] + dir*step
		if r < 0 {
			s.x[q] = enter
			degenerate = 0
			continue
		}

		h := s.head[r]
		if dir*s.t.At(r, q) > 0 {
			s.x[h] = s.lo[h]
		} else {
			s.x[h] = s.up[h]
		}
		s.beta[r] = enter
		s.pivot(r, q)

		if step <= s.tol {
			degenerate++
		} else {
			degenerate = 0
		}
	}
}
