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

// Bounds are the admissible ranges of the two follower payoffs of the Inspection Game.
type Bounds struct {
	LowMin  float64 `yaml:"low_min" validate:"gte=0,lte=1"`
	LowMax  float64 `yaml:"low_max" validate:"gte=0,lte=1,gtefield=LowMin"`
	HighMin float64 `yaml:"high_min" validate:"gte=0,lte=1"`
	HighMax float64 `yaml:"high_max" validate:"gte=0,lte=1,gtefield=HighMin"`
}

// DefaultBounds are low ∈ [0.3,0.6] and high ∈ [0.7,1].
func DefaultBounds() Bounds {
	return Bounds{LowMin: 0.3, LowMax: 0.6, HighMin: 0.7, HighMax: 1}
}

// Inspection restricts the follower utilities to the Inspection Game structure
// 𝐔 = low + (high - low)𝐒, where the 0/1 skeleton 𝐒 marks the cells in which the
// follower escapes inspection. Only (low, high) are searched:
//
//	𝚖𝚒𝚗 c₀(low - lowⱼ)² + c₁(high - highⱼ)²
//	s.t. (high - low)(sₐ - sₐ') ≥ margin   a' ∈ B𝐱(a)
//	     (high - low)(sₐ - sₐ') ≥ 0        otherwise
//
// with sₐ = 𝐱ᵀ𝐒[:,a], (lowⱼ, highⱼ) the extreme payoffs of nominal j and c₀, c₁ the
// number of zeros and ones in 𝐒, so that the objective equals ‖ 𝐔 - 𝐍ⱼ ‖²_F.
type Inspection struct {
	Game     *game.Game
	Solver   solver.Solver
	Skeleton *mat.Dense
	Bounds   Bounds
	// Margin is the strict-preference gap for a' ∈ B𝐱(a) (default 1e-3).
	Margin    float64
	Tol       float64
	TimeLimit time.Duration
}

// NewInspection derives the skeleton from nominal 0: cells at its minimum payoff map to 0, all others to 1.
func NewInspection(g *game.Game, slv solver.Solver, bounds Bounds) *Inspection {
	return &Inspection{
		Game:     g,
		Solver:   slv,
		Skeleton: Skeleton(g.Nominals[0]),
		Bounds:   bounds,
	}
}

// Skeleton returns the 0/1 pattern of u: 0 where u attains its minimum, 1 elsewhere.
func Skeleton(u mat.Matrix) *mat.Dense {
	n, m := u.Dims()
	lo, _ := extremes(u)
	s := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if u.At(i, j) != lo {
				s.Set(i, j, 1)
			}
		}
	}
	return s
}

func extremes(u mat.Matrix) (lo, hi float64) {
	return mat.Min(u), mat.Max(u)
}

func (o *Inspection) Solve(ctx context.Context, q Query) (*Report, error) {
	start := time.Now()
	g := o.Game
	if q.Nominal < 0 || q.Nominal >= g.K() {
		return nil, fmt.Errorf("oracle: nominal %d out of range", q.Nominal)
	}
	margin, tol, slv := o.Margin, o.Tol, o.Solver
	if margin <= 0 {
		margin = 1e-3
	}
	if tol <= 0 {
		tol = game.Tol
	}
	if slv == nil {
		slv = solver.LeastSquares{}
	}

	_, m := g.Dims()
	nom := g.Nominals[q.Nominal]
	lowJ, highJ := extremes(nom)
	c0, c1 := o.counts()
	// sₐ = 𝐱ᵀ𝐒[:,a]
	s := game.Utilities(o.Skeleton, q.X)

	rep := newReport(q.Nominal, m)
	for a := 0; a < m; a++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		model := solver.NewModel(fmt.Sprintf("inspection_a%d", a))
		model.TimeLimit = o.TimeLimit
		low := model.AddVar("low", o.Bounds.LowMin, o.Bounds.LowMax, solver.Continuous)
		high := model.AddVar("high", o.Bounds.HighMin, o.Bounds.HighMax, solver.Continuous)
		model.AddSquaredDeviation(low, lowJ, c0)
		model.AddSquaredDeviation(high, highJ, c1)

		preferred := make(map[int]bool)
		for _, b := range game.StrictlyPreferred(g.Leader, q.X, a, tol) {
			preferred[b] = true
		}
		for b := 0; b < m; b++ {
			if b == a {
				continue
			}
			diff := s[a] - s[b]
			if diff == 0 && !preferred[b] {
				continue
			}
			rhs := 0.0
			if preferred[b] {
				rhs = margin
			}
			model.AddConstraint(fmt.Sprintf("br_%d_%d", a, b),
				solver.Expr{}.Add(high, diff).Add(low, -diff), solver.GreaterEq, solver.Const(rhs))
		}

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
		w := o.Witness(res.Value(low), res.Value(high))
		rep.record(a, value(g, q, w, a), w)
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// Witness returns low + (high - low)𝐒.
func (o *Inspection) Witness(low, high float64) *mat.Dense {
	n, m := o.Skeleton.Dims()
	w := mat.NewDense(n, m, nil)
	w.Apply(func(i, j int, v float64) float64 {
		return low + (high-low)*v
	}, o.Skeleton)
	return w
}

// counts returns the number of zeros and ones of the skeleton, each at least one
// so that both payoffs stay strictly convex in the objective. Only an all-zero
// skeleton hits the floor: high then appears in no row and not in the witness, so
// the objective exceeds ‖ 𝐔 - 𝐍ⱼ ‖²_F by a term that leaves low and the witness unchanged.
func (o *Inspection) counts() (c0, c1 float64) {
	n, m := o.Skeleton.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if o.Skeleton.At(i, j) == 0 {
				c0++
			} else {
				c1++
			}
		}
	}
	return max(c0, 1), max(c1, 1)
}
