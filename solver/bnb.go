// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// BranchAndBound solves mixed binary linear programs by depth-first branch-and-bound
// over simplex relaxations. Model.TimeLimit and the context are polled on every pivot:
// on expiry the incumbent (if any) is returned with status TimeLimit.
//
// A node whose relaxation fails (iteration limit, or unbounded below a bounded parent)
// is skipped and its subtree counts as open, so the search ends with TimeLimit when an
// incumbent exists and with Error otherwise.
type BranchAndBound struct {
	// Tol is the simplex reduced-cost and pivot tolerance (default 1e-9).
	Tol float64
	// IntTol is the distance to 0 or 1 at which a binary counts as integral (default 1e-6).
	IntTol float64
	// MaxNodes bounds the number of relaxations (default 1e5), reaching it behaves like the time limit.
	MaxNodes int
	// MaxPivots bounds the simplex pivots of each relaxation phase (default 50·(rows+columns)).
	MaxPivots int
}

func (b BranchAndBound) Solve(ctx context.Context, m *Model) (*Result, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(m.devs) > 0 {
		return nil, fmt.Errorf("%w: branch-and-bound accepts linear objectives only", ErrUnsupported)
	}

	e := newBBEngine(b, m)
	if m.TimeLimit > 0 {
		e.useDeadline = true
		e.deadline = start.Add(m.TimeLimit)
	}
	e.relax.maxIter = b.MaxPivots
	e.relax.stop = func() bool {
		return ctx.Err() != nil || (e.useDeadline && time.Now().After(e.deadline))
	}
	e.search(ctx, e.rootLo(), e.rootUp(), math.Inf(-1))

	res := newResult(m)
	res.Nodes = e.nodes
	res.Bound = e.bound()
	if e.foundAny {
		res.Values = e.best
		res.Objective = m.Evaluate(e.best)
	}
	switch {
	case e.stopped, e.foundAny && e.failure != nil:
		res.Status = TimeLimit
	case e.foundAny:
		res.Status = Optimal
		res.Bound = res.Objective
	case e.unbounded:
		res.Status = Unbounded
	case e.failure != nil:
		res.Status = Error
	default:
		res.Status = Infeasible
	}
	res.Elapsed = time.Since(start)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// bbEngine holds the search state of one solve.
type bbEngine struct {
	model    *Model
	relax    *relaxation
	intTol   float64
	maxNodes int

	useDeadline bool
	deadline    time.Time

	nodes     int
	stopped   bool
	unbounded bool

	// first relaxation failure, the remaining ones are only counted
	failure  error
	failures int

	// incumbent in minimisation form
	best     []float64
	bestCost float64
	foundAny bool
	// smallest bound of the subtrees abandoned on stop
	openBound float64
}

func newBBEngine(b BranchAndBound, m *Model) *bbEngine {
	tol, intTol, maxNodes := b.Tol, b.IntTol, b.MaxNodes
	if tol <= 0 {
		tol = 1e-9
	}
	if intTol <= 0 {
		intTol = 1e-6
	}
	if maxNodes <= 0 {
		maxNodes = 100000
	}
	return &bbEngine{
		model:     m,
		relax:     newRelaxation(m, tol),
		intTol:    intTol,
		maxNodes:  maxNodes,
		bestCost:  math.Inf(1),
		openBound: math.Inf(1),
	}
}

func (e *bbEngine) rootLo() []float64 {
	lo := make([]float64, len(e.model.vars))
	for i, v := range e.model.vars {
		lo[i] = v.lo
	}
	return lo
}

func (e *bbEngine) rootUp() []float64 {
	up := make([]float64, len(e.model.vars))
	for i, v := range e.model.vars {
		up[i] = v.up
	}
	return up
}

// bound returns the proven bound in the model's own sense.
func (e *bbEngine) bound() float64 {
	b := math.Min(e.bestCost, e.openBound)
	if e.model.sense == Maximize {
		return -b
	}
	return b
}

func (e *bbEngine) halt(ctx context.Context) bool {
	if e.stopped {
		return true
	}
	if ctx.Err() != nil || e.nodes >= e.maxNodes ||
		(e.useDeadline && time.Now().After(e.deadline)) {
		e.stopped = true
	}
	return e.stopped
}

// search explores the subtree with bounds lo and up below a parent relaxation of value parent.
func (e *bbEngine) search(ctx context.Context, lo, up []float64, parent float64) {
	if e.halt(ctx) {
		e.openBound = math.Min(e.openBound, parent)
		return
	}
	e.nodes++

	f, x, err := e.relax.solve(lo, up)
	switch {
	case err == nil:
	case errors.Is(err, errRelaxInfeasible):
		return
	case errors.Is(err, errRelaxStopped):
		e.stopped = true
		e.openBound = math.Min(e.openBound, parent)
		return
	case errors.Is(err, errRelaxUnbounded) && math.IsInf(parent, -1):
		e.unbounded = true
		return
	default:
		// a subset of a bounded relaxation cannot be unbounded
		e.fail(fmt.Errorf("node %d: %w", e.nodes, err))
		e.openBound = math.Min(e.openBound, parent)
		return
	}
	if f >= e.bestCost-e.relax.tol*math.Max(1, math.Abs(e.bestCost)) {
		return
	}

	// Branch on the most fractional binary.
	branch, frac := -1, 0.0
	for i, v := range e.model.vars {
		if v.kind != Binary || lo[i] == up[i] {
			continue
		}
		if d := math.Min(x[i], 1-x[i]); d > e.intTol && d > frac {
			branch, frac = i, d
		}
	}
	if branch < 0 {
		for i, v := range e.model.vars {
			if v.kind == Binary {
				x[i] = math.Round(x[i])
			}
		}
		e.best, e.bestCost, e.foundAny = x, f, true
		return
	}

	first := 0.0
	if x[branch] >= 0.5 {
		first = 1
	}
	for _, val := range [2]float64{first, 1 - first} {
		clo := append([]float64(nil), lo...)
		cup := append([]float64(nil), up...)
		clo[branch], cup[branch] = val, val
		e.search(ctx, clo, cup, f)
	}
}

func (e *bbEngine) fail(err error) {
	if e.failure == nil {
		e.failure = err
	}
	e.failures++
}
