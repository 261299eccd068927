// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solver is the optimisation boundary: a small model API with linear rows,
// binary variables and separable squared deviations, plus two pure-Go backends.
//
//   - BranchAndBound solves mixed binary linear programs with LP relaxations by simplex.
//   - LeastSquares solves strictly convex separable QPs as least distance programs.
//
// Auto routes a model to the matching backend.
package solver

import (
	"context"
	"errors"
)

var (
	ErrBadModel    = errors.New("solver: malformed model")
	ErrUnsupported = errors.New("solver: model shape not supported by backend")
)

// Solver solves a Model. Implementations are stateless and safe for concurrent use.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Result, error)
}

// Auto dispatches models with squared deviations and no binaries to QP,
// and everything else to MILP.
type Auto struct {
	MILP Solver
	QP   Solver
}

// Default returns Auto with default backends.
func Default() Auto {
	return Auto{MILP: BranchAndBound{}, QP: LeastSquares{}}
}

func (a Auto) Solve(ctx context.Context, m *Model) (*Result, error) {
	if len(m.devs) > 0 && !m.HasBinary() {
		if a.QP == nil {
			return LeastSquares{}.Solve(ctx, m)
		}
		return a.QP.Solve(ctx, m)
	}
	if a.MILP == nil {
		return BranchAndBound{}.Solve(ctx, m)
	}
	return a.MILP.Solve(ctx, m)
}
