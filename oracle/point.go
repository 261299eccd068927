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

// Point is the oracle of a zero-radius ball: the only admissible utility is the nominal
// itself, so Γ(τ,j) is the leader utility of the leader-favoured best response under it.
type Point struct {
	Game *game.Game
	Tol  float64
}

func (o Point) Solve(ctx context.Context, q Query) (*Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := o.Game
	if q.Nominal < 0 || q.Nominal >= g.K() {
		return nil, fmt.Errorf("oracle: nominal %d out of range", q.Nominal)
	}
	tol := o.Tol
	if tol <= 0 {
		tol = game.Tol
	}

	_, m := g.Dims()
	nom := g.Nominals[q.Nominal]
	rep := newReport(q.Nominal, m)
	for a := range rep.Statuses {
		rep.Statuses[a] = solver.Infeasible
	}
	a := game.LeaderFavoured(g.Leader, nom, q.X, tol)
	rep.record(a, game.Utility(g.Leader, q.X, a), mat.DenseCopyOf(nom))
	rep.Elapsed = time.Since(start)
	return rep, nil
}
