// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package game holds the two-player Stackelberg game data: a leader utility matrix,
// k nominal follower utility matrices and the nominal distribution ν over them.
//
// Rows index leader actions and columns index follower actions. All payoffs live in [0,1].
package game

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShape        = errors.New("game: shape mismatch")
	ErrPayoff       = errors.New("game: payoff outside [0,1]")
	ErrDistribution = errors.New("game: nominal distribution is not a probability vector")
)

// Game is immutable once validated: callers must not modify the matrices afterwards.
type Game struct {
	Leader   *mat.Dense
	Nominals []*mat.Dense
	Nu       []float64
}

// New builds and validates a game.
func New(leader *mat.Dense, nominals []*mat.Dense, nu []float64) (*Game, error) {
	g := &Game{Leader: leader, Nominals: nominals, Nu: nu}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Dims returns the number of leader actions n and follower actions m.
func (g *Game) Dims() (n, m int) {
	return g.Leader.Dims()
}

// K returns the number of nominals.
func (g *Game) K() int { return len(g.Nominals) }

func (g *Game) Validate() error {
	if g.Leader == nil {
		return fmt.Errorf("%w: missing leader utility", ErrShape)
	}
	n, m := g.Leader.Dims()
	if err := checkPayoff("leader", g.Leader); err != nil {
		return err
	}
	if len(g.Nominals) == 0 {
		return fmt.Errorf("%w: no nominal follower utility", ErrShape)
	}
	if len(g.Nu) != len(g.Nominals) {
		return fmt.Errorf("%w: %d weights for %d nominals", ErrShape, len(g.Nu), len(g.Nominals))
	}
	for j, u := range g.Nominals {
		if u == nil {
			return fmt.Errorf("%w: nominal %d is nil", ErrShape, j)
		}
		if r, c := u.Dims(); r != n || c != m {
			return fmt.Errorf("%w: nominal %d is %d×%d, leader is %d×%d", ErrShape, j, r, c, n, m)
		}
		if err := checkPayoff(fmt.Sprintf("nominal %d", j), u); err != nil {
			return err
		}
	}
	sum := 0.0
	for j, p := range g.Nu {
		if math.IsNaN(p) || p < 0 {
			return fmt.Errorf("%w: ν[%d] = %g", ErrDistribution, j, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: ν sums to %g", ErrDistribution, sum)
	}
	return nil
}

func checkPayoff(name string, u mat.Matrix) error {
	r, c := u.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := u.At(i, j); math.IsNaN(v) || v < 0 || v > 1 {
				return fmt.Errorf("%w: %s[%d][%d] = %g", ErrPayoff, name, i, j, v)
			}
		}
	}
	return nil
}
