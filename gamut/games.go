// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gamut

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
)

// Line offsets of the first outcome in files written by the supported generators.
const (
	CournotOffset    = 14
	InspectionOffset = 10
)

var normalize = []string{"-normalize", "-min_payoff", "0", "-max_payoff", "1"}

// InspectionArgs are the arguments of a SimpleInspectionGame over a set of size s
// where the inspector picks up to p elements and the evader up to q.
func InspectionArgs(s, p, q int) []string {
	args := append([]string{"-g", "SimpleInspectionGame"}, normalize...)
	return append(args,
		"-set_size", strconv.Itoa(s),
		"-max_r", strconv.Itoa(p),
		"-max_b", strconv.Itoa(q))
}

// CournotParams are the linear demand and cost coefficients of a CournotDuopoly:
// inverse demand 75 + Demand·(y₁+y₂) and costs Cost[0] + Cost[1]·yᵢ.
type CournotParams struct {
	Actions int
	Demand  int
	Cost1   [2]int
	Cost2   [2]int
}

// RandomCournot draws Demand ∈ [-9,-1], Cost1 ∈ [10,39]×[10,19] and Cost2 ∈ [2,19]×[1,14].
func RandomCournot(rng *rand.Rand, actions int) CournotParams {
	return CournotParams{
		Actions: actions,
		Demand:  -(1 + rng.IntN(9)),
		Cost1:   [2]int{10 + rng.IntN(30), 10 + rng.IntN(10)},
		Cost2:   [2]int{2 + rng.IntN(18), 1 + rng.IntN(14)},
	}
}

func CournotArgs(p CournotParams) []string {
	coefs := func(c0, c1 int) []string {
		return []string{"[-degree", "1", "-coefs", strconv.Itoa(c0), strconv.Itoa(c1) + "]"}
	}
	args := append([]string{"-g", "CournotDuopoly"}, normalize...)
	args = append(args, "-actions", strconv.Itoa(p.Actions))
	args = append(args, "-p_func", "PolyFunction", "-p_params")
	args = append(args, coefs(75, p.Demand)...)
	args = append(args, "-cost_func1", "IncreasingPoly", "-cost_params1")
	args = append(args, coefs(p.Cost1[0], p.Cost1[1])...)
	args = append(args, "-cost_func2", "IncreasingPoly", "-cost_params2")
	return append(args, coefs(p.Cost2[0], p.Cost2[1])...)
}

// InspectionGame generates the normalised Simple Inspection Game once and derives one
// nominal per (lows[j], highs[j]) by mapping follower payoff 0.5 to lows[j] and 1 to highs[j].
// The nominal distribution is uniform.
func InspectionGame(ctx context.Context, src Source, s, p, q int, lows, highs []float64) (*game.Game, error) {
	if len(lows) == 0 || len(lows) != len(highs) {
		return nil, fmt.Errorf("%w: %d low and %d high payoffs", game.ErrParameter, len(lows), len(highs))
	}
	data, err := src.Generate(ctx, InspectionArgs(s, p, q))
	if err != nil {
		return nil, err
	}
	pay, err := Parse(data)
	if err != nil {
		return nil, err
	}
	n, m := pay.Leader.Dims()
	if n != game.InspectionActionSize(s, p) || m != game.InspectionActionSize(s, q) {
		return nil, fmt.Errorf("%w: %d×%d game for set size %d", ErrFormat, n, m, s)
	}

	nominals := make([]*mat.Dense, len(lows))
	for j := range nominals {
		u := mat.NewDense(n, m, nil)
		u.Apply(func(_, _ int, v float64) float64 {
			switch v {
			case 0.5:
				return lows[j]
			case 1:
				return highs[j]
			}
			return v
		}, pay.Follower)
		nominals[j] = u
	}
	return game.New(pay.Leader, nominals, game.Uniform(len(lows)))
}

// CournotGame generates one CournotDuopoly per nominal, sharing the leader cost and
// drawing a fresh follower cost each time. The leader matrix of the last run is kept
// and the nominal distribution is uniform.
func CournotGame(ctx context.Context, src Source, rng *rand.Rand, actions, k int) (*game.Game, error) {
	if actions <= 0 || k <= 0 {
		return nil, fmt.Errorf("%w: %d actions, %d nominals", game.ErrParameter, actions, k)
	}
	base := RandomCournot(rng, actions)
	var leader *mat.Dense
	nominals := make([]*mat.Dense, k)
	for j := range nominals {
		p := base
		p.Cost2 = RandomCournot(rng, actions).Cost2
		data, err := src.Generate(ctx, CournotArgs(p))
		if err != nil {
			return nil, err
		}
		pay, err := Parse(data)
		if err != nil {
			return nil, err
		}
		if n, m := pay.Leader.Dims(); n != actions || m != actions {
			return nil, fmt.Errorf("%w: %d×%d game for %d actions", ErrFormat, n, m, actions)
		}
		leader, nominals[j] = pay.Leader, pay.Follower
	}
	return game.New(leader, nominals, game.Uniform(k))
}
