// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

var ErrParameter = errors.New("game: invalid generator parameter")

// Payoffs of the normalised Simple Inspection Game before the follower rescaling.
const (
	inspectionCaught = 0.5
	inspectionMissed = 0.0
)

// InspectionActionSize returns C(s,1) + ··· + C(s,v), the number of subsets of
// size 1 to v drawn from a set of size s.
func InspectionActionSize(s, v int) int {
	n := 0
	for j := 1; j <= v; j++ {
		n += combin.Binomial(s, j)
	}
	return n
}

// Subsets enumerates the subsets of {0,···,s-1} with 1 to v elements,
// by increasing size and in colexicographic order within a size.
func Subsets(s, v int) [][]int {
	out := make([][]int, 0, InspectionActionSize(s, v))
	for j := 1; j <= v; j++ {
		group := combin.Combinations(s, j)
		slices.SortFunc(group, func(a, b []int) int {
			for i := len(a) - 1; i >= 0; i-- {
				if a[i] != b[i] {
					return a[i] - b[i]
				}
			}
			return 0
		})
		out = append(out, group...)
	}
	return out
}

func intersects(a, b []int) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

// Inspection builds the Simple Inspection Game over a set of size s: the leader
// (inspector) picks up to p elements and the follower up to q. When the picks intersect
// the leader earns 0.5 and the follower lows[j], otherwise the leader earns 0 and the
// follower highs[j]. One nominal is produced per (lows[j], highs[j]) pair under uniform ν.
func Inspection(s, p, q int, lows, highs []float64) (*Game, error) {
	if s <= 0 || p <= 0 || q <= 0 || p > s || q > s {
		return nil, fmt.Errorf("%w: set size %d, leader %d, follower %d", ErrParameter, s, p, q)
	}
	if len(lows) == 0 || len(lows) != len(highs) {
		return nil, fmt.Errorf("%w: %d low and %d high payoffs", ErrParameter, len(lows), len(highs))
	}
	for j := range lows {
		if lows[j] > highs[j] {
			return nil, fmt.Errorf("%w: nominal %d low payoff %g above high %g", ErrParameter, j, lows[j], highs[j])
		}
	}

	rs, bs := Subsets(s, p), Subsets(s, q)
	n, m := len(rs), len(bs)
	caught := make([]bool, n*m)
	leader := mat.NewDense(n, m, nil)
	for i, r := range rs {
		for a, b := range bs {
			caught[i*m+a] = intersects(r, b)
			if caught[i*m+a] {
				leader.Set(i, a, inspectionCaught)
			} else {
				leader.Set(i, a, inspectionMissed)
			}
		}
	}

	nominals := make([]*mat.Dense, len(lows))
	for j := range nominals {
		u := mat.NewDense(n, m, nil)
		for k, c := range caught {
			if c {
				u.Set(k/m, k%m, lows[j])
			} else {
				u.Set(k/m, k%m, highs[j])
			}
		}
		nominals[j] = u
	}
	return New(leader, nominals, Uniform(len(lows)))
}
