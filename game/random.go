// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Random draws a synthetic game with uniform payoffs in [0,1] and a normalised uniform ν.
func Random(rng *rand.Rand, n, m, k int) *Game {
	draw := func() *mat.Dense {
		data := make([]float64, n*m)
		for i := range data {
			data[i] = rng.Float64()
		}
		return mat.NewDense(n, m, data)
	}
	g := &Game{Leader: draw()}
	g.Nominals = make([]*mat.Dense, k)
	g.Nu = make([]float64, k)
	sum := 0.0
	for j := range g.Nominals {
		g.Nominals[j] = draw()
		g.Nu[j] = rng.Float64() + 1e-12
		sum += g.Nu[j]
	}
	for j := range g.Nu {
		g.Nu[j] /= sum
	}
	return g
}

// Uniform returns the uniform distribution over k nominals.
func Uniform(k int) []float64 {
	nu := make([]float64, k)
	for j := range nu {
		nu[j] = 1 / float64(k)
	}
	return nu
}
