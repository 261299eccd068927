// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import "gonum.org/v1/gonum/mat"

// Tol absorbs LP round-off when comparing mixed-strategy utilities.
const Tol = 1e-9

// Utility returns u(𝐱,a) = ∑ᵢ 𝐱ᵢ𝐔ᵢₐ, the utility of follower action a against leader mixed strategy 𝐱.
func Utility(u mat.Matrix, x []float64, a int) float64 {
	s := 0.0
	for i, xi := range x {
		s += xi * u.At(i, a)
	}
	return s
}

// Utilities returns 𝐔ᵀ𝐱, the utility of every follower action.
func Utilities(u mat.Matrix, x []float64) []float64 {
	_, m := u.Dims()
	out := mat.NewVecDense(m, nil)
	out.MulVec(u.T(), mat.NewVecDense(len(x), x))
	return out.RawVector().Data
}

// StrictlyPreferred returns B𝐱(a): the follower actions a' the leader strictly prefers
// to a, i.e. u_l(𝐱,a') > u_l(𝐱,a) + tol.
func StrictlyPreferred(leader mat.Matrix, x []float64, a int, tol float64) []int {
	ul := Utilities(leader, x)
	var out []int
	for b, v := range ul {
		if v > ul[a]+tol {
			out = append(out, b)
		}
	}
	return out
}

// BestResponses returns every follower action within tol of the best utility under u.
func BestResponses(u mat.Matrix, x []float64, tol float64) []int {
	uf := Utilities(u, x)
	best := uf[0]
	for _, v := range uf[1:] {
		best = max(best, v)
	}
	var out []int
	for a, v := range uf {
		if v >= best-tol {
			out = append(out, a)
		}
	}
	return out
}

// LeaderFavoured returns the follower best response that maximises the leader's utility,
// the strong Stackelberg tie-break. Ties on the leader side go to the lowest index.
func LeaderFavoured(leader, u mat.Matrix, x []float64, tol float64) int {
	ul := Utilities(leader, x)
	pick := -1
	for _, a := range BestResponses(u, x, tol) {
		if pick < 0 || ul[a] > ul[pick] {
			pick = a
		}
	}
	return pick
}
