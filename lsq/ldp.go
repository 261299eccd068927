// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

// LDP (Least Distance Programming) solves 𝚖𝚒𝚗 ‖ 𝐱 ‖₂ subject to 𝐆𝐱 ≥ 𝐡.
//   - 𝐆 is m × n column-major matrix with leading dimension mdg (no rank assumption)
//   - 𝐡 ∈ ℝᵐ
//   - 𝐱 ∈ ℝⁿ receives the solution
//
// The problem is reduced to NNLS with 𝐀 = [𝐆 : 𝐡]ᵀ and 𝐛 = [Oₙ : 1].
// Given the NNLS solution 𝐮 with residual 𝐫 = 𝐀𝐮 - 𝐛, the constraints are compatible iff
// ‖ 𝐫 ‖₂ > 0 and then 𝐱 = 𝐆ᵀ𝐮 / (1 - 𝐡ᵀ𝐮) with multipliers 𝛌 = 𝐮 / (1 - 𝐡ᵀ𝐮).
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 23, Algorithm 23.27.
func LDP(m, n int, g []float64, mdg int, h, x []float64, maxIter int) (xnorm float64, mult []float64, st Status) {
	if n <= 0 || len(x) < n {
		return math.NaN(), nil, BadArgument
	}
	if m <= 0 {
		fill(x[:n], zero)
		return zero, nil, Solved
	}
	if mdg < m || len(g) < mdg*(n-1)+m || len(h) < m {
		return math.NaN(), nil, BadArgument
	}

	ld := n + 1
	a := make([]float64, ld*m)
	for i := 0; i < m; i++ {
		ai := a[i*ld : (i+1)*ld]
		for j := 0; j < n; j++ {
			ai[j] = g[i+mdg*j]
		}
		ai[n] = h[i]
	}
	b := make([]float64, ld)
	b[n] = one

	u := make([]float64, m)
	dual := make([]float64, m)
	rnorm, st := NNLS(ld, m, a, ld, b, u, dual, maxIter)
	if st != Solved {
		return math.NaN(), nil, st
	}

	fac := one - dot(m, h, 1, u, 1) // -𝐫ₙ₊₁
	if rnorm <= zero || math.IsNaN(fac) || fac < eps {
		return math.NaN(), nil, Incompatible
	}

	fac = one / fac
	for j := 0; j < n; j++ {
		x[j] = dot(m, g[mdg*j:], 1, u, 1) * fac
	}
	mult = u
	for i := range mult {
		mult[i] *= fac
	}
	return nrm2(n, x, 1), mult, Solved
}
