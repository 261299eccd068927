// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

// NNLS (Non-Negative Least-Squares) solves 𝚖𝚒𝚗 ‖ 𝐀𝐱 - 𝐛 ‖₂ subject to 𝐱 ≥ 0 with the active-set method.
//   - 𝐀 is m × n column-major matrix (m ≥ n or m < n are both permitted)
//   - 𝐛 ∈ ℝᵐ
//   - 𝐰 ∈ ℝⁿ receives the dual vector 𝐀ᵀ(𝐛 - 𝐀𝐱)
//
// Indices are split in a passive set ℙ (free, 𝐱ⱼ > 0) and an active set ℤ (𝐱ⱼ = 0).
// Each outer step moves the ℤ index with the largest dual into ℙ, each inner step solves the
// unconstrained sub-problem on ℙ by QR and walks back along the segment until feasible.
//
// Both 𝐀 and 𝐛 are overwritten with 𝐐𝐀 and 𝐐𝐛.
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
//	Chapters 23, Algorithm 23.10.
func NNLS(m, n int, a []float64, mda int, b, x, w []float64, maxIter int) (rnorm float64, st Status) {
	if m <= 0 || n <= 0 || mda < m ||
		len(a) < mda*(n-1)+m || len(b) < m || len(x) < n || len(w) < n {
		return math.NaN(), BadArgument
	}
	if maxIter <= 0 {
		maxIter = 3 * n
	}

	s := nnls{
		m: m, n: n, a: a, mda: mda,
		b: b[:m:m], x: x[:n:n], w: w[:n:n],
		z:     make([]float64, m),
		index: make([]int, n),
	}
	for i := range s.index {
		s.index[i] = i
	}
	fill(s.x, zero)

	st = s.run(maxIter)
	if s.np < m {
		rnorm = nrm2(m-s.np, s.b[s.np:], 1)
	} else {
		fill(s.w, zero)
	}
	return
}

// nnls holds the active-set state. index[:np] is ℙ in pivot order, index[np:] is ℤ.
type nnls struct {
	m, n  int
	a     []float64
	mda   int
	b     []float64
	x, w  []float64
	z     []float64
	index []int
	np    int
}

func (s *nnls) col(j int) []float64 {
	off := s.mda * j
	return s.a[off : off+s.m : off+s.m]
}

func (s *nnls) run(maxIter int) Status {
	iter := 0
	for s.np < s.n && s.np < s.m {
		// With 𝐱 fixed at zero on ℤ the dual reduces to the tail of (𝐐𝐀)ᵀ𝐐𝐛.
		for _, j := range s.index[s.np:] {
			s.w[j] = dot(s.m-s.np, s.col(j)[s.np:], 1, s.b[s.np:], 1)
		}
		if !s.admit() {
			return Solved // Kuhn-Tucker conditions hold
		}

		for {
			s.backSolve()
			if iter++; iter > maxIter {
				return MaxIterations
			}

			// 𝛂 = 𝚖𝚒𝚗 { 𝐱ⱼ/(𝐱ⱼ-𝐳ⱼ) : 𝐳ⱼ ≤ 0, j ∈ ℙ }
			alpha, leave := 2.0, -1
			for ip, l := range s.index[:s.np] {
				if s.z[ip] <= zero {
					if t := -s.x[l] / (s.z[ip] - s.x[l]); t < alpha {
						alpha, leave = t, ip
					}
				}
			}
			if leave < 0 {
				for ip, l := range s.index[:s.np] {
					s.x[l] = s.z[ip]
				}
				break
			}

			for ip, l := range s.index[:s.np] {
				s.x[l] += alpha * (s.z[ip] - s.x[l])
			}
			s.release(leave)
			copy(s.z, s.b)
		}
	}
	return Solved
}

// admit moves the ℤ index with the largest positive dual into ℙ.
// Candidates that are nearly dependent on ℙ or would enter with a non-positive value are skipped.
func (s *nnls) admit() bool {
	const factor = 0.01
	for {
		wmax, iz := zero, -1
		for i, j := range s.index[s.np:] {
			if s.w[j] > wmax {
				wmax, iz = s.w[j], s.np+i
			}
		}
		if iz < 0 {
			return false
		}

		j := s.index[iz]
		aj := s.col(j)
		pivot := aj[s.np]
		up := house(s.np, s.np+1, s.m, aj)
		unorm := nrm2(s.np, aj, 1)

		if unorm+math.Abs(aj[s.np])*factor > unorm {
			copy(s.z, s.b)
			applyHouse(s.np, s.np+1, s.m, aj, up, s.z)
			if s.z[s.np]/aj[s.np] > zero {
				copy(s.b, s.z)
				s.index[iz] = s.index[s.np]
				s.index[s.np] = j
				s.np++
				for _, jj := range s.index[s.np:] {
					applyHouse(s.np-1, s.np, s.m, aj, up, s.col(jj))
				}
				fill(aj[s.np:], zero)
				s.w[j] = zero
				return true
			}
		}

		aj[s.np] = pivot
		s.w[j] = zero
	}
}

// backSolve overwrites z[:np] with 𝐑⁻¹(𝐐𝐛)[:np] where 𝐑 is the triangular factor of ℙ.
func (s *nnls) backSolve() {
	for ip := s.np - 1; ip >= 0; ip-- {
		cj := s.col(s.index[ip])
		s.z[ip] /= cj[ip]
		axpy(ip, -s.z[ip], cj, s.z)
	}
}

// release moves ℙ[pos] back into ℤ together with any other ℙ index
// whose value fell to zero through round-off, restoring the triangular factor by Givens rotations.
func (s *nnls) release(pos int) {
	for pos >= 0 {
		i := s.index[pos]
		s.x[i] = zero
		for j := pos + 1; j < s.np; j++ {
			ii := s.index[j]
			s.index[j-1] = ii
			ci := s.col(ii)
			c, sn, r := givens(ci[j-1], ci[j])
			ci[j-1], ci[j] = r, zero
			for l := 0; l < s.n; l++ {
				if l != ii {
					cl := s.col(l)
					cl[j-1], cl[j] = rotate(c, sn, cl[j-1], cl[j])
				}
			}
			s.b[j-1], s.b[j] = rotate(c, sn, s.b[j-1], s.b[j])
		}
		s.np--
		s.index[s.np] = i

		pos = -1
		for ip, l := range s.index[:s.np] {
			if s.x[l] <= zero {
				pos = ip
				break
			}
		}
	}
}
