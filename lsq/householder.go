// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

// house constructs a Householder reflection 𝐐 = 𝐈 - b⁻¹𝐮𝐮ᵀ (b = s𝐮ₚ) that maps the
// pivot element v[p] to s and zeros v[l:m].
//
// On return v[p] holds s and v[l:m] holds the tail of 𝐮, the pivot component 𝐮ₚ is
// returned separately. When l ≥ m or the vector is zero the identity is used (up = 0).
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 10, Algorithm H1.
func house(p, l, m int, v []float64) (up float64) {
	if p < 0 || p >= l || l >= m {
		return zero
	}
	v = v[:m:m]

	vmax := math.Abs(v[p])
	for _, vi := range v[l:] {
		vmax = math.Max(vmax, math.Abs(vi))
	}
	if vmax <= zero {
		return zero
	}

	// Normalise before squaring to keep (vₚ² + ∑vᵢ²)¹ᐟ² representable.
	inv := one / vmax
	ssq := (v[p] * inv) * (v[p] * inv)
	for _, vi := range v[l:] {
		ssq += (vi * inv) * (vi * inv)
	}

	s := vmax * math.Sqrt(ssq)
	if v[p] > zero {
		s = -s
	}
	up = v[p] - s
	v[p] = s
	return
}

// applyHouse applies the reflection built by house to vector c: 𝐜 ← 𝐜 + b⁻¹(𝐮ᵀ𝐜)𝐮.
func applyHouse(p, l, m int, u []float64, up float64, c []float64) {
	if p < 0 || p >= l || l >= m {
		return
	}
	b := u[p] * up
	if b >= zero {
		return
	}
	u, c = u[:m:m], c[:m:m]

	sm := c[p] * up
	for i := l; i < m; i++ {
		sm += c[i] * u[i]
	}
	if sm == zero {
		return
	}
	sm /= b
	c[p] += sm * up
	for i := l; i < m; i++ {
		c[i] += sm * u[i]
	}
}

// givens computes the rotation 𝐆 = [c s; -s c] with 𝐆[a b]ᵀ = [r 0]ᵀ.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 3, Algorithm G1.
func givens(a, b float64) (c, s, r float64) {
	switch xa, xb := math.Abs(a), math.Abs(b); {
	case xa > xb:
		t := b / a
		y := math.Sqrt(one + t*t)
		c = math.Copysign(one/y, a)
		s = c * t
		r = xa * y
	case xb > zero:
		t := a / b
		y := math.Sqrt(one + t*t)
		s = math.Copysign(one/y, b)
		c = s * t
		r = xb * y
	default:
		s = one
	}
	return
}

// rotate applies 𝐆 from givens to the pair (x, y).
func rotate(c, s, x, y float64) (float64, float64) {
	return c*x + s*y, -s*x + c*y
}
