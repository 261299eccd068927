// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

// dot computes 𝐱ᵀ𝐲 over n strided elements.
func dot(n int, x []float64, incx int, y []float64, incy int) (s float64) {
	if n <= 0 {
		return zero
	}
	if lx, ly := incx*(n-1), incy*(n-1); lx >= len(x) || ly >= len(y) {
		panic("bound check error")
	}
	if incx == 1 && incy == 1 {
		x, y = x[:n:n], y[:n:n]
		for i, v := range x {
			s += v * y[i]
		}
		return
	}
	for i, ix, iy := 0, 0, 0; i < n; i, ix, iy = i+1, ix+incx, iy+incy {
		s += x[ix] * y[iy]
	}
	return
}

// axpy computes 𝐲 ← α𝐱 + 𝐲 over the first n elements.
func axpy(n int, alpha float64, x, y []float64) {
	if n <= 0 || alpha == zero {
		return
	}
	x, y = x[:n:n], y[:n:n]
	for i, v := range x {
		y[i] += alpha * v
	}
}

// nrm2 computes ‖𝐱‖₂ with scaling to avoid overflow.
func nrm2(n int, x []float64, incx int) float64 {
	if n < 1 || incx < 1 {
		return zero
	}
	if incx*(n-1) >= len(x) {
		panic("bound check error")
	}
	if n == 1 {
		return math.Abs(x[0])
	}
	scale, ssq := zero, one
	for i := 0; i < n*incx; i += incx {
		v := math.Abs(x[i])
		if v == zero {
			continue
		}
		if scale < v {
			r := scale / v
			ssq = one + ssq*r*r
			scale = v
		} else {
			r := v / scale
			ssq += r * r
		}
	}
	return scale * math.Sqrt(ssq)
}

func fill(x []float64, v float64) {
	for i := range x {
		x[i] = v
	}
}
