// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lsq implements the Lawson–Hanson kernels used to project onto polyhedra:
// non-negative least squares (NNLS) and least distance programming (LDP).
//
// All matrices are dense and stored column-major with an explicit leading dimension,
// so 𝐀ᵢⱼ lives at a[i+lda×j].
package lsq

const (
	zero = 0.0
	one  = 1.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// Status reports how a kernel terminated.
type Status int

const (
	// Solved the problem has a solution.
	Solved Status = iota
	// BadArgument input dimension unacceptable.
	BadArgument
	// MaxIterations more than the allowed iterations were spent in NNLS.
	MaxIterations
	// Incompatible the inequality constraints have no common point.
	Incompatible
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case BadArgument:
		return "bad argument"
	case MaxIterations:
		return "max iterations"
	case Incompatible:
		return "incompatible constraints"
	}
	return "unknown"
}
