// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package robust

import (
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of a run.
type Result struct {
	RunID uuid.UUID `json:"run_id"`

	X         []float64     `json:"x"`
	Lambda    float64       `json:"lambda"`
	W         []float64     `json:"w"`
	Delta     [][][]float64 `json:"delta"`
	Objective float64       `json:"objective"`

	// Iterations is the number of completed iterations, at most MaxIter.
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
	// Gamma is the value of the last iteration.
	Gamma float64 `json:"gamma"`

	// SolverTime sums master and oracle solve times; WallTime covers the whole run.
	SolverTime time.Duration `json:"solver_time"`
	WallTime   time.Duration `json:"wall_time"`

	GammaTrace []float64 `json:"gamma_trace"`
	// SupportTrace[τ] holds the support sizes after the expansion of iteration τ.
	SupportTrace [][]int `json:"support_trace"`

	MasterTimeouts int `json:"master_timeouts"`
	OracleFailures int `json:"oracle_failures"`
}
