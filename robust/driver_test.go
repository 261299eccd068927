// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package robust

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/oracle"
	"github.com/curioloop/stackelberg/solver"
)

func coordination(t *testing.T, k int) *game.Game {
	nominals := make([]*mat.Dense, k)
	for j := range nominals {
		nominals[j] = mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	}
	g, err := game.New(mat.NewDense(2, 2, []float64{1, 0, 0, 0.5}), nominals, game.Uniform(k))
	require.NoError(t, err)
	return g
}

func pointConfig() Config {
	cfg := DefaultConfig()
	cfg.Radius = 0
	cfg.Exponent = 1
	cfg.TimeLimit = time.Minute
	return cfg
}

func TestRunPointBall(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	d, err := New(pointConfig(), WithMetrics(metrics))
	require.NoError(t, err)

	res, err := d.Run(context.Background(), coordination(t, 1))
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, 1, res.Iterations)
	require.InDelta(t, 0.5, res.W[0], 1e-6)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, res.X, 1e-6)
	require.InDelta(t, -0.5, res.Objective, 1e-6)
	require.Len(t, res.GammaTrace, 1)
	require.Equal(t, [][]int{{1}}, res.SupportTrace)
	require.NotEqual(t, uuid.Nil, res.RunID)
	require.Positive(t, res.WallTime)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Iterations))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.Expansions))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.MasterTimeouts))
	require.InDelta(t, res.Gamma, testutil.ToFloat64(metrics.Gamma), 1e-12)
}

func TestRunIdenticalNominals(t *testing.T) {
	cfg := pointConfig()
	cfg.Workers = 2
	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.Run(context.Background(), coordination(t, 3))
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, 1, res.Iterations)
	require.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, res.W, 1e-6)
	require.InDelta(t, -0.5, res.Objective, 1e-6)
}

func TestRunInspectionDegenerate(t *testing.T) {
	g, err := game.Inspection(2, 1, 1, []float64{0.4}, []float64{0.9})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Inspection.Bounds = oracle.Bounds{LowMin: 0.4, LowMax: 0.4, HighMin: 0.9, HighMax: 0.9}
	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.RunInspection(context.Background(), g)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, 1, res.Iterations)
	require.InDelta(t, 0.25, res.W[0], 1e-6)
	require.InDelta(t, 0, res.Lambda, 1e-9)
	require.Zero(t, res.OracleFailures)
}

func TestRunMaxIter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Radius = 10
	cfg.Exponent = 1
	cfg.MaxIter = 4
	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.Run(context.Background(), coordination(t, 1))
	require.NoError(t, err)
	require.False(t, res.Converged)
	require.Equal(t, cfg.MaxIter, res.Iterations)
	require.Len(t, res.GammaTrace, cfg.MaxIter)
	// pricing the ball costs more than any distance can return
	require.InDelta(t, 0, res.Lambda, 1e-9)

	prev := 0
	for _, sizes := range res.SupportTrace {
		require.Len(t, sizes, 1)
		require.GreaterOrEqual(t, sizes[0], prev)
		prev = sizes[0]
	}
	for _, gamma := range res.GammaTrace {
		require.Less(t, gamma, -cfg.Tolerance)
	}
}

func TestRunRandomInstances(t *testing.T) {
	for _, tc := range []struct {
		n, m, k int
		seed    uint64
		maxIter int
	}{
		{3, 3, 2, 1, 6},
		{3, 3, 2, 7, 6},
		{2, 2, 2, 12, 10},
		{2, 2, 2, 16, 10},
	} {
		cfg := DefaultConfig()
		cfg.MaxIter = tc.maxIter
		cfg.TimeLimit = time.Minute
		d, err := New(cfg)
		require.NoError(t, err)

		g := game.Random(rand.New(rand.NewPCG(tc.seed, tc.seed+1)), tc.n, tc.m, tc.k)
		res, err := d.Run(context.Background(), g)
		require.NoError(t, err, "seed %d", tc.seed)
		require.LessOrEqual(t, res.Iterations, cfg.MaxIter)
		require.Len(t, res.GammaTrace, res.Iterations)
		require.Zero(t, res.MasterTimeouts)
		require.InDelta(t, 1.0, floats.Sum(res.X), 1e-7)
		if res.Converged {
			require.GreaterOrEqual(t, res.Gamma, -cfg.Tolerance)
		}

		prev := make([]int, tc.k)
		for _, sizes := range res.SupportTrace {
			require.Len(t, sizes, tc.k)
			for j, size := range sizes {
				require.GreaterOrEqual(t, size, prev[j], "seed %d", tc.seed)
				prev[j] = size
			}
		}
	}
}

func TestRunWithOracle(t *testing.T) {
	g := coordination(t, 2)
	calls := 0
	witness := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	o := oracle.Func(func(_ context.Context, q oracle.Query) (*oracle.Report, error) {
		calls++
		if q.Nominal == 1 {
			return &oracle.Report{Nominal: 1, Value: oracle.Sentinel, Action: -1, Failures: 2}, nil
		}
		return &oracle.Report{Nominal: 0, Value: -1, Action: 0, Witness: witness}, nil
	})

	cfg := DefaultConfig()
	cfg.MaxIter = 2
	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.RunWith(context.Background(), g, o)
	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, 2, res.Iterations)
	require.False(t, res.Converged)
	require.Equal(t, 4, res.OracleFailures)
	require.Equal(t, [][]int{{2, 1}, {3, 1}}, res.SupportTrace)
}

func TestRunOracleError(t *testing.T) {
	boom := errors.New("boom")
	o := oracle.Func(func(context.Context, oracle.Query) (*oracle.Report, error) { return nil, boom })

	cfg := DefaultConfig()
	cfg.Workers = 4
	d, err := New(cfg)
	require.NoError(t, err)

	res, err := d.RunWith(context.Background(), coordination(t, 3), o)
	require.ErrorIs(t, err, boom)
	require.Zero(t, res.Iterations)
}

type stalled struct{}

func (stalled) Solve(context.Context, *solver.Model) (*solver.Result, error) {
	return &solver.Result{Status: solver.TimeLimit}, nil
}

func TestRunMasterTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	d, err := New(cfg, WithSolver(stalled{}))
	require.NoError(t, err)

	res, err := d.Run(context.Background(), coordination(t, 1))
	require.ErrorIs(t, err, ErrMasterTimeout)
	require.Equal(t, 3, res.MasterTimeouts)
	require.Zero(t, res.Iterations)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	_, err = d.Run(ctx, coordination(t, 1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunInvalidGame(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	g := coordination(t, 2)
	g.Nu = []float64{0.9, 0.9}
	_, err = d.Run(context.Background(), g)
	require.ErrorIs(t, err, game.ErrDistribution)
}

func TestNewRejectsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BigM = 0.5
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrConfig)

	cfg = DefaultConfig()
	cfg.Inspection.Bounds.LowMax = 0.1
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
exponent: 1
radius: 0.05
time_limit: 30s
workers: 4
inspection:
  margin: 0.01
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 1.0, cfg.Exponent)
	require.Equal(t, 0.05, cfg.Radius)
	require.Equal(t, 30*time.Second, cfg.TimeLimit)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, 0.01, cfg.Inspection.Margin)
	// untouched keys keep their defaults
	require.Equal(t, 200, cfg.MaxIter)
	require.Equal(t, oracle.DefaultBounds(), cfg.Inspection.Bounds)

	t.Setenv("STACKELBERG_RADIUS", "0.5")
	t.Setenv("STACKELBERG_MAX_ITER", "7")
	t.Setenv("STACKELBERG_TIME_LIMIT", "2m")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 0.5, cfg.Radius)
	require.Equal(t, 7, cfg.MaxIter)
	require.Equal(t, 2*time.Minute, cfg.TimeLimit)

	t.Setenv("STACKELBERG_WORKERS", "many")
	_, err = LoadConfig(path)
	require.ErrorIs(t, err, ErrConfig)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("big_m: 0.5\n"), 0o600))
	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
