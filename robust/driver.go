// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package robust drives the cutting-plane loop that computes a distributionally
// robust Stackelberg commitment under a Wasserstein ball of radius θ around the
// nominal follower distribution.
//
// Every iteration τ solves the restricted master on the finite supports E(τ,j),
// queries one oracle per nominal j with the master point (𝐱, λ), and appends the
// oracle witness to E(τ,j) whenever Γ(τ,j) < wⱼ. The loop stops once
//
//	Gamma = 𝚖𝚒𝚗ⱼ Γ(τ,j) - wⱼ ≥ -ε
//
// or after MaxIter iterations.
package robust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/master"
	"github.com/curioloop/stackelberg/oracle"
	"github.com/curioloop/stackelberg/solver"
	"github.com/curioloop/stackelberg/support"
)

var ErrMasterTimeout = errors.New("robust: master timed out without incumbent")

// Driver runs the loop. It holds no per-run state and may be shared.
type Driver struct {
	cfg     Config
	solver  solver.Solver
	log     zerolog.Logger
	metrics *Metrics
}

type Option func(*Driver)

// WithSolver replaces solver.Default for both the master and the oracles.
func WithSolver(s solver.Solver) Option {
	return func(d *Driver) { d.solver = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// New validates cfg and returns a Driver.
func New(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{cfg: cfg, solver: solver.Default(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the validated configuration.
func (d *Driver) Config() Config { return d.cfg }

// Run solves g with the generic oracle, or with the point oracle when θ = 0.
func (d *Driver) Run(ctx context.Context, g *game.Game) (*Result, error) {
	if d.cfg.Radius == 0 {
		return d.RunWith(ctx, g, oracle.Point{Game: g})
	}
	return d.RunWith(ctx, g, oracle.Generic{
		Game:      g,
		Solver:    d.solver,
		Margin:    d.cfg.Margin,
		TimeLimit: d.cfg.TimeLimit,
	})
}

// RunInspection solves an Inspection Game with the structured oracle, or with the
// point oracle when θ = 0. The skeleton is taken from the first nominal.
func (d *Driver) RunInspection(ctx context.Context, g *game.Game) (*Result, error) {
	if d.cfg.Radius == 0 {
		return d.RunWith(ctx, g, oracle.Point{Game: g})
	}
	o := oracle.NewInspection(g, d.solver, d.cfg.Inspection.Bounds)
	o.Margin = d.cfg.Inspection.Margin
	o.TimeLimit = d.cfg.TimeLimit
	return d.RunWith(ctx, g, o)
}

// RunWith solves g with the supplied oracle.
func (d *Driver) RunWith(ctx context.Context, g *game.Game, o oracle.Oracle) (*Result, error) {
	start := time.Now()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.New()}
	log := d.log.With().Str("run", res.RunID.String()).Logger()
	defer func() { res.WallTime = time.Since(start) }()

	n, m := g.Dims()
	log.Info().Int("leader", n).Int("follower", m).Int("nominals", g.K()).
		Float64("radius", d.cfg.Radius).Float64("exponent", d.cfg.Exponent).Msg("start")

	set := support.New(g.Nominals)
	for res.Iterations < d.cfg.MaxIter {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		sol, err := d.solveMaster(ctx, g, set, res, log)
		if err != nil {
			return res, fmt.Errorf("robust: iteration %d: %w", res.Iterations+1, err)
		}
		res.X, res.Lambda, res.W, res.Delta, res.Objective = sol.X, sol.Lambda, sol.W, sol.Delta, sol.Objective

		reports, err := d.solveOracles(ctx, g, o, sol)
		if err != nil {
			return res, fmt.Errorf("robust: iteration %d: %w", res.Iterations+1, err)
		}

		gamma, expanded := 0.0, 0
		for j, rep := range reports {
			res.SolverTime += rep.Elapsed
			res.OracleFailures += rep.Failures
			d.metrics.oracle(rep.Elapsed, rep.Failures)
			if rep.Witness == nil {
				log.Warn().Int("nominal", j).Int("failures", rep.Failures).Msg("oracle solved no action")
			} else if rep.Value < sol.W[j] {
				if err := set.Append(j, rep.Witness); err != nil {
					return res, err
				}
				expanded++
			}
			if gap := rep.Value - sol.W[j]; j == 0 || gap < gamma {
				gamma = gap
			}
		}

		res.Iterations++
		res.Gamma = gamma
		res.GammaTrace = append(res.GammaTrace, gamma)
		res.SupportTrace = append(res.SupportTrace, set.Sizes())
		d.metrics.iteration(gamma, expanded)
		log.Debug().Int("iter", res.Iterations).Float64("gamma", gamma).Int("expanded", expanded).
			Ints("support", set.Sizes()).Float64("objective", sol.Objective).Msg("iteration")

		if gamma >= -d.cfg.Tolerance {
			res.Converged = true
			break
		}
	}

	log.Info().Int("iterations", res.Iterations).Bool("converged", res.Converged).
		Float64("objective", res.Objective).Msg("done")
	return res, nil
}

// solveMaster retries a master that timed out without incumbent with a growing limit.
func (d *Driver) solveMaster(ctx context.Context, g *game.Game, set *support.Set, res *Result, log zerolog.Logger) (*master.Solution, error) {
	p := master.Problem{
		Game:      g,
		Support:   set,
		Exponent:  d.cfg.Exponent,
		Radius:    d.cfg.Radius,
		BigM:      d.cfg.BigM,
		TimeLimit: d.cfg.TimeLimit,
	}
	for attempt := 0; ; attempt++ {
		sol, err := master.Solve(ctx, d.solver, p)
		if sol != nil {
			res.SolverTime += sol.Elapsed
			d.metrics.master(sol.Elapsed, sol.TimedOut)
		}
		if err != nil {
			return nil, err
		}
		if sol.TimedOut {
			res.MasterTimeouts++
			log.Warn().Dur("limit", p.TimeLimit).Bool("incumbent", sol.HasSolution()).
				Int("attempt", attempt).Msg("master hit time limit")
		}
		if sol.HasSolution() {
			return sol, nil
		}
		if attempt >= d.cfg.MaxRetries {
			return nil, ErrMasterTimeout
		}
		p.TimeLimit = time.Duration(float64(p.TimeLimit) * d.cfg.RetryBackoff)
	}
}

// solveOracles queries every nominal. The support is not touched until all reports are in.
func (d *Driver) solveOracles(ctx context.Context, g *game.Game, o oracle.Oracle, sol *master.Solution) ([]*oracle.Report, error) {
	reports := make([]*oracle.Report, g.K())
	query := func(ctx context.Context, j int) error {
		rep, err := o.Solve(ctx, oracle.Query{
			X:        sol.X,
			Lambda:   sol.Lambda,
			Exponent: d.cfg.Exponent,
			Nominal:  j,
		})
		if err != nil {
			return fmt.Errorf("oracle for nominal %d: %w", j, err)
		}
		reports[j] = rep
		return nil
	}

	if d.cfg.Workers <= 1 {
		for j := range reports {
			if err := query(ctx, j); err != nil {
				return nil, err
			}
		}
		return reports, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.cfg.Workers)
	for j := range reports {
		eg.Go(func() error { return query(ctx, j) })
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
