// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package master

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/solver"
	"github.com/curioloop/stackelberg/support"
)

func coordination(t *testing.T) *game.Game {
	g, err := game.New(
		mat.NewDense(2, 2, []float64{1, 0, 0, 0.5}),
		[]*mat.Dense{mat.NewDense(2, 2, []float64{0, 1, 1, 0})},
		[]float64{1},
	)
	require.NoError(t, err)
	return g
}

// requireDualFeasible checks wⱼ ≤ λ·d(u,ûⱼ)ᵗ + u_l(𝐱,a) for every selected response.
func requireDualFeasible(t *testing.T, p Problem, sol *Solution) {
	dist := p.Support.Distances()
	p.Support.Each(func(idx, j, l int, u *mat.Dense) {
		a := sol.Response(j, l)
		require.GreaterOrEqual(t, a, 0)
		bound := sol.Lambda*math.Pow(dist.At(idx, j), p.Exponent) + game.Utility(p.Game.Leader, sol.X, a)
		require.LessOrEqual(t, sol.W[j], bound+1e-7)
		// the selected action is a follower best response under u
		require.Contains(t, game.BestResponses(u, sol.X, 1e-7), a)
	})
}

func TestSolvePointBall(t *testing.T) {
	g := coordination(t)
	p := Problem{Game: g, Support: support.New(g.Nominals), Exponent: 1, Radius: 0, BigM: 2}

	sol, err := Solve(context.Background(), solver.Default(), p)
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, sol.Status)
	require.False(t, sol.TimedOut)
	require.True(t, sol.HasSolution())
	require.InDeltaSlice(t, []float64{0.5, 0.5}, sol.X, 1e-7)
	require.InDelta(t, 0.5, sol.W[0], 1e-7)
	require.InDelta(t, -0.5, sol.Objective, 1e-7)
	require.Equal(t, 0, sol.Response(0, 0))
	requireDualFeasible(t, p, sol)

	names := make([]string, len(sol.Named))
	for i, nv := range sol.Named {
		names[i] = nv.Name
	}
	require.Equal(t, []string{"x_0", "x_1", "lambda", "w_0", "delta_0_0_0", "delta_0_0_1"}, names)
}

func TestSolveLargeRadius(t *testing.T) {
	g := coordination(t)
	s := support.New(g.Nominals)
	require.NoError(t, s.Append(0, mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
	p := Problem{Game: g, Support: s, Exponent: 1, Radius: 100, BigM: 2}

	sol, err := Solve(context.Background(), solver.Default(), p)
	require.NoError(t, err)
	require.InDelta(t, 0.0, sol.Lambda, 1e-7)
	require.InDelta(t, -0.5, sol.Objective, 1e-7)
	require.Len(t, sol.Delta[0], 2)
	requireDualFeasible(t, p, sol)
}

func TestSolvePricedDeviation(t *testing.T) {
	g := coordination(t)
	s := support.New(g.Nominals)
	// the follower always answers with action 1 under this member, at distance √2
	require.NoError(t, s.Append(0, mat.NewDense(2, 2, []float64{0, 1, 0, 1})))
	p := Problem{Game: g, Support: s, Exponent: 1, Radius: 0.5, BigM: 2}

	sol, err := Solve(context.Background(), solver.Default(), p)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, sol.X, 1e-6)
	require.InDelta(t, 0.25/math.Sqrt2, sol.Lambda, 1e-6)
	require.InDelta(t, 0.5, sol.W[0], 1e-6)
	require.InDelta(t, -0.5+0.125/math.Sqrt2, sol.Objective, 1e-6)
	require.Equal(t, 1, sol.Response(0, 1))
	requireDualFeasible(t, p, sol)
}

func TestSolveIdenticalNominals(t *testing.T) {
	g := coordination(t)
	twin, err := game.New(g.Leader, []*mat.Dense{g.Nominals[0], mat.DenseCopyOf(g.Nominals[0])}, []float64{0.3, 0.7})
	require.NoError(t, err)

	single, err := Solve(context.Background(), solver.Default(),
		Problem{Game: g, Support: support.New(g.Nominals), Exponent: 2, Radius: 0.1, BigM: 2})
	require.NoError(t, err)
	double, err := Solve(context.Background(), solver.Default(),
		Problem{Game: twin, Support: support.New(twin.Nominals), Exponent: 2, Radius: 0.1, BigM: 2})
	require.NoError(t, err)

	require.InDelta(t, single.Objective, double.Objective, 1e-7)
	require.InDeltaSlice(t, single.X, double.X, 1e-7)
	require.InDelta(t, double.W[0], double.W[1], 1e-7)
}

func TestBuildRows(t *testing.T) {
	g := coordination(t)
	s := support.New(g.Nominals)
	require.NoError(t, s.Append(0, mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
	model, v, err := build(Problem{Game: g, Support: s, Exponent: 1, Radius: 1, BigM: 3})
	require.NoError(t, err)

	// per member: m(m-1) best-response rows, m dual rows, one pick row; plus the simplex row
	require.Equal(t, 2*(2+2+1)+1, model.NumConstraints())
	require.Equal(t, 2+1+1+2*2, model.NumVars())
	require.Len(t, v.delta[0], 2)

	br := model.Constraints()[0]
	require.Equal(t, "br_0_0_0_1", br.Tag)
	require.Equal(t, solver.GreaterEq, br.Rel)
	require.InDelta(t, -3.0, br.RHS, 1e-12)
}

func TestValidate(t *testing.T) {
	g := coordination(t)
	s := support.New(g.Nominals)

	_, err := Solve(context.Background(), solver.Default(), Problem{Game: g, Support: s, Exponent: 1, BigM: 0.5})
	require.ErrorIs(t, err, ErrBigM)

	_, err = Solve(context.Background(), solver.Default(), Problem{Game: g, Support: s, Exponent: 0, BigM: 2})
	require.Error(t, err)

	_, err = Solve(context.Background(), solver.Default(), Problem{Game: g, Support: support.New(nil), Exponent: 1, BigM: 2})
	require.Error(t, err)
}

type failing struct{ status solver.Status }

func (f failing) Solve(_ context.Context, m *solver.Model) (*solver.Result, error) {
	return &solver.Result{Status: f.status}, nil
}

func TestSolveStatuses(t *testing.T) {
	g := coordination(t)
	p := Problem{Game: g, Support: support.New(g.Nominals), Exponent: 1, BigM: 2}

	_, err := Solve(context.Background(), failing{solver.Infeasible}, p)
	require.ErrorIs(t, err, ErrInfeasible)
	_, err = Solve(context.Background(), failing{solver.Unbounded}, p)
	require.ErrorIs(t, err, ErrUnbounded)
	_, err = Solve(context.Background(), failing{solver.Error}, p)
	require.ErrorIs(t, err, ErrSolver)

	sol, err := Solve(context.Background(), failing{solver.TimeLimit}, p)
	require.NoError(t, err)
	require.True(t, sol.TimedOut)
	require.False(t, sol.HasSolution())
	require.Equal(t, -1, sol.Response(0, 0))
}

// line is α·p + β·λ = γ in the (p, λ) plane of a leader with two actions, 𝐱 = (p, 1-p).
type line struct{ alpha, beta, gamma float64 }

// enumerate returns the master optimum of a two-action leader. With every member answering
// by its leader-favoured best response the objective is piecewise linear in (p, λ), so its
// minimum sits on a vertex of the arrangement of the domain bounds, the follower indifference
// lines and the crossings of the dual rows of one nominal.
func enumerate(p Problem) float64 {
	g, s := p.Game, p.Support
	_, m := g.Dims()
	theta := math.Pow(p.Radius, p.Exponent)
	dist := s.Distances()

	type member struct {
		j int
		u *mat.Dense
		d float64
	}
	var members []member
	s.Each(func(idx, j, l int, u *mat.Dense) {
		members = append(members, member{j: j, u: u, d: math.Pow(dist.At(idx, j), p.Exponent)})
	})
	// u(𝐱,a) = c1·p + c0
	affine := func(u mat.Matrix, a int) (c1, c0 float64) {
		return u.At(0, a) - u.At(1, a), u.At(1, a)
	}

	lines := []line{{1, 0, 0}, {1, 0, 1}, {0, 1, 0}}
	for _, mb := range members {
		for a := 0; a < m; a++ {
			for b := a + 1; b < m; b++ {
				a1, a0 := affine(mb.u, a)
				b1, b0 := affine(mb.u, b)
				lines = append(lines, line{a1 - b1, 0, b0 - a0})
			}
		}
	}
	for i, mi := range members {
		for _, mk := range members[i+1:] {
			if mi.j != mk.j {
				continue
			}
			for a := 0; a < m; a++ {
				for b := 0; b < m; b++ {
					a1, a0 := affine(g.Leader, a)
					b1, b0 := affine(g.Leader, b)
					lines = append(lines, line{a1 - b1, mi.d - mk.d, b0 - a0})
				}
			}
		}
	}

	objective := func(pv, lambda float64) float64 {
		x := []float64{pv, 1 - pv}
		w := make([]float64, g.K())
		for j := range w {
			w[j] = math.Inf(1)
		}
		for _, mb := range members {
			a := game.LeaderFavoured(g.Leader, mb.u, x, 1e-9)
			w[mb.j] = math.Min(w[mb.j], lambda*mb.d+game.Utility(g.Leader, x, a))
		}
		f := lambda * theta
		for j, wj := range w {
			f -= g.Nu[j] * wj
		}
		return f
	}

	best := math.Inf(1)
	for i, li := range lines {
		for _, lk := range lines[i+1:] {
			det := li.alpha*lk.beta - lk.alpha*li.beta
			if math.Abs(det) < 1e-12 {
				continue
			}
			pv := (li.gamma*lk.beta - lk.gamma*li.beta) / det
			lambda := (li.alpha*lk.gamma - lk.alpha*li.gamma) / det
			if pv < -1e-9 || pv > 1+1e-9 || lambda < -1e-9 {
				continue
			}
			best = math.Min(best, objective(math.Min(math.Max(pv, 0), 1), math.Max(lambda, 0)))
		}
	}
	return best
}

func randomMatrix(rng *rand.Rand, n, m int) *mat.Dense {
	data := make([]float64, n*m)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(n, m, data)
}

func TestSolveMatchesEnumeration(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 11))
	for trial := range 24 {
		m, k := 2+trial%2, 1+(trial/2)%2
		g := game.Random(rng, 2, m, k)
		s := support.New(g.Nominals)
		for j := 0; j < k; j++ {
			for range rng.IntN(3) {
				require.NoError(t, s.Append(j, randomMatrix(rng, 2, m)))
			}
		}
		p := Problem{
			Game:     g,
			Support:  s,
			Exponent: []float64{1, 2}[(trial/4)%2],
			Radius:   []float64{0.1, 0.5}[(trial/8)%2],
			BigM:     2,
		}

		sol, err := Solve(context.Background(), solver.Default(), p)
		require.NoError(t, err, "trial %d", trial)
		require.Equal(t, solver.Optimal, sol.Status, "trial %d", trial)
		require.InDelta(t, enumerate(p), sol.Objective, 1e-6, "trial %d", trial)
		requireDualFeasible(t, p, sol)
	}
}

func TestSolveRandomInstances(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := range 6 {
		g := game.Random(rng, 3, 3, 2)
		s := support.New(g.Nominals)
		for j := 0; j < 2; j++ {
			for range 5 {
				require.NoError(t, s.Append(j, randomMatrix(rng, 3, 3)))
			}
		}
		p := Problem{Game: g, Support: s, Exponent: 2, Radius: 0.1, BigM: 2}

		sol, err := Solve(context.Background(), solver.Default(), p)
		require.NoError(t, err, "trial %d", trial)
		require.Equal(t, solver.Optimal, sol.Status, "trial %d", trial)
		require.InDelta(t, 1.0, sol.X[0]+sol.X[1]+sol.X[2], 1e-7)
		require.GreaterOrEqual(t, sol.Lambda, -1e-9)
		requireDualFeasible(t, p, sol)
	}
}
