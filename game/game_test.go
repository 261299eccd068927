// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func coordination() *Game {
	return &Game{
		Leader:   mat.NewDense(2, 2, []float64{1, 0, 0, 0.5}),
		Nominals: []*mat.Dense{mat.NewDense(2, 2, []float64{0, 1, 1, 0})},
		Nu:       []float64{1},
	}
}

func TestValidate(t *testing.T) {
	g := coordination()
	require.NoError(t, g.Validate())
	n, m := g.Dims()
	require.Equal(t, 2, n)
	require.Equal(t, 2, m)
	require.Equal(t, 1, g.K())

	_, err := New(g.Leader, []*mat.Dense{mat.NewDense(3, 2, nil)}, []float64{1})
	require.ErrorIs(t, err, ErrShape)

	_, err = New(g.Leader, []*mat.Dense{mat.NewDense(2, 2, []float64{0, 1.5, 0, 0})}, []float64{1})
	require.ErrorIs(t, err, ErrPayoff)

	_, err = New(g.Leader, g.Nominals, []float64{0.5})
	require.ErrorIs(t, err, ErrDistribution)

	_, err = New(g.Leader, g.Nominals, []float64{1, 0})
	require.ErrorIs(t, err, ErrShape)

	_, err = New(g.Leader, nil, nil)
	require.ErrorIs(t, err, ErrShape)
}

func TestUtilities(t *testing.T) {
	g := coordination()
	x := []float64{0.5, 0.5}

	require.InDelta(t, 0.5, Utility(g.Leader, x, 0), 1e-12)
	require.InDelta(t, 0.25, Utility(g.Leader, x, 1), 1e-12)
	require.InDeltaSlice(t, []float64{0.5, 0.25}, Utilities(g.Leader, x), 1e-12)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, Utilities(g.Nominals[0], x), 1e-12)
}

func TestBestResponseSets(t *testing.T) {
	g := coordination()
	x := []float64{0.5, 0.5}

	require.Equal(t, []int{0}, StrictlyPreferred(g.Leader, x, 1, Tol))
	require.Empty(t, StrictlyPreferred(g.Leader, x, 0, Tol))
	require.Equal(t, []int{0, 1}, BestResponses(g.Nominals[0], x, Tol))
	require.Equal(t, 0, LeaderFavoured(g.Leader, g.Nominals[0], x, Tol))

	// u_f(𝐱,0) = 𝐱₁ and u_f(𝐱,1) = 𝐱₀
	x = []float64{0.75, 0.25}
	require.Equal(t, []int{1}, BestResponses(g.Nominals[0], x, Tol))
	require.Equal(t, 1, LeaderFavoured(g.Leader, g.Nominals[0], x, Tol))

	x = []float64{0.25, 0.75}
	require.Equal(t, []int{0}, BestResponses(g.Nominals[0], x, Tol))
	require.Equal(t, 0, LeaderFavoured(g.Leader, g.Nominals[0], x, Tol))
}

func TestDistances(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	b := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	require.InDelta(t, 2.0, Frobenius(a, b), 1e-12)
	require.Zero(t, Frobenius(a, a))

	d := DistanceMatrix([]*mat.Dense{a, b}, []*mat.Dense{a})
	r, c := d.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 1, c)
	require.InDelta(t, 0.0, d.At(0, 0), 1e-12)
	require.InDelta(t, 2.0, d.At(1, 0), 1e-12)

	same := NominalDistances([]*mat.Dense{a, mat.DenseCopyOf(a), mat.DenseCopyOf(a)})
	require.True(t, mat.Equal(same, mat.NewDense(3, 3, nil)))
}

func TestInspectionActions(t *testing.T) {
	require.Equal(t, 6, InspectionActionSize(3, 2))
	require.Equal(t, 4, InspectionActionSize(4, 1))
	require.Equal(t, 7, InspectionActionSize(3, 3))

	require.Equal(t, [][]int{{0}, {1}, {2}, {0, 1}, {0, 2}, {1, 2}}, Subsets(3, 2))
	require.Equal(t,
		[][]int{{0, 1}, {0, 2}, {1, 2}, {0, 3}, {1, 3}, {2, 3}},
		Subsets(4, 2)[4:],
	)
}

func TestInspection(t *testing.T) {
	g, err := Inspection(2, 1, 1, []float64{0.4, 0.3}, []float64{0.9, 1})
	require.NoError(t, err)
	require.True(t, mat.Equal(g.Leader, mat.NewDense(2, 2, []float64{0.5, 0, 0, 0.5})))
	require.True(t, mat.Equal(g.Nominals[0], mat.NewDense(2, 2, []float64{0.4, 0.9, 0.9, 0.4})))
	require.True(t, mat.Equal(g.Nominals[1], mat.NewDense(2, 2, []float64{0.3, 1, 1, 0.3})))
	require.Equal(t, []float64{0.5, 0.5}, g.Nu)

	g, err = Inspection(3, 2, 1, []float64{0.5}, []float64{0.8})
	require.NoError(t, err)
	n, m := g.Dims()
	require.Equal(t, 6, n)
	require.Equal(t, 3, m)
	// {0,1} catches {0} and {1} but misses {2}
	require.Equal(t, []float64{0.5, 0.5, 0}, mat.Row(nil, 3, g.Leader))

	_, err = Inspection(2, 3, 1, []float64{0.4}, []float64{0.9})
	require.ErrorIs(t, err, ErrParameter)
	_, err = Inspection(2, 1, 1, []float64{0.9}, []float64{0.4})
	require.ErrorIs(t, err, ErrParameter)
}

func TestRandom(t *testing.T) {
	g := Random(rand.New(rand.NewPCG(1, 2)), 3, 4, 5)
	require.NoError(t, g.Validate())
	n, m := g.Dims()
	require.Equal(t, 3, n)
	require.Equal(t, 4, m)
	require.Equal(t, 5, g.K())

	sum := 0.0
	for _, p := range g.Nu {
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-12)
	require.InDelta(t, 0.2, Uniform(5)[3], 1e-15)
	require.False(t, math.IsNaN(g.Leader.At(2, 3)))
}

func TestDecode(t *testing.T) {
	g, err := Decode([]byte(`
leader:
  - [1, 0]
  - [0, 0.5]
nominals:
  - - [0, 1]
    - [1, 0]
`))
	require.NoError(t, err)
	require.True(t, mat.Equal(g.Leader, coordination().Leader))
	require.Equal(t, []float64{1}, g.Nu)

	data, err := Encode(g)
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)
	require.True(t, mat.Equal(back.Nominals[0], g.Nominals[0]))

	_, err = Decode([]byte("leader: [[1, 0], [0]]\nnominals: [[[0, 1], [1, 0]]]\n"))
	require.ErrorIs(t, err, ErrShape)
}
