// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package support keeps the finite supports E(τ,j): for every nominal j the follower
// utility matrices collected so far, starting with the nominal itself.
//
// A Set only grows. Matrices handed to Append are owned by the set and must not be modified.
package support

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/stackelberg/game"
)

// Set is not safe for concurrent mutation; concurrent readers are fine between Appends.
type Set struct {
	nominals []*mat.Dense
	members  [][]*mat.Dense
}

// New seeds E(0,j) = {nominal_j} for every j.
func New(nominals []*mat.Dense) *Set {
	s := &Set{
		nominals: nominals,
		members:  make([][]*mat.Dense, len(nominals)),
	}
	for j, u := range nominals {
		s.members[j] = []*mat.Dense{u}
	}
	return s
}

// Len returns the number of nominals k.
func (s *Set) Len() int { return len(s.members) }

// Size returns |E(τ,j)|.
func (s *Set) Size(j int) int { return len(s.members[j]) }

// Sizes returns a copy of every |E(τ,j)|.
func (s *Set) Sizes() []int {
	out := make([]int, len(s.members))
	for j, m := range s.members {
		out[j] = len(m)
	}
	return out
}

// Total returns ∑ⱼ |E(τ,j)|.
func (s *Set) Total() int {
	n := 0
	for _, m := range s.members {
		n += len(m)
	}
	return n
}

// At returns the l-th member of E(τ,j).
func (s *Set) At(j, l int) *mat.Dense { return s.members[j][l] }

// Nominal returns nominal j.
func (s *Set) Nominal(j int) *mat.Dense { return s.nominals[j] }

// Append adds u to E(τ,j).
func (s *Set) Append(j int, u *mat.Dense) error {
	if j < 0 || j >= len(s.members) {
		return fmt.Errorf("support: nominal %d out of range [0,%d)", j, len(s.members))
	}
	if r0, c0 := s.nominals[j].Dims(); u == nil || !sameDims(u, r0, c0) {
		return fmt.Errorf("support: member shape does not match nominal %d", j)
	}
	s.members[j] = append(s.members[j], u)
	return nil
}

func sameDims(u mat.Matrix, r, c int) bool {
	ur, uc := u.Dims()
	return ur == r && uc == c
}

// Each calls fn for every member in (j, l) order with its flat index.
func (s *Set) Each(fn func(idx, j, l int, u *mat.Dense)) {
	idx := 0
	for j, m := range s.members {
		for l, u := range m {
			fn(idx, j, l, u)
			idx++
		}
	}
}

// Distances returns the Total × k matrix whose row for member (j,l) holds
// d(u_jl, nominal_j') for every j'. It is recomputed on every call.
func (s *Set) Distances() *mat.Dense {
	all := make([]*mat.Dense, 0, s.Total())
	s.Each(func(_, _, _ int, u *mat.Dense) { all = append(all, u) })
	return game.DistanceMatrix(all, s.nominals)
}
