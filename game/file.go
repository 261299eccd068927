// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a game. Matrices are lists of rows.
// An empty nu means the uniform distribution.
type File struct {
	Leader   [][]float64   `yaml:"leader"`
	Nominals [][][]float64 `yaml:"nominals"`
	Nu       []float64     `yaml:"nu,omitempty"`
}

// Load reads and validates a game from a YAML file.
func Load(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses and validates a YAML game.
func Decode(data []byte) (*Game, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("game: decode: %w", err)
	}
	leader, err := dense("leader", f.Leader)
	if err != nil {
		return nil, err
	}
	nominals := make([]*mat.Dense, len(f.Nominals))
	for j, rows := range f.Nominals {
		if nominals[j], err = dense(fmt.Sprintf("nominal %d", j), rows); err != nil {
			return nil, err
		}
	}
	nu := f.Nu
	if len(nu) == 0 {
		nu = Uniform(len(nominals))
	}
	return New(leader, nominals, nu)
}

// Encode writes g in the File layout.
func Encode(g *Game) ([]byte, error) {
	f := File{Leader: rows(g.Leader), Nu: g.Nu}
	for _, u := range g.Nominals {
		f.Nominals = append(f.Nominals, rows(u))
	}
	return yaml.Marshal(f)
}

func dense(name string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrShape, name)
	}
	m := len(rows[0])
	data := make([]float64, 0, len(rows)*m)
	for i, r := range rows {
		if len(r) != m {
			return nil, fmt.Errorf("%w: %s row %d has %d entries, want %d", ErrShape, name, i, len(r), m)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), m, data), nil
}

func rows(u *mat.Dense) [][]float64 {
	r, _ := u.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, u)
	}
	return out
}
