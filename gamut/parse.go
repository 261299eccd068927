// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gamut

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Payoffs of a two-player game, n leader actions × m follower actions.
type Payoffs struct {
	Leader   *mat.Dense
	Follower *mat.Dense
}

type outcome struct {
	i, j   int
	pl, pf float64
}

// Parse reads every outcome line of a game file and skips '#' comments.
// The dimensions are the largest action indices found; each cell must appear once.
func Parse(data []byte) (*Payoffs, error) {
	var (
		outs []outcome
		n, m int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		o, err := parseOutcome(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrFormat, line, err)
		}
		outs = append(outs, o)
		n, m = max(n, o.i+1), max(m, o.j+1)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("%w: no outcomes", ErrFormat)
	}
	if len(outs) != n*m {
		return nil, fmt.Errorf("%w: %d outcomes for a %d×%d game", ErrFormat, len(outs), n, m)
	}

	p := &Payoffs{Leader: mat.NewDense(n, m, nil), Follower: mat.NewDense(n, m, nil)}
	seen := make([]bool, n*m)
	for _, o := range outs {
		if seen[o.i*m+o.j] {
			return nil, fmt.Errorf("%w: outcome [%d %d] repeated", ErrFormat, o.i+1, o.j+1)
		}
		seen[o.i*m+o.j] = true
		p.Leader.Set(o.i, o.j, o.pl)
		p.Follower.Set(o.i, o.j, o.pf)
	}
	return p, nil
}

// ParseAt reads n·m outcome lines starting at the 0-based line offset, leader index
// fastest, ignoring the printed action indices.
func ParseAt(data []byte, offset, n, m int) (*Payoffs, error) {
	lines := strings.Split(string(data), "\n")
	if offset < 0 || offset+n*m > len(lines) {
		return nil, fmt.Errorf("%w: %d lines, need %d from line %d", ErrFormat, len(lines), n*m, offset)
	}
	p := &Payoffs{Leader: mat.NewDense(n, m, nil), Follower: mat.NewDense(n, m, nil)}
	k := offset
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			o, err := parseOutcome(strings.TrimSpace(lines[k]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrFormat, k+1, err)
			}
			p.Leader.Set(i, j, o.pl)
			p.Follower.Set(i, j, o.pf)
			k++
		}
	}
	return p, nil
}

// parseOutcome splits "[i  j] :\t[ pl pf ]".
func parseOutcome(text string) (outcome, error) {
	var o outcome
	head, tail, ok := strings.Cut(text, ":")
	if !ok {
		return o, fmt.Errorf("missing ':' in %q", text)
	}

	idx, err := bracketed(head)
	if err != nil {
		return o, err
	}
	if len(idx) != 2 {
		return o, fmt.Errorf("want 2 action indices, got %d", len(idx))
	}
	if o.i, err = strconv.Atoi(idx[0]); err != nil {
		return o, err
	}
	if o.j, err = strconv.Atoi(idx[1]); err != nil {
		return o, err
	}
	if o.i < 1 || o.j < 1 {
		return o, fmt.Errorf("action indices start at 1, got [%d %d]", o.i, o.j)
	}
	o.i--
	o.j--

	pay, err := bracketed(tail)
	if err != nil {
		return o, err
	}
	if len(pay) != 2 {
		return o, fmt.Errorf("want 2 payoffs, got %d", len(pay))
	}
	if o.pl, err = strconv.ParseFloat(pay[0], 64); err != nil {
		return o, err
	}
	if o.pf, err = strconv.ParseFloat(pay[1], 64); err != nil {
		return o, err
	}
	return o, nil
}

func bracketed(s string) ([]string, error) {
	lo, hi := strings.IndexByte(s, '['), strings.LastIndexByte(s, ']')
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("missing brackets in %q", s)
	}
	return strings.Fields(s[lo+1 : hi]), nil
}
