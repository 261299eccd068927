// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gamut obtains normal-form games from the GAMUT generator.
//
// The generator is an external Java program. A Runner invokes it as
//
//	java -jar gamut.jar -g <game> ... -f <file>
//
// and returns the written file, which Parse turns into leader and follower payoff
// matrices. Outcome lines look like
//
//	[i  j] :	[ pl pf ]
//
// with 1-based action indices and the leader index varying fastest.
package gamut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	ErrGenerator = errors.New("gamut: generator failed")
	ErrFormat    = errors.New("gamut: malformed game file")
)

// Source produces the content of a GAMUT game file for the given arguments.
type Source interface {
	Generate(ctx context.Context, args []string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, args []string) ([]byte, error)

func (f SourceFunc) Generate(ctx context.Context, args []string) ([]byte, error) { return f(ctx, args) }

// Runner executes the GAMUT jar.
type Runner struct {
	// Java is the java executable (default "java").
	Java string
	// Jar is the path of gamut.jar.
	Jar string
	// Dir receives the temporary output files (default os.TempDir()).
	Dir string
	Log zerolog.Logger
}

// Generate runs GAMUT with args plus an output flag and returns the file it wrote.
func (r Runner) Generate(ctx context.Context, args []string) ([]byte, error) {
	if r.Jar == "" {
		return nil, fmt.Errorf("%w: no jar configured", ErrGenerator)
	}
	java := r.Java
	if java == "" {
		java = "java"
	}
	dir, err := os.MkdirTemp(r.Dir, "gamut-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "out.game")
	argv := append([]string{"-jar", r.Jar}, args...)
	argv = append(argv, "-f", out)
	r.Log.Debug().Str("java", java).Strs("args", argv).Msg("gamut")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, java, argv...)
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w: %s", ErrGenerator, err, bytes.TrimSpace(stderr.Bytes()))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerator, err)
	}
	return data, nil
}
