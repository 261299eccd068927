// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command stackelberg computes one distributionally robust Stackelberg commitment
// and prints the result as JSON.
//
// The game comes from a YAML file (-game), a random instance (-random n,m,k), or an
// Inspection Game (-inspection s,p,q) that is built in-process or, with -gamut, by
// the GAMUT generator. -cournot n generates CournotDuopoly nominals with GAMUT.
// -metrics writes the run counters in the Prometheus text format, for the node
// exporter textfile collector.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/curioloop/stackelberg/game"
	"github.com/curioloop/stackelberg/gamut"
	"github.com/curioloop/stackelberg/robust"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		configPath string
		gamePath   string
		random     string
		inspection string
		cournot    int
		nominals   int
		jar        string
		seed       uint64
		level      string
		metrics    string
	)

	flag.StringVar(&configPath, "config", "", "YAML run configuration")
	flag.StringVar(&gamePath, "game", "", "YAML game file")
	flag.StringVar(&random, "random", "", "Random game n,m,k")
	flag.StringVar(&inspection, "inspection", "", "Inspection Game s,p,q")
	flag.IntVar(&cournot, "cournot", 0, "CournotDuopoly with this many actions per player (needs -gamut)")
	flag.IntVar(&nominals, "k", 1, "Number of nominals for -inspection and -cournot")
	flag.StringVar(&jar, "gamut", "", "Path of gamut.jar")
	flag.Uint64Var(&seed, "seed", 0, "Random seed (0 = random)")
	flag.StringVar(&level, "log-level", "info", "Log level")
	flag.StringVar(&metrics, "metrics", "", "Write run metrics to this .prom file")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad log level")
	}
	log.Logger = log.Logger.Level(lvl)

	cfg, err := robust.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	src := gamut.Runner{Jar: jar, Log: log.Logger}

	var (
		g          *game.Game
		structured bool
	)
	switch {
	case gamePath != "":
		g, err = game.Load(gamePath)
	case random != "":
		var dims []int
		if dims, err = parseDims(random, 3); err == nil {
			g = game.Random(rng, dims[0], dims[1], dims[2])
		}
	case inspection != "":
		var dims []int
		if dims, err = parseDims(inspection, 3); err == nil {
			lows, highs := inspectionPayoffs(rng, cfg, nominals)
			if jar != "" {
				g, err = gamut.InspectionGame(ctx, src, dims[0], dims[1], dims[2], lows, highs)
			} else {
				g, err = game.Inspection(dims[0], dims[1], dims[2], lows, highs)
			}
			structured = true
		}
	case cournot > 0:
		g, err = gamut.CournotGame(ctx, src, rng, cournot, nominals)
	default:
		err = errors.New("one of -game, -random, -inspection or -cournot is required")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Game setup failed")
	}

	res, err := solve(ctx, cfg, g, structured, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal().Err(err).Msg("Output failed")
	}
}

// solve runs the driver on g and, when path is set, writes the run metrics there.
func solve(ctx context.Context, cfg robust.Config, g *game.Game, structured bool, path string) (*robust.Result, error) {
	reg := prometheus.NewRegistry()
	d, err := robust.New(cfg,
		robust.WithLogger(log.Logger),
		robust.WithMetrics(robust.NewMetrics(reg)))
	if err != nil {
		return nil, err
	}

	var res *robust.Result
	if structured {
		res, err = d.RunInspection(ctx, g)
	} else {
		res, err = d.Run(ctx, g)
	}
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			return res, fmt.Errorf("write metrics: %w", err)
		}
	}
	return res, nil
}

// parseDims reads want comma-separated positive integers.
func parseDims(s string, want int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("want %d comma-separated values, got %q", want, s)
	}
	dims := make([]int, want)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("value %d of %q is not positive", v, s)
		}
		dims[i] = v
	}
	return dims, nil
}

// inspectionPayoffs draws low and high follower payoffs uniformly inside the oracle bounds.
func inspectionPayoffs(rng *rand.Rand, cfg robust.Config, k int) (lows, highs []float64) {
	b := cfg.Inspection.Bounds
	lows, highs = make([]float64, k), make([]float64, k)
	for j := range lows {
		lows[j] = b.LowMin + (b.LowMax-b.LowMin)*rng.Float64()
		highs[j] = b.HighMin + (b.HighMax-b.HighMin)*rng.Float64()
	}
	return lows, highs
}
