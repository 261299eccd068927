// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package robust

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/stackelberg/oracle"
)

var ErrConfig = errors.New("robust: invalid configuration")

// Config drives one run of the cutting-plane loop.
type Config struct {
	// Exponent is the Wasserstein exponent t.
	Exponent float64 `yaml:"exponent" validate:"gt=0"`
	// Radius is the ambiguity radius θ.
	Radius float64 `yaml:"radius" validate:"gte=0"`
	BigM   float64 `yaml:"big_m" validate:"gte=1"`
	// Tolerance ε stops the loop once Gamma ≥ -ε.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
	MaxIter   int     `yaml:"max_iter" validate:"gte=1"`

	// TimeLimit bounds each master and oracle solve, zero means none.
	TimeLimit time.Duration `yaml:"time_limit" validate:"gte=0"`
	// A master that times out without incumbent is retried up to MaxRetries times,
	// each with the previous limit multiplied by RetryBackoff.
	MaxRetries   int     `yaml:"max_retries" validate:"gte=0"`
	RetryBackoff float64 `yaml:"retry_backoff" validate:"gte=1"`

	// Workers > 1 solves the nominals of an iteration concurrently.
	Workers int `yaml:"workers" validate:"gte=1"`
	// Margin is the strict-preference gap of the generic oracle.
	Margin     float64          `yaml:"margin" validate:"gt=0"`
	Inspection InspectionConfig `yaml:"inspection"`
}

// InspectionConfig tunes the Inspection Game oracle.
type InspectionConfig struct {
	Bounds oracle.Bounds `yaml:"bounds"`
	Margin float64       `yaml:"margin" validate:"gt=0"`
}

// DefaultConfig returns t = 2, θ = 0.1, M = 2, ε = 1e-2 and 200 iterations.
func DefaultConfig() Config {
	return Config{
		Exponent:     2,
		Radius:       0.1,
		BigM:         2,
		Tolerance:    1e-2,
		MaxIter:      200,
		TimeLimit:    1000 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 2,
		Workers:      1,
		Margin:       1e-5,
		Inspection: InspectionConfig{
			Bounds: oracle.DefaultBounds(),
			Margin: 1e-3,
		},
	}
}

var validate = validator.New()

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// LoadConfig reads a YAML file on top of DefaultConfig, then applies the
// STACKELBERG_* variables of the environment and of an optional .env file.
// An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	_ = godotenv.Load()
	if err := cfg.overrideFromEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) overrideFromEnv() error {
	floats := map[string]*float64{
		"STACKELBERG_EXPONENT":      &c.Exponent,
		"STACKELBERG_RADIUS":        &c.Radius,
		"STACKELBERG_BIG_M":         &c.BigM,
		"STACKELBERG_TOLERANCE":     &c.Tolerance,
		"STACKELBERG_RETRY_BACKOFF": &c.RetryBackoff,
		"STACKELBERG_MARGIN":        &c.Margin,
	}
	for key, dst := range floats {
		if val := os.Getenv(key); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrConfig, key, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"STACKELBERG_MAX_ITER":    &c.MaxIter,
		"STACKELBERG_MAX_RETRIES": &c.MaxRetries,
		"STACKELBERG_WORKERS":     &c.Workers,
	}
	for key, dst := range ints {
		if val := os.Getenv(key); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrConfig, key, err)
			}
			*dst = n
		}
	}

	if val := os.Getenv("STACKELBERG_TIME_LIMIT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%w: STACKELBERG_TIME_LIMIT: %w", ErrConfig, err)
		}
		c.TimeLimit = d
	}
	return nil
}
