// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package robust

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by the driver.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Iterations     prometheus.Counter
	Expansions     prometheus.Counter
	MasterTimeouts prometheus.Counter
	OracleFailures prometheus.Counter
	MasterSeconds  prometheus.Histogram
	OracleSeconds  prometheus.Histogram
	Gamma          prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackelberg_iterations_total",
			Help: "Completed cutting-plane iterations.",
		}),
		Expansions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackelberg_support_expansions_total",
			Help: "Follower utilities appended to the supports.",
		}),
		MasterTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackelberg_master_timeouts_total",
			Help: "Master solves that hit the time limit.",
		}),
		OracleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackelberg_oracle_failures_total",
			Help: "Oracle subproblems that ended without a solution.",
		}),
		MasterSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackelberg_master_solve_seconds",
			Help:    "Latency of master solves.",
			Buckets: prometheus.DefBuckets,
		}),
		OracleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackelberg_oracle_solve_seconds",
			Help:    "Latency of per-nominal oracle solves.",
			Buckets: prometheus.DefBuckets,
		}),
		Gamma: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stackelberg_gamma",
			Help: "Gamma of the last iteration.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Iterations, m.Expansions, m.MasterTimeouts, m.OracleFailures,
			m.MasterSeconds, m.OracleSeconds, m.Gamma)
	}
	return m
}

func (m *Metrics) master(d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.MasterSeconds.Observe(d.Seconds())
	if timedOut {
		m.MasterTimeouts.Inc()
	}
}

func (m *Metrics) oracle(d time.Duration, failures int) {
	if m == nil {
		return
	}
	m.OracleSeconds.Observe(d.Seconds())
	m.OracleFailures.Add(float64(failures))
}

func (m *Metrics) iteration(gamma float64, expansions int) {
	if m == nil {
		return
	}
	m.Iterations.Inc()
	m.Expansions.Add(float64(expansions))
	m.Gamma.Set(gamma)
}
