// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics publishes Prometheus counters and histograms for the
// Decision Engine (C3) and the cache layer in front of the Policy
// Store (C1). A metrics failure must never influence a verdict: every
// method here is a plain counter/histogram increment and cannot error.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opentrusty/rbac-core/policy"
)

// Recorder implements authz.Recorder and the cache-hit counters
// store/rediscache reports against, backed by Prometheus collectors.
//
// Purpose: Observability for the authorization hot path.
// Domain: Platform (Infrastructure)
type Recorder struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration prometheus.Histogram
	cacheHitsTotal   *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors against reg. Pass
// prometheus.DefaultRegisterer to publish on the process-wide registry
// that cmd/rbacd exposes on /metrics.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions, labeled by violation kind (empty for Allow).",
		}, []string{"violation"}),
		decisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authz_decision_duration_seconds",
			Help:    "Latency of a single Decision Engine evaluation.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolver_cache_hits_total",
			Help: "Read-through cache hits and misses in front of the policy store, labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(r.decisionsTotal, r.decisionDuration, r.cacheHitsTotal)
	return r
}

// ObserveDecision records a Decision Engine verdict. Satisfies
// authz.Recorder.
func (r *Recorder) ObserveDecision(violation policy.ViolationKind, allowed bool, elapsed time.Duration) {
	label := string(violation)
	if allowed {
		label = ""
	}
	r.decisionsTotal.WithLabelValues(label).Inc()
	r.decisionDuration.Observe(elapsed.Seconds())
}

// CacheHit records a read-through cache hit.
func (r *Recorder) CacheHit() {
	r.cacheHitsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss records a read-through cache miss (including a fallback
// caused by a cache-backend error).
func (r *Recorder) CacheMiss() {
	r.cacheHitsTotal.WithLabelValues("miss").Inc()
}
