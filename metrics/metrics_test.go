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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/opentrusty/rbac-core/policy"
)

func TestObserveDecisionLabelsAllowEmpty(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveDecision("", true, 2*time.Millisecond)
	r.ObserveDecision(policy.ViolationAPIBlockedForUser, false, 1*time.Millisecond)

	if got := testutil.ToFloat64(r.decisionsTotal.WithLabelValues("")); got != 1 {
		t.Errorf("allow count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.decisionsTotal.WithLabelValues(string(policy.ViolationAPIBlockedForUser))); got != 1 {
		t.Errorf("deny count = %v, want 1", got)
	}
}

func TestCacheHitAndMissCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.CacheHit()
	r.CacheHit()
	r.CacheMiss()

	if got := testutil.ToFloat64(r.cacheHitsTotal.WithLabelValues("hit")); got != 2 {
		t.Errorf("hit count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.cacheHitsTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss count = %v, want 1", got)
	}
}
