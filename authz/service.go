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

// Package authz implements the Decision Engine (C3): the seven-layer,
// deny-wins evaluator that turns a resolved operation plus a (tenant,
// user) pair into an Allow/Deny verdict.
package authz

import (
	"context"
	"log/slog"
	"time"

	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/resolver"
)

// Recorder observes decision outcomes for metrics. Implementations must
// not block the hot path; the metrics package's Prometheus-backed
// Recorder satisfies this with plain counter/histogram increments.
type Recorder interface {
	ObserveDecision(violation policy.ViolationKind, allowed bool, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveDecision(policy.ViolationKind, bool, time.Duration) {}

// Service evaluates the seven-layer policy. It is stateless: every
// Evaluate call is independent and safe for concurrent use.
//
// Purpose: Core authorization engine (C3).
// Domain: Authz
type Service struct {
	store    policy.Store
	resolver *resolver.Resolver
	recorder Recorder
	clock    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder attaches a metrics Recorder. Defaults to a no-op.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the time source used for L3b expiry checks; tests
// use this to pin "now" instead of relying on time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a new Decision Engine over the given policy store.
func NewService(store policy.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		resolver: resolver.New(store),
		recorder: noopRecorder{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate resolves (method, path) to an operation and evaluates all
// seven layers for (tenantID, userID). It never returns an error for an
// ordinary denial: denials are expressed through the returned
// policy.Decision. A non-nil error indicates the policy store itself
// failed (a system error, not a policy verdict).
func (s *Service) Evaluate(ctx context.Context, tenantID, userID, method, path string) (policy.Decision, error) {
	start := time.Now()
	decision, err := s.evaluate(ctx, tenantID, userID, method, path)
	if err != nil {
		return policy.Decision{}, err
	}

	s.recorder.ObserveDecision(decision.Violation, decision.Allowed, time.Since(start))
	if !decision.Allowed {
		slog.WarnContext(ctx, "authz: access denied",
			"tenant_id", tenantID,
			"user_id", userID,
			"method", method,
			"path", path,
			"violation", decision.Violation,
			"detail", decision.Detail,
		)
	}
	return decision, nil
}

func (s *Service) evaluate(ctx context.Context, tenantID, userID, method, path string) (policy.Decision, error) {
	// L1: Operation resolved?
	endpoint, op, err := s.resolver.Resolve(ctx, method, path)
	if err != nil {
		if err == resolver.ErrUnresolved {
			return policy.Deny(policy.ViolationAPINotRegistered, "no registered endpoint or operation matches the request"), nil
		}
		return policy.Decision{}, err
	}

	// L2: operation.enabled
	if !op.Enabled {
		return policy.Deny(policy.ViolationAPIDisabledGlobally, "operation is disabled globally"), nil
	}

	// L3/L3a/L3b: tenant module subscription
	tm, err := s.store.TenantModuleLookup(ctx, tenantID, endpoint.ModuleCode, endpoint.SubModuleCode)
	if err != nil {
		return policy.Decision{}, err
	}
	if tm == nil {
		return policy.Deny(policy.ViolationTenantNotSubscribed, "tenant is not subscribed to this module"), nil
	}
	if !tm.Enabled {
		return policy.Deny(policy.ViolationModuleDisabledTenant, "module is disabled for this tenant"), nil
	}
	if tm.Expired(s.clock()) {
		return policy.Deny(policy.ViolationSubscriptionExpired, "tenant's module subscription has expired"), nil
	}

	// L4: tenant-level override
	disabled, err := s.store.TenantOverrideDisabled(ctx, tenantID, op.ID)
	if err != nil {
		return policy.Decision{}, err
	}
	if disabled {
		return policy.Deny(policy.ViolationAPIDisabledForTenant, "operation is disabled for this tenant"), nil
	}

	// L5: per-user block
	blocked, err := s.store.UserBlocked(ctx, tenantID, userID, op.ID)
	if err != nil {
		return policy.Decision{}, err
	}
	if blocked {
		return policy.Deny(policy.ViolationAPIBlockedForUser, "operation is blocked for this user"), nil
	}

	// L6: action derivable
	action, ok := op.ResolvedAction()
	if !ok {
		return policy.Deny(policy.ViolationUnknownActionMapping, "no action code declared and no HTTP-method default exists"), nil
	}

	// L7: permission tuples
	tuples, err := s.store.UserPermissionTuples(ctx, tenantID, userID)
	if err != nil {
		return policy.Decision{}, err
	}
	for _, t := range tuples {
		if t.ActionCode != action {
			continue
		}
		if t.CoversSubModule(endpoint.ModuleCode, endpoint.SubModuleCode) {
			return policy.Allow, nil
		}
	}
	return policy.Deny(policy.ViolationPermissionDenied, "user holds no permission tuple covering this module/submodule/action"), nil
}
