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

// Package rediscache wraps a policy.Store with a Redis read-through
// cache for the two lookups the Decision Engine's hot path repeats
// most: a user's permission tuples and a tenant's module subscription.
// The cache is strictly an optimization per spec.md §5: any Redis
// error or miss falls through to the wrapped store, never to a denial.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opentrusty/rbac-core/policy"
)

// Recorder observes cache hit/miss outcomes. metrics.Recorder satisfies
// this; a nil Recorder is a silent no-op.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

type noopRecorder struct{}

func (noopRecorder) CacheHit()  {}
func (noopRecorder) CacheMiss() {}

// Store decorates a policy.Store with TTL-only read-through caching.
//
// Purpose: Keep the decision path inside its latency budget without
// introducing active cache invalidation.
// Domain: Policy (Infrastructure)
type Store struct {
	next     policy.Store
	client   redis.UniversalClient
	ttl      time.Duration
	recorder Recorder
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder attaches a Recorder for cache hit/miss metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithTTL overrides the default 30s cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New wraps next with a Redis read-through cache.
func New(next policy.Store, client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		next:     next,
		client:   client,
		ttl:      30 * time.Second,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveEndpoint and ListEndpoints are not cached: the catalog changes
// far less often than permission/subscription data but is read far
// less often too (only on a resolver miss), so the complexity of
// caching it isn't worth it. Delegated straight through.
func (s *Store) ResolveEndpoint(ctx context.Context, path string) (*policy.ApiEndpoint, error) {
	return s.next.ResolveEndpoint(ctx, path)
}

func (s *Store) ListEndpoints(ctx context.Context) ([]*policy.ApiEndpoint, error) {
	return s.next.ListEndpoints(ctx)
}

func (s *Store) FindOperation(ctx context.Context, endpointID, httpMethod string) (*policy.ApiOperation, error) {
	return s.next.FindOperation(ctx, endpointID, httpMethod)
}

// TenantModuleLookup is cached by (tenant, module, submodule).
func (s *Store) TenantModuleLookup(ctx context.Context, tenantID, moduleCode string, subModuleCode *string) (*policy.TenantModule, error) {
	key := tenantModuleKey(tenantID, moduleCode, subModuleCode)

	if cached, ok := s.getCached(ctx, key); ok {
		var tm policy.TenantModule
		if err := json.Unmarshal(cached, &tm); err == nil {
			s.recorder.CacheHit()
			return &tm, nil
		}
	}
	s.recorder.CacheMiss()

	tm, err := s.next.TenantModuleLookup(ctx, tenantID, moduleCode, subModuleCode)
	if err != nil {
		return nil, err
	}
	if tm != nil {
		s.setCached(ctx, key, tm)
	}
	return tm, nil
}

func (s *Store) TenantOverrideDisabled(ctx context.Context, tenantID, apiOperationID string) (bool, error) {
	return s.next.TenantOverrideDisabled(ctx, tenantID, apiOperationID)
}

func (s *Store) UserBlocked(ctx context.Context, tenantID, userID, apiOperationID string) (bool, error) {
	return s.next.UserBlocked(ctx, tenantID, userID, apiOperationID)
}

// UserPermissionTuples is cached by (tenant, user).
func (s *Store) UserPermissionTuples(ctx context.Context, tenantID, userID string) ([]policy.PermissionTuple, error) {
	key := permissionTuplesKey(tenantID, userID)

	if cached, ok := s.getCached(ctx, key); ok {
		var tuples []policy.PermissionTuple
		if err := json.Unmarshal(cached, &tuples); err == nil {
			s.recorder.CacheHit()
			return tuples, nil
		}
	}
	s.recorder.CacheMiss()

	tuples, err := s.next.UserPermissionTuples(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	s.setCached(ctx, key, tuples)
	return tuples, nil
}

func (s *Store) getCached(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.WarnContext(ctx, "rediscache: get failed, falling back to store", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (s *Store) setCached(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "rediscache: set failed", "key", key, "error", err)
	}
}

func tenantModuleKey(tenantID, moduleCode string, subModuleCode *string) string {
	sub := ""
	if subModuleCode != nil {
		sub = *subModuleCode
	}
	return fmt.Sprintf("rbac:tm:%s:%s:%s", tenantID, moduleCode, sub)
}

func permissionTuplesKey(tenantID, userID string) string {
	return fmt.Sprintf("rbac:perms:%s:%s", tenantID, userID)
}
