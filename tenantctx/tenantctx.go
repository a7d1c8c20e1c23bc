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

// Package tenantctx carries the per-request tenant and user identity
// (C5 Tenant Context) so downstream data-access code can filter by
// tenant without threading the value through every call.
package tenantctx

import (
	"context"
	"log/slog"
)

type tenantKey struct{}
type userKey struct{}

// WithTenant attaches a tenant ID to the context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// FromContext retrieves the tenant ID. Returns ("", false) if unset.
func FromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(string)
	return tenantID, ok
}

// MustFromContext retrieves the tenant ID, panicking if unset. Use only
// in code paths the interceptor guarantees already set one.
func MustFromContext(ctx context.Context) string {
	tenantID, ok := FromContext(ctx)
	if !ok || tenantID == "" {
		panic("tenantctx: no tenant in context")
	}
	return tenantID
}

// WithUser attaches the authenticated user ID to the context.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext retrieves the authenticated user ID. Returns ("",
// false) for an anonymous request.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	return userID, ok
}

// LoggerExtractor returns a slog.Attr for the request's tenant ID, for
// handlers that want to enrich their own log lines with it.
func LoggerExtractor(ctx context.Context) (slog.Attr, bool) {
	if tenantID, ok := FromContext(ctx); ok {
		return slog.String("tenant_id", tenantID), true
	}
	return slog.Attr{}, false
}
