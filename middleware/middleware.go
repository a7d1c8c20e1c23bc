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

// Package middleware implements the Request Interceptor (C4): a thin
// go-chi adapter that classifies bypass paths, extracts the
// authenticated principal and tenant, invokes the resolver and
// decision engine, and translates a Deny into the structured error
// contract.
package middleware

import (
	"net/http"
	"strings"

	"github.com/opentrusty/rbac-core/apierr"
	"github.com/opentrusty/rbac-core/audit"
	"github.com/opentrusty/rbac-core/authz"
	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/tenantctx"
)

// writeMethods are the HTTP methods whose Allow verdicts are audited
// alongside every Deny verdict, per spec.md's audit trail requirement:
// reads are high-volume and low-risk, writes are not.
var writeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// DefaultBypassPrefixes are the infrastructure paths the interceptor
// passes through untouched, per spec.md §6.
var DefaultBypassPrefixes = []string{
	"/admin/",
	"/accounts/",
	"/dashboard/",
	"/static/",
	"/media/",
	"/favicon.ico",
	"/api/schema/",
	"/api/docs/",
}

// PrincipalExtractor extracts the authenticated user ID and tenant ID
// from an incoming request. It is supplied by the caller because
// authentication is an external collaborator: the interceptor only
// consumes its outcome. A zero-value (userID == "") return means
// anonymous, and the interceptor passes the request through
// unevaluated so the authentication layer can handle it.
type PrincipalExtractor func(r *http.Request) (userID, tenantID string, ok bool)

// Config configures Authorize.
type Config struct {
	BypassPrefixes []string
	Extractor      PrincipalExtractor

	// Audit records every Deny verdict and every Allow for a write
	// operation. Defaults to audit.NewSlogLogger() when nil.
	Audit audit.Logger
}

// Authorize builds the C4 Request Interceptor as go-chi middleware.
func Authorize(engine *authz.Service, cfg Config) func(http.Handler) http.Handler {
	bypassPrefixes := cfg.BypassPrefixes
	if bypassPrefixes == nil {
		bypassPrefixes = DefaultBypassPrefixes
	}
	auditLogger := cfg.Audit
	if auditLogger == nil {
		auditLogger = audit.NewSlogLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Infrastructure bypass.
			for _, prefix := range bypassPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// 2. Anonymous pass-through: authentication handles its own denial.
			userID, tenantID, ok := cfg.Extractor(r)
			if !ok || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := tenantctx.WithTenant(r.Context(), tenantID)
			ctx = tenantctx.WithUser(ctx, userID)
			r = r.WithContext(ctx)

			// 3. Resolve + evaluate.
			decision, err := engine.Evaluate(r.Context(), tenantID, userID, r.Method, r.URL.Path)
			if err != nil {
				apierr.Write(w, r.URL.Path, err)
				return
			}
			if !decision.Allowed {
				auditDecision(r, auditLogger, tenantID, userID, decision)
				apierr.WriteDenial(w, r.URL.Path, decision)
				return
			}
			if writeMethods[r.Method] {
				auditDecision(r, auditLogger, tenantID, userID, decision)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// auditDecision emits an audit.Event for a Decision Engine verdict.
// Allow events carry no violation/detail; Deny events carry both.
func auditDecision(r *http.Request, logger audit.Logger, tenantID, userID string, decision policy.Decision) {
	eventType := audit.TypeAccessGranted
	metadata := map[string]any{
		audit.AttrMethod: r.Method,
		audit.AttrPath:   r.URL.Path,
	}
	if !decision.Allowed {
		eventType = audit.TypeAccessDenied
		metadata[audit.AttrViolation] = string(decision.Violation)
		metadata[audit.AttrDetail] = decision.Detail
	}

	logger.Log(r.Context(), audit.Event{
		Type:       eventType,
		TenantID:   tenantID,
		ActorID:    userID,
		Resource:   audit.ResourceAPIOperation,
		TargetName: r.URL.Path,
		Metadata:   metadata,
	})
}
