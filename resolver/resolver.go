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

// Package resolver maps an incoming (HTTP method, path) pair to the
// registered ApiOperation it invokes: the Endpoint Resolver (C2).
package resolver

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/opentrusty/rbac-core/policy"
)

// ErrUnresolved is returned when no registered endpoint or operation
// matches the request. The decision engine turns this into
// policy.ViolationAPINotRegistered.
var ErrUnresolved = errors.New("resolver: no matching endpoint or operation")

var paramSegment = regexp.MustCompile(`^\{[^{}/]+\}$`)

// Resolver is side-effect-free and safe for concurrent use: it holds no
// mutable state of its own, delegating every lookup to the policy.Store.
//
// Purpose: C2 Endpoint Resolver.
// Domain: Policy
type Resolver struct {
	store policy.Store
}

// New constructs a Resolver over the given policy store.
func New(store policy.Store) *Resolver {
	return &Resolver{store: store}
}

// Normalize trims a request path to canonical form: trailing slash
// stripped except for root.
func Normalize(path string) string {
	if path != "/" && strings.HasSuffix(path, "/") {
		return strings.TrimSuffix(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

// Resolve maps (method, path) to the ApiOperation it invokes.
func (r *Resolver) Resolve(ctx context.Context, method, path string) (*policy.ApiEndpoint, *policy.ApiOperation, error) {
	method = strings.ToUpper(method)
	path = Normalize(path)

	endpoint, err := r.matchEndpoint(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if endpoint == nil {
		return nil, nil, ErrUnresolved
	}

	op, err := r.store.FindOperation(ctx, endpoint.ID, method)
	if err != nil {
		return nil, nil, err
	}
	if op == nil {
		return nil, nil, ErrUnresolved
	}
	return endpoint, op, nil
}

// matchEndpoint implements spec.md §4.2's two-phase lookup: an exact
// path match, falling back to parameterized-template matching with
// longest-literal-prefix then lexicographic tie-breaking.
func (r *Resolver) matchEndpoint(ctx context.Context, path string) (*policy.ApiEndpoint, error) {
	exact, err := r.store.ResolveEndpoint(ctx, path)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return exact, nil
	}

	endpoints, err := r.store.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []*policy.ApiEndpoint
	for _, e := range endpoints {
		if !strings.Contains(e.Path, "{") {
			continue // exact-path endpoints were already checked above
		}
		re, err := templateToRegexp(e.Path)
		if err != nil {
			continue // malformed template: skip rather than fail the whole resolution
		}
		if re.MatchString(path) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := literalPrefixLen(candidates[i].Path), literalPrefixLen(candidates[j].Path)
		if pi != pj {
			return pi > pj // longer literal prefix wins
		}
		return candidates[i].Path < candidates[j].Path // lexicographic tie-break
	})
	return candidates[0], nil
}

// templateToRegexp converts a stored path template such as
// "/accounts/{id}/invoices/{invoiceId}" into an anchored regexp where
// each {name} placeholder matches exactly one path segment.
func templateToRegexp(template string) (*regexp.Regexp, error) {
	segments := strings.Split(template, "/")
	for i, seg := range segments {
		if paramSegment.MatchString(seg) {
			segments[i] = "[^/]+"
		} else {
			segments[i] = regexp.QuoteMeta(seg)
		}
	}
	return regexp.Compile("^" + strings.Join(segments, "/") + "$")
}

// literalPrefixLen returns the length of the path template up to (not
// including) its first parameter placeholder.
func literalPrefixLen(template string) int {
	if idx := strings.Index(template, "{"); idx >= 0 {
		return idx
	}
	return len(template)
}
