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

// Package catalog implements the Endpoint Catalog Synchronizer (C6):
// an offline tool that reconciles the persisted ApiEndpoint/ApiOperation
// catalog with a registry.Registry snapshot of the application's routes.
package catalog

import (
	"regexp"
	"strings"
)

var (
	namedGroupPattern = regexp.MustCompile(`\(\?P<([A-Za-z0-9_]+)>[^)]*\)`)
	typedParamPattern = regexp.MustCompile(`<(?:[A-Za-z]+:)?([A-Za-z0-9_]+)>`)
	duplicateSlashes  = regexp.MustCompile(`/{2,}`)
)

// NormalizePath converts a raw route path template into the catalog's
// canonical form, per spec.md §4.6 step 2: strip regex anchors, convert
// named groups and typed placeholders to {name}, collapse duplicate
// slashes, ensure a leading slash, and strip any trailing slash except
// for root.
func NormalizePath(raw string) string {
	p := strings.TrimPrefix(raw, "^")
	p = strings.TrimSuffix(p, "$")

	p = namedGroupPattern.ReplaceAllString(p, "{$1}")
	p = typedParamPattern.ReplaceAllString(p, "{$1}")

	p = duplicateSlashes.ReplaceAllString(p, "/")

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p != "/" && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// HasSkipPrefix reports whether the normalized path begins with any of
// the configured skip prefixes (admin, docs, static, media, auth).
func HasSkipPrefix(normalizedPath string, skipPrefixes []string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(normalizedPath, prefix) {
			return true
		}
	}
	return false
}

// DefaultSkipPrefixes lists the Request Interceptor's default bypass
// prefixes except "/favicon.ico": routes under these paths are not
// catalog entries.
var DefaultSkipPrefixes = []string{
	"/admin/",
	"/accounts/",
	"/dashboard/",
	"/static/",
	"/media/",
	"/api/schema/",
	"/api/docs/",
}
