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

package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opentrusty/rbac-core/endpoint"
	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/registry"
)

// Change describes one endpoint or operation the synchronizer created
// or would create, for reporting in both real and dry-run modes.
type Change struct {
	Kind       string // "endpoint" or "operation"
	Path       string
	Method     string // empty for endpoint-only changes
	Created    bool   // false means it already existed (an endpoint's module/submodule may still have been updated)
	ModuleCode string
}

// Options configures a synchronization run.
type Options struct {
	DryRun        bool
	SkipPaths     []string
	SkipModules   []string
	SkipOperation func(entry registry.Entry) bool
}

// Sync reconciles the persisted catalog against the registry snapshot,
// per spec.md §4.6. It is idempotent: re-running with no registry
// changes produces zero Changes with Created=true.
func Sync(ctx context.Context, repo endpoint.Repository, reg *registry.Registry, opts Options) ([]Change, error) {
	skipPrefixes := opts.SkipPaths
	if skipPrefixes == nil {
		skipPrefixes = DefaultSkipPrefixes
	}

	var changes []Change
	seenPaths := make(map[string]bool)

	for _, entry := range reg.Entries() {
		path := NormalizePath(entry.Path)
		if HasSkipPrefix(path, skipPrefixes) {
			continue
		}
		if opts.SkipOperation != nil && opts.SkipOperation(entry) {
			continue
		}
		if moduleSkipped(entry.ModuleCode, opts.SkipModules) {
			continue
		}

		moduleCode := entry.ModuleCode
		if moduleCode == "" {
			moduleCode = policy.SystemModule
		}

		ep, err := repo.ResolveEndpoint(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("catalog: resolve endpoint %s: %w", path, err)
		}
		endpointIsNew := ep == nil

		if !seenPaths[path] {
			seenPaths[path] = true
			if !opts.DryRun {
				ep, _, err = repo.UpsertEndpoint(ctx, path, moduleCode, entry.SubModuleCode)
				if err != nil {
					return nil, fmt.Errorf("catalog: upsert endpoint %s: %w", path, err)
				}
			}
			changes = append(changes, Change{Kind: "endpoint", Path: path, ModuleCode: moduleCode, Created: endpointIsNew})
		}

		actionCode := entry.ActionCode
		if actionCode == "" {
			if def, ok := policy.DefaultActionForMethod(entry.Method); ok {
				actionCode = def
			}
		}

		opChange := Change{Kind: "operation", Path: path, Method: entry.Method, ModuleCode: moduleCode}

		if opts.DryRun {
			opIsNew := true
			if ep != nil {
				existingOp, err := repo.FindOperation(ctx, ep.ID, entry.Method)
				if err != nil {
					return nil, fmt.Errorf("catalog: find operation %s %s: %w", entry.Method, path, err)
				}
				opIsNew = existingOp == nil
			}
			opChange.Created = opIsNew
			changes = append(changes, opChange)
			continue
		}

		if ep == nil {
			ep, _, err = repo.UpsertEndpoint(ctx, path, moduleCode, entry.SubModuleCode)
			if err != nil {
				return nil, fmt.Errorf("catalog: resolve endpoint for operation %s %s: %w", entry.Method, path, err)
			}
		}

		_, created, err := repo.UpsertOperation(ctx, ep.ID, entry.Method, actionCode)
		if err != nil {
			return nil, fmt.Errorf("catalog: upsert operation %s %s: %w", entry.Method, path, err)
		}
		opChange.Created = created
		changes = append(changes, opChange)

		slog.DebugContext(ctx, "catalog: reconciled operation",
			"method", entry.Method, "path", path, "module", moduleCode, "created", created)
	}

	return changes, nil
}

func moduleSkipped(moduleCode string, skipModules []string) bool {
	for _, m := range skipModules {
		if m == moduleCode {
			return true
		}
	}
	return false
}
