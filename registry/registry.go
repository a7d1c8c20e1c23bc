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

// Package registry is the explicit handler registration API that
// replaces dynamic route introspection. Every HTTP handler declares
// its (module, submodule, action) at wire-up time, building the
// central table the catalog synchronizer (C6) reads instead of
// reflecting over the router.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Entry is one registered (method, path) → (module, submodule, action)
// declaration.
type Entry struct {
	Method        string
	Path          string
	ModuleCode    string
	SubModuleCode *string
	ActionCode    string // empty means "use the HTTP-method default"
}

// Registry accumulates Entry declarations made at wire-up time. It is
// safe for concurrent registration, though in practice registration
// happens once, sequentially, during process start.
//
// Purpose: Auditable source of truth C6 reconciles against.
// Domain: Policy
type Registry struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register declares a handler's (module, submodule, action). It panics
// on a duplicate (method, path) registration: that is a programming
// error caught at wire-up time, not a runtime condition to recover from.
func (r *Registry) Register(method, path, moduleCode string, subModuleCode *string, actionCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.Method == method && e.Path == path {
			panic(fmt.Sprintf("registry: duplicate registration for %s %s", method, path))
		}
	}

	r.entries = append(r.entries, Entry{
		Method:        method,
		Path:          path,
		ModuleCode:    moduleCode,
		SubModuleCode: subModuleCode,
		ActionCode:    actionCode,
	})
}

// Entries returns a deterministically ordered snapshot of every
// registered entry, sorted by (path, method) so C6 runs are reproducible.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
