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

// Package endpoint defines the write-side repository for the catalog
// (ApiEndpoint/ApiOperation) the synchronizer (C6) reconciles and the
// resolver (C2) reads through policy.Store.
package endpoint

import (
	"context"

	"github.com/opentrusty/rbac-core/policy"
)

// Repository defines get-or-create persistence for the endpoint catalog.
//
// Purpose: Abstraction for managing the endpoint/operation catalog storage.
// Domain: Policy
type Repository interface {
	policy.Store

	// UpsertEndpoint creates the endpoint by path if absent, or updates its
	// module/submodule if they changed. Returns the stored row either way.
	UpsertEndpoint(ctx context.Context, path, moduleCode string, subModuleCode *string) (*policy.ApiEndpoint, bool, error)

	// UpsertOperation creates the operation by (endpoint, method) if
	// absent, leaving existing enabled/action_code values intact on an
	// update (per spec.md §4.6 step 6). Returns the stored row and
	// whether a row was created.
	UpsertOperation(ctx context.Context, endpointID, httpMethod, defaultActionCode string) (*policy.ApiOperation, bool, error)

	// SetOperationEnabled toggles an operation's global enabled flag
	// (layer L2).
	SetOperationEnabled(ctx context.Context, operationID string, enabled bool) error

	// SetOperationAction sets the explicit action code required by an operation.
	SetOperationAction(ctx context.Context, operationID, actionCode string) error
}
