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

package policy

import "context"

// OverrideRepository defines the write path for the two hard-deny
// admin levers layers L4 and L5 read through Store: a per-tenant
// operation kill switch (TenantApiOverride) and a per-user hard block
// (UserApiBlock).
//
// Purpose: Abstraction for managing tenant overrides and user blocks.
// Domain: Policy
type OverrideRepository interface {
	// SetTenantOverride creates or updates the TenantApiOverride row for
	// (tenant, operation). enabled=false disables the operation for that
	// tenant at layer L4; enabled=true only clears that L4 denial, since
	// an operation disabled globally is denied at L2 before L4 is read.
	SetTenantOverride(ctx context.Context, tenantID, apiOperationID string, enabled bool) (*TenantApiOverride, error)

	// ClearTenantOverride removes the override, returning the operation
	// to its global enabled/disabled state for this tenant.
	ClearTenantOverride(ctx context.Context, tenantID, apiOperationID string) error

	// BlockUser creates a UserApiBlock row, denying the user the
	// operation regardless of any role grant.
	BlockUser(ctx context.Context, tenantID, userID, apiOperationID, reason string) (*UserApiBlock, error)

	// UnblockUser removes the UserApiBlock row, if any.
	UnblockUser(ctx context.Context, tenantID, userID, apiOperationID string) error
}
