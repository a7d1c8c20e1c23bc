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

import (
	"context"
	"fmt"

	"github.com/opentrusty/rbac-core/audit"
)

// OverrideService provides the admin-facing business logic for layers
// L4 (tenant override) and L5 (user block), auditing every mutation
// since both are hard denies that bypass role grants entirely.
//
// Purpose: Tenant- and user-level kill switches on top of the catalog.
// Domain: Policy
type OverrideService struct {
	repo        OverrideRepository
	auditLogger audit.Logger
}

// NewOverrideService creates a new override service.
func NewOverrideService(repo OverrideRepository, auditLogger audit.Logger) *OverrideService {
	return &OverrideService{repo: repo, auditLogger: auditLogger}
}

// DisableForTenant forces an operation off for one tenant, independent
// of the operation's global enabled flag.
func (s *OverrideService) DisableForTenant(ctx context.Context, tenantID, apiOperationID, actorID string) (*TenantApiOverride, error) {
	return s.setTenantOverride(ctx, tenantID, apiOperationID, false, actorID)
}

// EnableForTenant records an enabled override for one tenant, so layer
// L4 no longer denies the operation for it. It does not lift a global
// disable: layer L2 still denies an operation whose enabled flag is off.
func (s *OverrideService) EnableForTenant(ctx context.Context, tenantID, apiOperationID, actorID string) (*TenantApiOverride, error) {
	return s.setTenantOverride(ctx, tenantID, apiOperationID, true, actorID)
}

func (s *OverrideService) setTenantOverride(ctx context.Context, tenantID, apiOperationID string, enabled bool, actorID string) (*TenantApiOverride, error) {
	override, err := s.repo.SetTenantOverride(ctx, tenantID, apiOperationID, enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to set tenant override: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantOverrideSet,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: audit.ResourceAPIOperation,
		TargetID: apiOperationID,
		Metadata: map[string]any{"enabled": enabled},
	})
	return override, nil
}

// ClearTenantOverride removes a tenant's override, if one exists.
func (s *OverrideService) ClearTenantOverride(ctx context.Context, tenantID, apiOperationID, actorID string) error {
	if err := s.repo.ClearTenantOverride(ctx, tenantID, apiOperationID); err != nil {
		return fmt.Errorf("failed to clear tenant override: %w", err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantOverrideCleared,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: audit.ResourceAPIOperation,
		TargetID: apiOperationID,
	})
	return nil
}

// BlockUser hard-denies a user a single operation, independent of any
// role they hold. Governs layer L5, the highest-priority deny.
func (s *OverrideService) BlockUser(ctx context.Context, tenantID, userID, apiOperationID, reason, actorID string) (*UserApiBlock, error) {
	block, err := s.repo.BlockUser(ctx, tenantID, userID, apiOperationID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to block user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeUserBlocked,
		TenantID:   tenantID,
		ActorID:    actorID,
		Resource:   audit.ResourceAPIOperation,
		TargetName: userID,
		TargetID:   apiOperationID,
		Metadata:   map[string]any{"reason": reason, "user_id": userID},
	})
	return block, nil
}

// UnblockUser removes a user's hard block on an operation, if any.
func (s *OverrideService) UnblockUser(ctx context.Context, tenantID, userID, apiOperationID, actorID string) error {
	if err := s.repo.UnblockUser(ctx, tenantID, userID, apiOperationID); err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeUserUnblocked,
		TenantID:   tenantID,
		ActorID:    actorID,
		Resource:   audit.ResourceAPIOperation,
		TargetName: userID,
		TargetID:   apiOperationID,
		Metadata:   map[string]any{"user_id": userID},
	})
	return nil
}
