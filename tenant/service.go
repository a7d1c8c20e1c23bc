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

package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentrusty/rbac-core/audit"
	"github.com/opentrusty/rbac-core/id"
	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/role"
)

// Service provides tenant lifecycle and module-subscription business logic.
type Service struct {
	repo        Repository
	subRepo     SubscriptionRepository
	roleRepo    role.Repository
	auditLogger audit.Logger
}

// NewService creates a new tenant service.
func NewService(repo Repository, subRepo SubscriptionRepository, roleRepo role.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		subRepo:     subRepo,
		roleRepo:    roleRepo,
		auditLogger: auditLogger,
	}
}

// CreateTenant provisions a new tenant.
func (s *Service) CreateTenant(ctx context.Context, name string, actorID string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) < 3 || len(name) > 100 {
		return nil, ErrInvalidTenantName
	}

	if existing, err := s.repo.GetByName(ctx, name); err == nil && existing != nil {
		return nil, ErrTenantAlreadyExists
	}

	now := time.Now()
	t := &Tenant{
		ID:        id.NewUUIDv7(),
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeTenantCreated,
		TenantID:   t.ID,
		ActorID:    actorID,
		Resource:   audit.ResourceTenant,
		TargetName: t.Name,
		TargetID:   t.ID,
		Metadata: map[string]any{
			audit.AttrTenantID:   t.ID,
			audit.AttrTenantName: t.Name,
		},
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID.
func (s *Service) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	return s.repo.GetByID(ctx, tenantID)
}

// GetTenantByName retrieves a tenant by name.
func (s *Service) GetTenantByName(ctx context.Context, name string) (*Tenant, error) {
	return s.repo.GetByName(ctx, name)
}

// ListTenants retrieves tenants with pagination.
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateTenant updates a tenant's display name.
func (s *Service) UpdateTenant(ctx context.Context, tenantID, name, actorID string) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	oldName := t.Name
	if name != "" {
		t.Name = strings.TrimSpace(name)
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	metadata := map[string]any{
		audit.AttrTenantID:   tenantID,
		audit.AttrTenantName: t.Name,
	}
	if oldName != t.Name {
		metadata["changes"] = map[string]string{"name_from": oldName, "name_to": t.Name}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeTenantUpdated,
		TenantID:   t.ID,
		ActorID:    actorID,
		Resource:   audit.ResourceTenant,
		TargetName: t.Name,
		TargetID:   t.ID,
		Metadata:   metadata,
	})
	return t, nil
}

// SetStatus transitions a tenant between active and inactive. A tenant
// transitioned to inactive fails layer L3 for every subsequent request.
func (s *Service) SetStatus(ctx context.Context, tenantID, status, actorID string) error {
	if status != StatusActive && status != StatusInactive {
		return fmt.Errorf("invalid tenant status: %s", status)
	}
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	oldStatus := t.Status
	t.Status = status
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeTenantUpdated,
		TenantID:   t.ID,
		ActorID:    actorID,
		Resource:   audit.ResourceTenant,
		TargetName: t.Name,
		TargetID:   t.ID,
		Metadata: map[string]any{
			"changes": map[string]string{"status_from": oldStatus, "status_to": status},
		},
	})
	return nil
}

// DeleteTenant deletes a tenant and cascades removal of its role
// definitions, module subscriptions, and assignments.
func (s *Service) DeleteTenant(ctx context.Context, tenantID, actorID string) error {
	t, err := s.repo.GetByID(ctx, tenantID)
	tenantName := "unknown"
	if err == nil && t != nil {
		tenantName = t.Name
	}

	if s.roleRepo != nil {
		if err := s.roleRepo.DeleteByTenantID(ctx, tenantID); err != nil {
			return fmt.Errorf("failed to cascade role deletion: %w", err)
		}
	}
	if s.subRepo != nil {
		if err := s.subRepo.DeleteByTenantID(ctx, tenantID); err != nil {
			return fmt.Errorf("failed to cascade subscription deletion: %w", err)
		}
	}
	if err := s.repo.Delete(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeTenantDeleted,
		TenantID:   tenantID,
		ActorID:    actorID,
		Resource:   audit.ResourceTenant,
		TargetName: tenantName,
		TargetID:   tenantID,
		Metadata: map[string]any{
			audit.AttrTenantID:   tenantID,
			audit.AttrTenantName: tenantName,
		},
	})
	return nil
}

// Subscribe grants a tenant access to a module (or one submodule of it),
// optionally time-bounded. Governs layers L3a/L3b.
func (s *Service) Subscribe(ctx context.Context, tenantID, moduleCode string, subModuleCode *string, expiresAt *time.Time, actorID string) (*policy.TenantModule, error) {
	tm, err := s.subRepo.Subscribe(ctx, tenantID, moduleCode, subModuleCode, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe tenant to module: %w", err)
	}

	metadata := map[string]any{
		audit.AttrTenantID: tenantID,
		"module_code":      moduleCode,
	}
	if subModuleCode != nil {
		metadata["submodule_code"] = *subModuleCode
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeTenantModuleSubscribed,
		TenantID:   tenantID,
		ActorID:    actorID,
		Resource:   "tenant_module",
		TargetName: moduleCode,
		TargetID:   tm.ID,
		Metadata:   metadata,
	})
	return tm, nil
}

// SetModuleEnabled toggles a tenant's subscription without deleting it.
func (s *Service) SetModuleEnabled(ctx context.Context, tenantModuleID string, enabled bool, actorID string) error {
	if err := s.subRepo.SetEnabled(ctx, tenantModuleID, enabled); err != nil {
		return fmt.Errorf("failed to update module subscription: %w", err)
	}
	eventType := audit.TypeTenantModuleEnabled
	if !enabled {
		eventType = audit.TypeTenantModuleDisabled
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  actorID,
		Resource: "tenant_module",
		TargetID: tenantModuleID,
	})
	return nil
}

// Unsubscribe removes a tenant's module subscription entirely.
func (s *Service) Unsubscribe(ctx context.Context, tenantModuleID, actorID string) error {
	if err := s.subRepo.Unsubscribe(ctx, tenantModuleID); err != nil {
		return fmt.Errorf("failed to unsubscribe tenant from module: %w", err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantModuleUnsubscribed,
		ActorID:  actorID,
		Resource: "tenant_module",
		TargetID: tenantModuleID,
	})
	return nil
}

// ListSubscriptions lists a tenant's module subscriptions.
func (s *Service) ListSubscriptions(ctx context.Context, tenantID string) ([]*policy.TenantModule, error) {
	return s.subRepo.ListForTenant(ctx, tenantID)
}

// AssignRole grants a role to a user within a tenant.
func (s *Service) AssignRole(ctx context.Context, tenantID, userID, roleID, grantedBy string) error {
	r, err := s.roleRepo.GetByID(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if r.Deleted() {
		return role.ErrRoleSoftDeleted
	}

	if err := s.roleRepo.AssignUser(ctx, userID, roleID, grantedBy); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeRoleAssigned,
		TenantID:   tenantID,
		ActorID:    grantedBy,
		Resource:   r.Name,
		TargetName: r.Name,
		TargetID:   userID,
		Metadata:   map[string]any{audit.AttrRoleID: roleID},
	})
	return nil
}

// RevokeRole revokes a role from a user within a tenant.
func (s *Service) RevokeRole(ctx context.Context, tenantID, userID, roleID, actorID string) error {
	r, err := s.roleRepo.GetByID(ctx, tenantID, roleID)
	if err != nil {
		return err
	}

	if err := s.roleRepo.UnassignUser(ctx, userID, roleID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeRoleRevoked,
		TenantID:   tenantID,
		ActorID:    actorID,
		Resource:   r.Name,
		TargetName: r.Name,
		TargetID:   userID,
		Metadata:   map[string]any{audit.AttrRoleID: roleID},
	})
	return nil
}

// ListUserRoles retrieves the roles a user holds within a tenant.
func (s *Service) ListUserRoles(ctx context.Context, tenantID, userID string) ([]*role.Role, error) {
	return s.roleRepo.ListForUser(ctx, tenantID, userID)
}
