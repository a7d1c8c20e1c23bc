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
	"testing"

	"github.com/opentrusty/rbac-core/audit"
)

type fakeOverrideRepository struct {
	overrides map[string]*TenantApiOverride
	blocks    map[string]*UserApiBlock
}

func newFakeOverrideRepository() *fakeOverrideRepository {
	return &fakeOverrideRepository{
		overrides: make(map[string]*TenantApiOverride),
		blocks:    make(map[string]*UserApiBlock),
	}
}

func (r *fakeOverrideRepository) SetTenantOverride(ctx context.Context, tenantID, apiOperationID string, enabled bool) (*TenantApiOverride, error) {
	o := &TenantApiOverride{TenantID: tenantID, ApiOperationID: apiOperationID, Enabled: enabled}
	r.overrides[tenantID+"|"+apiOperationID] = o
	return o, nil
}

func (r *fakeOverrideRepository) ClearTenantOverride(ctx context.Context, tenantID, apiOperationID string) error {
	delete(r.overrides, tenantID+"|"+apiOperationID)
	return nil
}

func (r *fakeOverrideRepository) BlockUser(ctx context.Context, tenantID, userID, apiOperationID, reason string) (*UserApiBlock, error) {
	b := &UserApiBlock{TenantID: tenantID, UserID: userID, ApiOperationID: apiOperationID, Reason: reason}
	r.blocks[tenantID+"|"+userID+"|"+apiOperationID] = b
	return b, nil
}

func (r *fakeOverrideRepository) UnblockUser(ctx context.Context, tenantID, userID, apiOperationID string) error {
	delete(r.blocks, tenantID+"|"+userID+"|"+apiOperationID)
	return nil
}

type recordingAuditLogger struct {
	events []audit.Event
}

func (l *recordingAuditLogger) Log(ctx context.Context, event audit.Event) {
	l.events = append(l.events, event)
}

func TestOverrideServiceDisableForTenant(t *testing.T) {
	repo := newFakeOverrideRepository()
	logger := &recordingAuditLogger{}
	svc := NewOverrideService(repo, logger)

	override, err := svc.DisableForTenant(context.Background(), "t1", "op1", "admin")
	if err != nil {
		t.Fatalf("DisableForTenant() error = %v", err)
	}
	if override.Enabled {
		t.Error("expected override.Enabled = false")
	}
	if len(logger.events) != 1 || logger.events[0].Type != audit.TypeTenantOverrideSet {
		t.Fatalf("events = %+v, want one tenant_override_set event", logger.events)
	}
}

func TestOverrideServiceClearTenantOverride(t *testing.T) {
	repo := newFakeOverrideRepository()
	logger := &recordingAuditLogger{}
	svc := NewOverrideService(repo, logger)

	if _, err := svc.DisableForTenant(context.Background(), "t1", "op1", "admin"); err != nil {
		t.Fatalf("DisableForTenant() error = %v", err)
	}
	if err := svc.ClearTenantOverride(context.Background(), "t1", "op1", "admin"); err != nil {
		t.Fatalf("ClearTenantOverride() error = %v", err)
	}

	if _, ok := repo.overrides["t1|op1"]; ok {
		t.Error("expected override to be cleared from the repository")
	}
	if len(logger.events) != 2 || logger.events[1].Type != audit.TypeTenantOverrideCleared {
		t.Fatalf("events = %+v, want tenant_override_set then tenant_override_cleared", logger.events)
	}
}

func TestOverrideServiceBlockAndUnblockUser(t *testing.T) {
	repo := newFakeOverrideRepository()
	logger := &recordingAuditLogger{}
	svc := NewOverrideService(repo, logger)

	block, err := svc.BlockUser(context.Background(), "t1", "u1", "op1", "abuse", "admin")
	if err != nil {
		t.Fatalf("BlockUser() error = %v", err)
	}
	if block.Reason != "abuse" {
		t.Errorf("block.Reason = %q, want abuse", block.Reason)
	}

	if err := svc.UnblockUser(context.Background(), "t1", "u1", "op1", "admin"); err != nil {
		t.Fatalf("UnblockUser() error = %v", err)
	}
	if _, ok := repo.blocks["t1|u1|op1"]; ok {
		t.Error("expected block to be removed from the repository")
	}

	if len(logger.events) != 2 || logger.events[0].Type != audit.TypeUserBlocked || logger.events[1].Type != audit.TypeUserUnblocked {
		t.Fatalf("events = %+v, want user_blocked then user_unblocked", logger.events)
	}
}
