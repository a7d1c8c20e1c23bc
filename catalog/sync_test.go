// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"testing"

	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/registry"
)

// fakeRepo is a minimal in-memory endpoint.Repository for sync tests.
type fakeRepo struct {
	endpoints  map[string]*policy.ApiEndpoint
	operations map[string]*policy.ApiOperation
	nextID     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		endpoints:  make(map[string]*policy.ApiEndpoint),
		operations: make(map[string]*policy.ApiOperation),
	}
}

func (f *fakeRepo) newID() string {
	f.nextID++
	return string(rune('a' + f.nextID))
}

func (f *fakeRepo) ResolveEndpoint(ctx context.Context, path string) (*policy.ApiEndpoint, error) {
	return f.endpoints[path], nil
}

func (f *fakeRepo) ListEndpoints(ctx context.Context) ([]*policy.ApiEndpoint, error) {
	var out []*policy.ApiEndpoint
	for _, e := range f.endpoints {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) FindOperation(ctx context.Context, endpointID, httpMethod string) (*policy.ApiOperation, error) {
	return f.operations[endpointID+httpMethod], nil
}

func (f *fakeRepo) TenantModuleLookup(ctx context.Context, tenantID, moduleCode string, subModuleCode *string) (*policy.TenantModule, error) {
	return nil, nil
}
func (f *fakeRepo) TenantOverrideDisabled(ctx context.Context, tenantID, apiOperationID string) (bool, error) {
	return false, nil
}
func (f *fakeRepo) UserBlocked(ctx context.Context, tenantID, userID, apiOperationID string) (bool, error) {
	return false, nil
}
func (f *fakeRepo) UserPermissionTuples(ctx context.Context, tenantID, userID string) ([]policy.PermissionTuple, error) {
	return nil, nil
}

func (f *fakeRepo) UpsertEndpoint(ctx context.Context, path, moduleCode string, subModuleCode *string) (*policy.ApiEndpoint, bool, error) {
	if e, ok := f.endpoints[path]; ok {
		e.ModuleCode = moduleCode
		e.SubModuleCode = subModuleCode
		return e, false, nil
	}
	e := &policy.ApiEndpoint{ID: "ep-" + f.newID(), Path: path, ModuleCode: moduleCode, SubModuleCode: subModuleCode}
	f.endpoints[path] = e
	return e, true, nil
}

func (f *fakeRepo) UpsertOperation(ctx context.Context, endpointID, httpMethod, defaultActionCode string) (*policy.ApiOperation, bool, error) {
	key := endpointID + httpMethod
	if op, ok := f.operations[key]; ok {
		return op, false, nil
	}
	op := &policy.ApiOperation{ID: "op-" + f.newID(), EndpointID: endpointID, HTTPMethod: httpMethod, ActionCode: defaultActionCode, Enabled: true}
	f.operations[key] = op
	return op, true, nil
}

func (f *fakeRepo) SetOperationEnabled(ctx context.Context, operationID string, enabled bool) error {
	for _, op := range f.operations {
		if op.ID == operationID {
			op.Enabled = enabled
		}
	}
	return nil
}

func (f *fakeRepo) SetOperationAction(ctx context.Context, operationID, actionCode string) error {
	for _, op := range f.operations {
		if op.ID == operationID {
			op.ActionCode = actionCode
		}
	}
	return nil
}

func TestSyncCreatesEndpointsAndOperations(t *testing.T) {
	repo := newFakeRepo()
	reg := registry.New()
	reg.Register("GET", "/crm/accounts", "CRM", nil, "")
	reg.Register("POST", "/crm/accounts", "CRM", nil, "")

	changes, err := Sync(context.Background(), repo, reg, Options{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(changes) != 3 { // 1 endpoint + 2 operations
		t.Fatalf("got %d changes, want 3: %+v", len(changes), changes)
	}
	for _, c := range changes {
		if !c.Created {
			t.Errorf("change %+v should be Created on first run", c)
		}
	}

	ep := repo.endpoints["/crm/accounts"]
	if ep == nil {
		t.Fatal("endpoint not persisted")
	}
	getOp := repo.operations[ep.ID+"GET"]
	if getOp == nil || getOp.ActionCode != policy.ActionView {
		t.Errorf("GET operation action = %+v, want default %q", getOp, policy.ActionView)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	reg := registry.New()
	reg.Register("GET", "/crm/accounts", "CRM", nil, "")

	if _, err := Sync(context.Background(), repo, reg, Options{}); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}

	changes, err := Sync(context.Background(), repo, reg, Options{})
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	for _, c := range changes {
		if c.Created {
			t.Errorf("re-run should report no new creations, got %+v", c)
		}
	}
}

func TestSyncDryRunDoesNotPersist(t *testing.T) {
	repo := newFakeRepo()
	reg := registry.New()
	reg.Register("GET", "/crm/accounts", "CRM", nil, "")

	changes, err := Sync(context.Background(), repo, reg, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if len(repo.endpoints) != 0 {
		t.Error("dry-run must not persist any endpoint")
	}
}

func TestSyncSkipsConfiguredPrefix(t *testing.T) {
	repo := newFakeRepo()
	reg := registry.New()
	reg.Register("GET", "/admin/dashboard", "SYSTEM", nil, "")

	changes, err := Sync(context.Background(), repo, reg, Options{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("expected skip-prefixed route to produce no changes, got %+v", changes)
	}
}

func TestSyncDefaultsToSystemModule(t *testing.T) {
	repo := newFakeRepo()
	reg := registry.New()
	reg.Register("GET", "/unmapped", "", nil, "")

	if _, err := Sync(context.Background(), repo, reg, Options{}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	ep := repo.endpoints["/unmapped"]
	if ep == nil || ep.ModuleCode != policy.SystemModule {
		t.Errorf("endpoint module = %+v, want %q", ep, policy.SystemModule)
	}
}
