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

package authz

import (
	"context"
	"testing"
	"time"

	"github.com/opentrusty/rbac-core/policy"
)

// fakeStore is a fully in-memory policy.Store used to exercise every
// layer of the decision engine without a database.
type fakeStore struct {
	endpoints   []*policy.ApiEndpoint
	operations  map[string]*policy.ApiOperation
	modules     map[string]*policy.TenantModule
	overrides   map[string]bool
	blocks      map[string]bool
	permissions map[string][]policy.PermissionTuple
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		operations:  make(map[string]*policy.ApiOperation),
		modules:     make(map[string]*policy.TenantModule),
		overrides:   make(map[string]bool),
		blocks:      make(map[string]bool),
		permissions: make(map[string][]policy.PermissionTuple),
	}
}

func (f *fakeStore) ResolveEndpoint(ctx context.Context, path string) (*policy.ApiEndpoint, error) {
	for _, e := range f.endpoints {
		if e.Path == path {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListEndpoints(ctx context.Context) ([]*policy.ApiEndpoint, error) {
	return f.endpoints, nil
}

func (f *fakeStore) FindOperation(ctx context.Context, endpointID, httpMethod string) (*policy.ApiOperation, error) {
	return f.operations[endpointID+httpMethod], nil
}

func (f *fakeStore) TenantModuleLookup(ctx context.Context, tenantID, moduleCode string, subModuleCode *string) (*policy.TenantModule, error) {
	key := tenantID + moduleCode
	if subModuleCode != nil {
		key += *subModuleCode
	}
	tm, ok := f.modules[key]
	if !ok {
		return nil, nil
	}
	return tm, nil
}

func (f *fakeStore) TenantOverrideDisabled(ctx context.Context, tenantID, apiOperationID string) (bool, error) {
	return f.overrides[tenantID+apiOperationID], nil
}

func (f *fakeStore) UserBlocked(ctx context.Context, tenantID, userID, apiOperationID string) (bool, error) {
	return f.blocks[tenantID+userID+apiOperationID], nil
}

func (f *fakeStore) UserPermissionTuples(ctx context.Context, tenantID, userID string) ([]policy.PermissionTuple, error) {
	return f.permissions[tenantID+userID], nil
}

func (f *fakeStore) addEndpoint(path, module string, submodule *string) *policy.ApiEndpoint {
	e := &policy.ApiEndpoint{ID: "ep-" + path, Path: path, ModuleCode: module, SubModuleCode: submodule}
	f.endpoints = append(f.endpoints, e)
	return e
}

func (f *fakeStore) addOperation(e *policy.ApiEndpoint, method, action string, enabled bool) *policy.ApiOperation {
	op := &policy.ApiOperation{ID: "op-" + e.ID + method, EndpointID: e.ID, HTTPMethod: method, ActionCode: action, Enabled: enabled}
	f.operations[e.ID+method] = op
	return op
}

func strPtr(s string) *string { return &s }

// baseline builds a fully-subscribed, fully-granted tenant/user fixture
// for one GET /crm/accounts endpoint, so each test can flip exactly one
// layer to denied.
func baseline() (*fakeStore, *policy.ApiOperation) {
	store := newFakeStore()
	endpoint := store.addEndpoint("/crm/accounts", "CRM", nil)
	op := store.addOperation(endpoint, "GET", "", true)

	store.modules["tenant-1CRM"] = &policy.TenantModule{
		ID: "tm-1", TenantID: "tenant-1", ModuleCode: "CRM", Enabled: true,
	}
	store.permissions["tenant-1user-1"] = []policy.PermissionTuple{
		{ModuleCode: "CRM", ActionCode: policy.ActionView},
	}
	return store, op
}

func TestEvaluateAllow(t *testing.T) {
	store, _ := baseline()
	svc := NewService(store)

	decision, err := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !decision.Allowed {
		t.Errorf("Evaluate() = %+v, want Allow", decision)
	}
}

func TestEvaluateL1NotRegistered(t *testing.T) {
	store, _ := baseline()
	svc := NewService(store)

	decision, err := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/nonexistent")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Allowed || decision.Violation != policy.ViolationAPINotRegistered {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationAPINotRegistered)
	}
}

func TestEvaluateL2DisabledGlobally(t *testing.T) {
	store, op := baseline()
	op.Enabled = false
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationAPIDisabledGlobally {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationAPIDisabledGlobally)
	}
}

func TestEvaluateL3NotSubscribed(t *testing.T) {
	store, _ := baseline()
	delete(store.modules, "tenant-1CRM")
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationTenantNotSubscribed {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationTenantNotSubscribed)
	}
}

func TestEvaluateL3aModuleDisabled(t *testing.T) {
	store, _ := baseline()
	store.modules["tenant-1CRM"].Enabled = false
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationModuleDisabledTenant {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationModuleDisabledTenant)
	}
}

func TestEvaluateL3bSubscriptionExpired(t *testing.T) {
	store, _ := baseline()
	yesterday := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.modules["tenant-1CRM"].ExpirationDate = &yesterday
	svc := NewService(store, WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	}))

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationSubscriptionExpired {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationSubscriptionExpired)
	}
}

func TestEvaluateL3bExpiresTodayStillAllowed(t *testing.T) {
	store, _ := baseline()
	today := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	store.modules["tenant-1CRM"].ExpirationDate = &today
	svc := NewService(store, WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	}))

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if !decision.Allowed {
		t.Errorf("Evaluate() = %+v, want Allow (expires today is still valid)", decision)
	}
}

func TestEvaluateL4TenantOverride(t *testing.T) {
	store, op := baseline()
	store.overrides["tenant-1"+op.ID] = true
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationAPIDisabledForTenant {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationAPIDisabledForTenant)
	}
}

func TestEvaluateL5UserBlocked(t *testing.T) {
	store, op := baseline()
	store.blocks["tenant-1user-1"+op.ID] = true
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationAPIBlockedForUser {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationAPIBlockedForUser)
	}
}

func TestEvaluateL6UnknownAction(t *testing.T) {
	store := newFakeStore()
	endpoint := store.addEndpoint("/crm/reports", "CRM", nil)
	store.addOperation(endpoint, "OPTIONS", "", true) // no explicit action, no method default
	store.modules["tenant-1CRM"] = &policy.TenantModule{ID: "tm-1", TenantID: "tenant-1", ModuleCode: "CRM", Enabled: true}
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "OPTIONS", "/crm/reports")
	if decision.Allowed || decision.Violation != policy.ViolationUnknownActionMapping {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationUnknownActionMapping)
	}
}

func TestEvaluateL7PermissionDenied(t *testing.T) {
	store, _ := baseline()
	delete(store.permissions, "tenant-1user-1")
	svc := NewService(store)

	decision, _ := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if decision.Allowed || decision.Violation != policy.ViolationPermissionDenied {
		t.Errorf("Evaluate() = %+v, want %s", decision, policy.ViolationPermissionDenied)
	}
}

func TestEvaluateL7ModuleWideGrantCoversSubmodule(t *testing.T) {
	store := newFakeStore()
	sub := strPtr("LEADS")
	endpoint := store.addEndpoint("/crm/leads", "CRM", sub)
	store.addOperation(endpoint, "GET", "", true)
	store.modules["tenant-1CRMLEADS"] = &policy.TenantModule{ID: "tm-1", TenantID: "tenant-1", ModuleCode: "CRM", SubModuleCode: sub, Enabled: true}
	store.permissions["tenant-1user-1"] = []policy.PermissionTuple{
		{ModuleCode: "CRM", SubModuleCode: nil, ActionCode: policy.ActionView}, // module-wide grant
	}
	svc := NewService(store)

	decision, err := svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/leads")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !decision.Allowed {
		t.Errorf("Evaluate() = %+v, want Allow (module-wide grant covers submodule)", decision)
	}
}

func TestEvaluateRecorderObservesOutcome(t *testing.T) {
	store, _ := baseline()
	var observed []policy.ViolationKind
	rec := recorderFunc(func(v policy.ViolationKind, allowed bool, _ time.Duration) {
		observed = append(observed, v)
	})
	svc := NewService(store, WithRecorder(rec))

	_, _ = svc.Evaluate(context.Background(), "tenant-1", "user-1", "GET", "/crm/accounts")
	if len(observed) != 1 || observed[0] != "" {
		t.Errorf("recorder observed = %v, want one empty (allowed) violation", observed)
	}
}

type recorderFunc func(policy.ViolationKind, bool, time.Duration)

func (f recorderFunc) ObserveDecision(v policy.ViolationKind, allowed bool, elapsed time.Duration) {
	f(v, allowed, elapsed)
}
