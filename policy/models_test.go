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
	"testing"
	"time"
)

func TestTenantModuleExpired(t *testing.T) {
	today := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"no expiration", nil, false},
		{"expires today", ptr(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)), false},
		{"expired yesterday", ptr(time.Date(2026, 7, 30, 23, 59, 0, 0, time.UTC)), true},
		{"expires tomorrow", ptr(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &TenantModule{ExpirationDate: tc.expires}
			if got := m.Expired(today); got != tc.want {
				t.Errorf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolvedActionExplicit(t *testing.T) {
	op := &ApiOperation{HTTPMethod: "POST", ActionCode: "approve"}
	action, ok := op.ResolvedAction()
	if !ok || action != "approve" {
		t.Errorf("ResolvedAction() = (%q, %v), want (approve, true)", action, ok)
	}
}

func TestResolvedActionDefaultsByMethod(t *testing.T) {
	cases := []struct {
		method string
		want   string
	}{
		{"GET", ActionView},
		{"POST", ActionCreate},
		{"PUT", ActionUpdate},
		{"PATCH", ActionUpdate},
		{"DELETE", ActionDelete},
	}

	for _, tc := range cases {
		op := &ApiOperation{HTTPMethod: tc.method}
		action, ok := op.ResolvedAction()
		if !ok || action != tc.want {
			t.Errorf("ResolvedAction() for %s = (%q, %v), want (%q, true)", tc.method, action, ok, tc.want)
		}
	}
}

func TestResolvedActionUnknownMethodFails(t *testing.T) {
	op := &ApiOperation{HTTPMethod: "OPTIONS"}
	if _, ok := op.ResolvedAction(); ok {
		t.Error("ResolvedAction() for OPTIONS should fail, no default exists")
	}
}

func TestPermissionTupleCoversSubModule(t *testing.T) {
	accounts := "accounts"
	contacts := "contacts"

	cases := []struct {
		name   string
		tuple  PermissionTuple
		module string
		sub    *string
		want   bool
	}{
		{"different module", PermissionTuple{ModuleCode: "CRM"}, "ERP", nil, false},
		{"module-wide grant covers any submodule", PermissionTuple{ModuleCode: "CRM", SubModuleCode: nil}, "CRM", &accounts, true},
		{"module-wide grant covers module-level check", PermissionTuple{ModuleCode: "CRM", SubModuleCode: nil}, "CRM", nil, true},
		{"submodule grant matches same submodule", PermissionTuple{ModuleCode: "CRM", SubModuleCode: &accounts}, "CRM", &accounts, true},
		{"submodule grant does not match different submodule", PermissionTuple{ModuleCode: "CRM", SubModuleCode: &accounts}, "CRM", &contacts, false},
		{"submodule grant does not cover module-level check", PermissionTuple{ModuleCode: "CRM", SubModuleCode: &accounts}, "CRM", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tuple.CoversSubModule(tc.module, tc.sub); got != tc.want {
				t.Errorf("CoversSubModule() = %v, want %v", got, tc.want)
			}
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }
