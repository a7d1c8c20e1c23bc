// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: Apache-2.0

package tenant

import "testing"

func TestTenantActive(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{name: "active", status: StatusActive, want: true},
		{name: "inactive", status: StatusInactive, want: false},
		{name: "unknown status", status: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tn := Tenant{Status: tt.status}
			if got := tn.Active(); got != tt.want {
				t.Errorf("Tenant.Active() = %v, want %v", got, tt.want)
			}
		})
	}
}
