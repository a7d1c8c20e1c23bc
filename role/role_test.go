// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: Apache-2.0

package role

import (
	"testing"
	"time"
)

func TestRoleDeleted(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{
			name: "active role",
			role: Role{Name: "Viewer"},
			want: false,
		},
		{
			name: "soft-deleted role",
			role: Role{Name: "Viewer", DeletedAt: timePtr(time.Now())},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Deleted(); got != tt.want {
				t.Errorf("Role.Deleted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
