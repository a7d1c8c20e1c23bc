// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"testing"

	"github.com/opentrusty/rbac-core/id"
	"github.com/opentrusty/rbac-core/user"
)

func TestUserRepository(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewUserRepository(db)

	u := &user.User{
		ID: id.NewUUIDv7(),
		Profile: user.Profile{
			FullName: "User One",
		},
	}

	t.Run("Create and Get", func(t *testing.T) {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		got, err := repo.GetByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Profile.FullName != u.Profile.FullName {
			t.Errorf("got.Profile.FullName = %q, want %q", got.Profile.FullName, u.Profile.FullName)
		}
		if got.Deleted() {
			t.Error("newly created user should not be deleted")
		}
	})

	t.Run("Update", func(t *testing.T) {
		u.Profile.FullName = "User One Updated"
		if err := repo.Update(ctx, u); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		got, err := repo.GetByID(ctx, u.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Profile.FullName != "User One Updated" {
			t.Errorf("got.Profile.FullName = %q, want %q", got.Profile.FullName, "User One Updated")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, u.ID); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		_, err := repo.GetByID(ctx, u.ID)
		if err != user.ErrUserNotFound {
			t.Errorf("GetByID after delete = %v, want ErrUserNotFound", err)
		}
	})
}
