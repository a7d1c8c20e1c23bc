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

// Package user models the identity reference the decision engine and
// role assignments key off of. Authentication (credentials, sessions,
// lockout) is an external collaborator and out of scope here; this
// package only carries what the authorization path and audit trail
// need to display and key against.
package user

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// User is a minimal identity reference: the subject a role, block, or
// audit event is recorded against.
//
// Purpose: Principal identity the authorization path keys against.
// Domain: Identity
// Invariants: ID must be a UUIDv7, assigned by the identity provider
// that owns authentication. DeletedAt marks a deprovisioned identity;
// deleted users are excluded from permission resolution.
type User struct {
	ID        string     `json:"id"`
	Profile   Profile    `json:"profile"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the identity has been deprovisioned.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// DisplayName returns the nickname if set, falling back to the full name.
func (u *User) DisplayName() string {
	if u.Profile.Nickname != "" {
		return u.Profile.Nickname
	}
	return u.Profile.FullName
}

// Profile carries the display metadata an audit trail or admin UI needs.
//
// Purpose: Display metadata associated with a user identity.
// Domain: Identity
type Profile struct {
	FullName string `json:"full_name"`
	Nickname string `json:"nickname,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// Repository defines the interface for the local identity reference cache.
//
// Purpose: Abstraction for resolving a user ID to display metadata.
// Domain: Identity
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
