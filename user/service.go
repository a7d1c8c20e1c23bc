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

package user

import (
	"context"
	"fmt"
	"time"

	"github.com/opentrusty/rbac-core/audit"
)

// Service provides identity-reference business logic: it does not
// authenticate anyone, it only maintains the local record of who a
// user ID issued by the external identity provider refers to.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new identity-reference service.
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// Provision records a newly seen identity, or returns the existing
// record unchanged when the user ID is already known. cmd/rbacd calls
// it from the /api/users administration endpoint.
func (s *Service) Provision(ctx context.Context, userID string, profile Profile, actorID string) (*User, error) {
	if existing, err := s.repo.GetByID(ctx, userID); err == nil && existing != nil {
		return existing, nil
	}

	now := time.Now()
	u := &User{
		ID:        userID,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to provision identity reference: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeUserCreated,
		ActorID:    actorID,
		Resource:   audit.ResourceUser,
		TargetName: u.DisplayName(),
		TargetID:   u.ID,
	})
	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfile updates a user's display metadata.
func (s *Service) UpdateProfile(ctx context.Context, userID string, profile Profile, actorID string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	u.Profile = profile
	u.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeUserUpdated,
		ActorID:    actorID,
		Resource:   audit.ResourceUser,
		TargetName: u.DisplayName(),
		TargetID:   u.ID,
	})
	return nil
}

// Deprovision soft-deletes a user, excluding it from future permission
// resolution without disturbing historical audit records.
func (s *Service) Deprovision(ctx context.Context, userID, actorID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to deprovision identity: %w", err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserDeprovisioned,
		ActorID:  actorID,
		Resource: audit.ResourceUser,
		TargetID: userID,
	})
	return nil
}
