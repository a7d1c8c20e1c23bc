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

// Package id generates the identifiers used by every entity in this module.
package id

import "github.com/google/uuid"

// NewUUIDv7 returns a new RFC 9562 UUID version 7 identifier, string-encoded.
//
// Purpose: Single source of ID generation so storage rows sort roughly
// by creation time without a separate sequence.
// Domain: Platform (Infrastructure)
func NewUUIDv7() string {
	u, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the process-wide RNG is broken; fall back
		// to a random v4 rather than propagating an error into callers that
		// treat ID generation as infallible.
		return uuid.NewString()
	}
	return u.String()
}
