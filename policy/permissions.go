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

// -----------------------------------------------------------------------------
// Action vocabulary
// The verb tokens a Permission can grant. Action codes are free-form
// strings in storage; these are the ones the HTTP-method defaults and the
// seeded fixtures use.
// -----------------------------------------------------------------------------

const (
	// ActionView grants read access. Default action for GET.
	ActionView = "view"

	// ActionCreate grants creation of new resources. Default action for POST.
	ActionCreate = "create"

	// ActionUpdate grants modification of existing resources. Default
	// action for PUT and PATCH.
	ActionUpdate = "update"

	// ActionDelete grants removal of resources. Default action for DELETE.
	ActionDelete = "delete"

	// ActionApprove grants workflow-approval actions. Has no HTTP-method
	// default; operations requiring it must declare action_code explicitly.
	ActionApprove = "approve"
)

// DefaultActions lists the action vocabulary seeded for a fresh tenant.
var DefaultActions = []string{
	ActionView,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionApprove,
}
