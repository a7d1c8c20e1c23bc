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

// ViolationKind is one of the nine stable denial reasons the decision
// engine can return, in the exact string form the error envelope uses.
//
// Purpose: Stable, machine-matchable denial classification.
// Domain: Policy
type ViolationKind string

const (
	ViolationAPINotRegistered     ViolationKind = "api_not_registered"
	ViolationAPIDisabledGlobally  ViolationKind = "api_disabled_globally"
	ViolationTenantNotSubscribed  ViolationKind = "tenant_not_subscribed"
	ViolationModuleDisabledTenant ViolationKind = "module_disabled_for_tenant"
	ViolationSubscriptionExpired  ViolationKind = "tenant_subscription_expired"
	ViolationAPIDisabledForTenant ViolationKind = "api_disabled_for_tenant"
	ViolationAPIBlockedForUser    ViolationKind = "api_blocked_for_user"
	ViolationUnknownActionMapping ViolationKind = "unknown_action_mapping"
	ViolationPermissionDenied     ViolationKind = "permission_denied"
)

// Decision is the outcome of evaluating the seven-layer policy against
// one (user, tenant, operation) request.
//
// Purpose: Single return value of the Decision Engine.
// Domain: Policy
// Invariants: Allowed == true implies Violation == "" and Detail == "".
type Decision struct {
	Allowed   bool
	Violation ViolationKind
	Detail    string
}

// Allow is the single successful verdict.
var Allow = Decision{Allowed: true}

// Deny constructs a denial verdict carrying the violation kind and a
// human-readable explanation operators can use to diagnose which rule
// triggered.
func Deny(kind ViolationKind, detail string) Decision {
	return Decision{Allowed: false, Violation: kind, Detail: detail}
}
