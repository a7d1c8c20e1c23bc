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

// Package apierr defines the structured JSON error envelope every HTTP
// response shares, and the single top-level translator that maps an
// internal error into it.
package apierr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opentrusty/rbac-core/policy"
)

// Envelope is the wire shape of every non-2xx response.
type Envelope struct {
	Error      string               `json:"error"`
	Violation  policy.ViolationKind `json:"violation,omitempty"`
	Detail     string               `json:"detail,omitempty"`
	StatusCode int                  `json:"status_code"`
	Path       string               `json:"path"`
}

// NotFoundError marks a valid but non-existent domain resource within
// an authorized request (HTTP 404).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ValidationError marks malformed input at the domain layer (HTTP 400).
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// Write translates err into the envelope and writes it as the HTTP
// response: NotFoundError to 404; ValidationError to 400; anything
// else to 500 with a correlation-safe message only. A policy.Decision
// denial is not handled here; WriteDenial writes it as a 403.
//
// Denials are logged by the caller (the decision engine already logs
// at WARN with full context); Write logs unexpected errors at ERROR.
func Write(w http.ResponseWriter, path string, err error) {
	var (
		notFound   *NotFoundError
		validation *ValidationError
	)

	env := Envelope{Path: path}

	switch {
	case errors.As(err, &notFound):
		env.Error = "Not Found"
		env.Detail = notFound.Error()
		env.StatusCode = http.StatusNotFound
	case errors.As(err, &validation):
		env.Error = "Invalid Request"
		env.Detail = validation.Error()
		env.StatusCode = http.StatusBadRequest
	default:
		env.Error = "Internal Server Error"
		env.StatusCode = http.StatusInternalServerError
		slog.Error("unexpected error serving request", "path", path, "error", err)
	}

	writeEnvelope(w, env)
}

// WriteDenial writes the structured 403 envelope for a policy.Decision
// that was not allowed.
func WriteDenial(w http.ResponseWriter, path string, decision policy.Decision) {
	writeEnvelope(w, Envelope{
		Error:      "Unauthorized Access",
		Violation:  decision.Violation,
		Detail:     decision.Detail,
		StatusCode: http.StatusForbidden,
		Path:       path,
	})
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
