// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import "testing"

func TestEntriesSortedDeterministically(t *testing.T) {
	r := New()
	r.Register("POST", "/crm/accounts", "CRM", nil, "")
	r.Register("GET", "/crm/accounts", "CRM", nil, "")
	r.Register("GET", "/billing/invoices", "BILLING", nil, "")

	entries := r.Entries()
	want := []struct{ method, path string }{
		{"GET", "/billing/invoices"},
		{"GET", "/crm/accounts"},
		{"POST", "/crm/accounts"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Method != w.method || entries[i].Path != w.path {
			t.Errorf("entries[%d] = %s %s, want %s %s", i, entries[i].Method, entries[i].Path, w.method, w.path)
		}
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r := New()
	r.Register("GET", "/crm/accounts", "CRM", nil, "")
	r.Register("GET", "/crm/accounts", "CRM", nil, "")
}
