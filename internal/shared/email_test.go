package shared_test

import (
	"testing"

	"github.com/tillworks/tillworks/internal/shared"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "alice@example.com"},
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@example.com ", "bob@example.com"},
		{"BOB@EXAMPLE.COM", "bob@example.com"},
	}
	for _, tc := range cases {
		if got := shared.NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	for _, in := range []string{"alice@example.com", "Bob@Example.COM", " carol@example.com "} {
		if !shared.ValidEmail(in) {
			t.Errorf("expected %q to be well-formed", in)
		}
	}
	for _, in := range []string{"", "not-an-email", "eve@", "@example.com", "a b@example.com"} {
		if shared.ValidEmail(in) {
			t.Errorf("expected %q to be rejected", in)
		}
	}
}

func TestRoleValidation(t *testing.T) {
	for _, r := range []shared.Role{shared.RoleAdmin, shared.RoleManager, shared.RoleCashier} {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	for _, r := range []shared.Role{"", "superuser", "Admin", "ADMIN"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}

func TestRoleMembership(t *testing.T) {
	if !shared.RoleAdmin.In(shared.RoleAdmin) {
		t.Fatalf("admin should be in {admin}")
	}
	if shared.RoleCashier.In(shared.RoleAdmin) {
		t.Fatalf("cashier should not be in {admin}")
	}
	// No hierarchy: admin is not implicitly part of other role sets.
	if shared.RoleAdmin.In(shared.RoleCashier, shared.RoleManager) {
		t.Fatalf("admin should not be in {cashier, manager}")
	}
	if shared.RoleCashier.In() {
		t.Fatalf("empty allowed set admits nobody")
	}
}
