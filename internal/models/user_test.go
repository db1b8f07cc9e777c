package models

import (
	"testing"
)

func TestRoleValid(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{name: "admin", role: RoleAdmin, expected: true},
		{name: "user", role: RoleUser, expected: true},
		{name: "reviewer", role: RoleReviewer, expected: true},
		{name: "unknown role", role: "superuser", expected: false},
		{name: "wrong case", role: "Admin", expected: false},
		{name: "empty role", role: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.expected {
				t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.expected)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{name: "active", status: StatusActive, expected: true},
		{name: "inactive", status: StatusInactive, expected: true},
		{name: "suspended", status: StatusSuspended, expected: true},
		{name: "disabled is not a status here", status: "disabled", expected: false},
		{name: "empty status", status: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.expected {
				t.Errorf("Status(%q).Valid() = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestUserIsActive(t *testing.T) {
	for _, status := range []Status{StatusInactive, StatusSuspended} {
		u := &User{Status: status}
		if u.IsActive() {
			t.Errorf("user with status %q should not be active", status)
		}
	}

	if !(&User{Status: StatusActive}).IsActive() {
		t.Error("user with status active should be active")
	}
}

func TestUserUpdate_HasPrivilegedFields(t *testing.T) {
	name := "Jane"
	role := RoleAdmin
	verified := true

	if (UserUpdate{FirstName: &name}).HasPrivilegedFields() {
		t.Error("name-only update should not be privileged")
	}
	if !(UserUpdate{Role: &role}).HasPrivilegedFields() {
		t.Error("role update should be privileged")
	}
	if !(UserUpdate{EmailVerified: &verified}).HasPrivilegedFields() {
		t.Error("email_verified update should be privileged")
	}
	if !(UserUpdate{}).IsEmpty() {
		t.Error("zero update should be empty")
	}
}
