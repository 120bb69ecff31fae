package permission

import (
	"errors"
	"testing"
)

func TestDefaultRolesTiers(t *testing.T) {
	table := DefaultRoles()

	cases := []struct {
		role       string
		capability string
		want       bool
	}{
		{"user", ViewProjects, true},
		{"user", Donate, true},
		{"user", ViewOwnDonations, true},
		{"user", ManageOwnProfile, true},
		{"user", ManageProjects, false},
		{"user", ManageUsers, false},
		{"manager", ManageProjects, true},
		{"manager", ViewReports, true},
		{"manager", ExportReports, true},
		{"manager", Donate, true},
		{"manager", ManageUsers, false},
		{"manager", ViewAuditLog, false},
		{"admin", ManageUsers, true},
		{"admin", ViewAuditLog, true},
		{"admin", ViewProjects, true},
	}

	for _, tc := range cases {
		if got := table.Grants(tc.role, tc.capability); got != tc.want {
			t.Errorf("Grants(%s, %s) = %v, want %v", tc.role, tc.capability, got, tc.want)
		}
	}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	table := DefaultRoles()

	if table.Grants("superuser", ViewProjects) {
		t.Error("unknown role must hold nothing")
	}
	if _, err := table.Permissions("superuser"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Permissions(superuser) err = %v, want ErrUnknownRole", err)
	}
}

func TestPermissionsSorted(t *testing.T) {
	table := DefaultRoles()

	perms, err := table.Permissions("user")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if len(perms) != 4 {
		t.Fatalf("user permissions = %v, want 4 entries", perms)
	}
	for i := 1; i < len(perms); i++ {
		if perms[i-1] >= perms[i] {
			t.Fatalf("permissions not sorted: %v", perms)
		}
	}
}

func TestFreezeBlocksRegistration(t *testing.T) {
	table := NewTable()
	if err := table.RegisterRole("viewer", ViewProjects); err != nil {
		t.Fatalf("register: %v", err)
	}
	table.Freeze()

	if err := table.RegisterRole("editor", ManageProjects); !errors.Is(err, ErrFrozen) {
		t.Errorf("register after freeze = %v, want ErrFrozen", err)
	}
}

func TestRegisterRoleMerges(t *testing.T) {
	table := NewTable()
	if err := table.RegisterRole("viewer", ViewProjects); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := table.RegisterRole("viewer", ViewReports); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	if !table.Grants("viewer", ViewProjects) || !table.Grants("viewer", ViewReports) {
		t.Error("re-registration must merge grants")
	}

	if err := table.RegisterRole(""); err == nil {
		t.Error("empty role name accepted")
	}
}
