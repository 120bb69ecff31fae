// Package permission maps roles onto named capabilities. The table is
// built once during engine construction and frozen; lookups after freeze
// are lock-free reads.
package permission

import (
	"errors"
	"fmt"
	"sort"
)

// Platform capability names.
const (
	ViewProjects     = "view_projects"
	Donate           = "donate"
	ViewOwnDonations = "view_own_donations"
	ManageOwnProfile = "manage_own_profile"
	ManageProjects   = "manage_projects"
	ViewReports      = "view_reports"
	ExportReports    = "export_reports"
	ManageUsers      = "manage_users"
	ViewAuditLog     = "view_audit_log"
)

var (
	// ErrFrozen is returned when registering a role after Freeze.
	ErrFrozen = errors.New("permission table frozen")
	// ErrUnknownRole is returned when a role has no registered grants.
	ErrUnknownRole = errors.New("unknown role")
)

// Table maps role names to their granted capabilities.
type Table struct {
	grants map[string]map[string]struct{}
	frozen bool
}

// NewTable returns an empty, unfrozen table.
func NewTable() *Table {
	return &Table{
		grants: make(map[string]map[string]struct{}),
	}
}

// RegisterRole records the capabilities granted to role. Registering the
// same role twice merges the grants.
func (t *Table) RegisterRole(role string, capabilities ...string) error {
	if t.frozen {
		return ErrFrozen
	}
	if role == "" {
		return fmt.Errorf("empty role name")
	}

	set, ok := t.grants[role]
	if !ok {
		set = make(map[string]struct{}, len(capabilities))
		t.grants[role] = set
	}
	for _, c := range capabilities {
		set[c] = struct{}{}
	}
	return nil
}

// Freeze makes the table immutable. Lookups on a frozen table need no
// synchronization.
func (t *Table) Freeze() {
	t.frozen = true
}

// Grants reports whether role holds capability. An unknown role holds
// nothing.
func (t *Table) Grants(role, capability string) bool {
	set, ok := t.grants[role]
	if !ok {
		return false
	}
	_, ok = set[capability]
	return ok
}

// Permissions returns the sorted capability names granted to role, or
// [ErrUnknownRole] when the role was never registered.
func (t *Table) Permissions(role string) ([]string, error) {
	set, ok := t.grants[role]
	if !ok {
		return nil, ErrUnknownRole
	}

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// DefaultRoles returns a frozen table with the platform's three built-in
// roles. Each tier extends the one below it.
func DefaultRoles() *Table {
	t := NewTable()

	userGrants := []string{ViewProjects, Donate, ViewOwnDonations, ManageOwnProfile}
	managerGrants := append(append([]string{}, userGrants...),
		ManageProjects, ViewReports, ExportReports)
	adminGrants := append(append([]string{}, managerGrants...),
		ManageUsers, ViewAuditLog)

	_ = t.RegisterRole("user", userGrants...)
	_ = t.RegisterRole("manager", managerGrants...)
	_ = t.RegisterRole("admin", adminGrants...)

	t.Freeze()
	return t
}
