package users

import (
	"sort"
	"strings"
)

// RoleAllowList is the set of roles permitted to use the console. It is the
// only authorization policy in the session core; callers never compare role
// strings themselves.
type RoleAllowList struct {
	roles map[RoleType]struct{}
}

var (
	// DefaultAllowList is the current console policy.
	DefaultAllowList = NewRoleAllowList(RoleAdmin, RoleHR)
	// LegacyAdminOnly is the policy of the first console generation.
	LegacyAdminOnly = NewRoleAllowList(RoleAdmin)
)

func NewRoleAllowList(roles ...RoleType) RoleAllowList {
	set := make(map[RoleType]struct{}, len(roles))
	for _, r := range roles {
		r = RoleType(strings.ToLower(strings.TrimSpace(string(r))))
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	return RoleAllowList{roles: set}
}

// AllowListFromStrings builds a policy from configuration values.
func AllowListFromStrings(roles []string) RoleAllowList {
	typed := make([]RoleType, 0, len(roles))
	for _, r := range roles {
		typed = append(typed, RoleType(r))
	}
	return NewRoleAllowList(typed...)
}

// Allows reports whether role may use the console. Backend roles are
// compared exactly; only the configured roles are normalized.
func (a RoleAllowList) Allows(role RoleType) bool {
	if role == "" {
		return false
	}
	_, ok := a.roles[role]
	return ok
}

// AllowsUser is Allows for a possibly nil user.
func (a RoleAllowList) AllowsUser(u *User) bool {
	return u != nil && a.Allows(u.Role)
}

func (a RoleAllowList) Roles() []RoleType {
	roles := make([]RoleType, 0, len(a.roles))
	for r := range a.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func (a RoleAllowList) IsEmpty() bool {
	return len(a.roles) == 0
}

func (a RoleAllowList) String() string {
	roles := a.Roles()
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
