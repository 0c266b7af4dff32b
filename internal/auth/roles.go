package auth

import "sort"

// RoleSet is a set of case-sensitive role names. Use NewRoleSet to build one;
// order carries no meaning.
type RoleSet []string

// NewRoleSet builds a RoleSet, dropping empty names and duplicates.
func NewRoleSet(names ...string) RoleSet {
	seen := make(map[string]struct{}, len(names))
	set := make(RoleSet, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		set = append(set, name)
	}
	sort.Strings(set)
	return set
}

// Contains reports whether name is in the set.
func (s RoleSet) Contains(name string) bool {
	for _, r := range s {
		if r == name {
			return true
		}
	}
	return false
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	for _, r := range other {
		if s.Contains(r) {
			return true
		}
	}
	return false
}

// Equal reports set equality.
func (s RoleSet) Equal(other RoleSet) bool {
	a, b := NewRoleSet(s...), NewRoleSet(other...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Strings returns a copy of the role names.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
