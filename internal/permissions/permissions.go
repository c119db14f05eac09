package permissions

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Permission identifies a single capability a grant can confer on a camera.
type Permission string

const (
	// PermissionView allows reading live streams and snapshots.
	PermissionView Permission = "view"
	// PermissionManage allows camera control such as PTZ and recording toggles.
	PermissionManage Permission = "manage"
	// PermissionAdmin allows full administrative control including
	// authorization changes on the camera.
	PermissionAdmin Permission = "admin"
)

// ErrUnknownPermission is returned when a value falls outside the closed
// permission vocabulary.
var ErrUnknownPermission = errors.New("unknown permission")

// vocabulary fixes the canonical ordering used for serialization.
var vocabulary = []Permission{PermissionView, PermissionManage, PermissionAdmin}

var rank = func() map[Permission]int {
	m := make(map[Permission]int, len(vocabulary))
	for i, p := range vocabulary {
		m[p] = i
	}
	return m
}()

// Known reports whether the permission belongs to the vocabulary.
func Known(p Permission) bool {
	_, ok := rank[p]
	return ok
}

// All returns the full permission vocabulary in canonical order.
func All() []Permission {
	out := make([]Permission, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Set is a set of permissions. The zero value is the empty set and is usable
// for membership tests and unions; persistence hooks enforce non-emptiness
// where a grant requires it.
type Set map[Permission]struct{}

// NewSet builds a set from the given permissions, rejecting unknown values.
func NewSet(perms ...Permission) (Set, error) {
	set := make(Set, len(perms))
	for _, p := range perms {
		if !Known(p) {
			return nil, fmt.Errorf("%w %q", ErrUnknownPermission, p)
		}
		set[p] = struct{}{}
	}
	return set, nil
}

// Parse builds a set from raw string values, trimming whitespace and
// normalising case. Duplicates collapse; unknown values are rejected.
func Parse(values []string) (Set, error) {
	set := make(Set, len(values))
	for _, v := range values {
		p := Permission(strings.ToLower(strings.TrimSpace(v)))
		if p == "" {
			continue
		}
		if !Known(p) {
			return nil, fmt.Errorf("%w %q", ErrUnknownPermission, p)
		}
		set[p] = struct{}{}
	}
	return set, nil
}

// Has reports whether the set contains the permission.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Union returns a new set containing the members of both sets.
func (s Set) Union(other Set) Set {
	merged := make(Set, len(s)+len(other))
	for p := range s {
		merged[p] = struct{}{}
	}
	for p := range other {
		merged[p] = struct{}{}
	}
	return merged
}

// List returns the members in canonical vocabulary order.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}

// Strings returns the members as strings in canonical order.
func (s Set) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = string(p)
	}
	return out
}

// MarshalJSON serialises the set as an ordered list.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON restores the set from a list, validating each member.
func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	parsed, err := Parse(values)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer, storing the set as a JSON list.
func (s Set) Value() (driver.Value, error) {
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for text and blob columns.
func (s *Set) Scan(value interface{}) error {
	if value == nil {
		*s = Set{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("permissions: cannot scan %T into Set", value)
	}

	if len(data) == 0 {
		*s = Set{}
		return nil
	}
	return s.UnmarshalJSON(data)
}

// GormDataType keeps the column portable across sqlite, postgres and mysql.
func (Set) GormDataType() string {
	return "text"
}
