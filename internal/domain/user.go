package domain

import (
	"encoding/json"
	"sort"
)

// Well-known user attribute names.
const (
	AttributeIdentifier = "Identifier"
	AttributeEmail      = "Email"
	AttributeCountry    = "Country"
)

// User carries the attributes targeting rules are evaluated against.
// Custom values may be strings, numbers, time.Time or []string.
type User struct {
	Identifier string
	Email      string
	Country    string
	Custom     map[string]any
}

// Attribute looks up a user attribute by name. Empty well-known attributes
// are reported as missing.
func (u *User) Attribute(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	switch name {
	case AttributeIdentifier:
		return u.Identifier, true
	case AttributeEmail:
		if u.Email == "" {
			return nil, false
		}
		return u.Email, true
	case AttributeCountry:
		if u.Country == "" {
			return nil, false
		}
		return u.Country, true
	}
	v, ok := u.Custom[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String renders the user as a JSON object for log output.
func (u *User) String() string {
	if u == nil {
		return "<nil>"
	}
	m := make(map[string]any, len(u.Custom)+3)
	m[AttributeIdentifier] = u.Identifier
	if u.Email != "" {
		m[AttributeEmail] = u.Email
	}
	if u.Country != "" {
		m[AttributeCountry] = u.Country
	}
	keys := make([]string, 0, len(u.Custom))
	for k := range u.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, reserved := m[k]; !reserved {
			m[k] = u.Custom[k]
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "<unserializable user>"
	}
	return string(b)
}
