package event

import (
	"encoding/json"
	"slices"
)

// Set is an unordered collection of event types. Adding a type twice is a
// no-op, and the JSON form is a sorted array.
type Set map[Type]struct{}

// NewSet builds a set from types. Duplicates collapse.
func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// ParseSet validates every name and builds a set.
func ParseSet(names []string) (Set, error) {
	s := make(Set, len(names))
	for _, n := range names {
		t, err := Parse(n)
		if err != nil {
			return nil, err
		}
		s[t] = struct{}{}
	}
	return s, nil
}

// Has reports membership.
func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// Len returns the number of distinct types.
func (s Set) Len() int { return len(s) }

// Types returns the members sorted lexically.
func (s Set) Types() []Type {
	out := make([]Type, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Strings returns the members as sorted strings, the storage form used by
// every backend.
func (s Set) Strings() []string {
	types := s.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array, failing on unknown event types.
func (s *Set) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	parsed, err := ParseSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
