package user

import (
	"encoding/json"
	"sort"
)

// StringSet is a set of strings. JSON has no set type, so the on-disk form
// is a sorted array; UnmarshalJSON converts sequence back to set and
// MarshalJSON converts set to sequence. This round-trip must stay lossless.
type StringSet map[string]struct{}

func NewStringSet(members ...string) StringSet {
	s := make(StringSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts m and reports whether it was not already present.
func (s StringSet) Add(m string) bool {
	if _, ok := s[m]; ok {
		return false
	}
	s[m] = struct{}{}
	return true
}

func (s StringSet) Has(m string) bool {
	_, ok := s[m]
	return ok
}

func (s StringSet) Len() int { return len(s) }

// Members returns the members sorted, for stable serialization and display.
func (s StringSet) Members() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s StringSet) Clone() StringSet {
	out := make(StringSet, len(s))
	for m := range s {
		out[m] = struct{}{}
	}
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Members())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*s = NewStringSet(members...)
	return nil
}
