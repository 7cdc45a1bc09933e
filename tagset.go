package qtag

import (
	"slices"
	"strings"
)

// SetFlags controls how strings are admitted to a TagStringSet.
type SetFlags uint8

const (
	// CaseInsensitive lowers ASCII letters before insertion. Other
	// characters are kept as they are.
	CaseInsensitive SetFlags = 1 << iota
)

// TagStringSet is a sorted, duplicate free set of tag strings. Strings
// containing a space or a tab, and the empty string, are rejected.
type TagStringSet struct {
	flags SetFlags
	items []string
}

// NewTagStringSet returns an empty set.
func NewTagStringSet(flags SetFlags) *TagStringSet {
	return &TagStringSet{flags: flags}
}

// Flags returns the flags the set was created with.
func (s *TagStringSet) Flags() SetFlags { return s.flags }

// Add inserts tag and reports whether the set changed.
func (s *TagStringSet) Add(tag string) bool {
	if !ValidTagString(tag) {
		return false
	}
	if s.flags&CaseInsensitive != 0 {
		tag = asciiLower(tag)
	}
	i, found := slices.BinarySearch(s.items, tag)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, tag)
	return true
}

// Contains reports whether tag is in the set, after applying the set's case policy.
func (s *TagStringSet) Contains(tag string) bool {
	if s.flags&CaseInsensitive != 0 {
		tag = asciiLower(tag)
	}
	_, found := slices.BinarySearch(s.items, tag)
	return found
}

// Merge adds every string of other.
func (s *TagStringSet) Merge(other *TagStringSet) {
	for _, tag := range other.items {
		s.Add(tag)
	}
}

// Len returns the number of strings.
func (s *TagStringSet) Len() int { return len(s.items) }

// Strings returns the strings in order.
func (s *TagStringSet) Strings() []string {
	return slices.Clone(s.items)
}

// ValidTagString reports whether tag may enter a set.
func ValidTagString(tag string) bool {
	return tag != "" && !strings.ContainsAny(tag, " \t")
}

func asciiLower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
