package qtag

import (
	"slices"
	"testing"
)

func TestTagStringSetRejectsWhitespaceAndEmpty(t *testing.T) {
	set := NewTagStringSet(0)
	for _, tag := range []string{"Has Space", "Has\tTab", "", " "} {
		if set.Add(tag) {
			t.Errorf("accepted %q", tag)
		}
	}
	if set.Len() != 0 {
		t.Fatalf("len = %d", set.Len())
	}
}

func TestTagStringSetOrdersAndDeduplicates(t *testing.T) {
	set := NewTagStringSet(0)
	for _, tag := range []string{"b", "a.c", "a", "b", "B"} {
		set.Add(tag)
	}
	want := []string{"B", "a", "a.c", "b"}
	if got := set.Strings(); !slices.Equal(got, want) {
		t.Fatalf("strings = %v, want %v", got, want)
	}
	if set.Add("a") {
		t.Fatalf("duplicate reported as added")
	}
	if !set.Contains("a.c") || set.Contains("A.C") {
		t.Fatalf("contains is not case sensitive")
	}
}

func TestTagStringSetCaseInsensitive(t *testing.T) {
	set := NewTagStringSet(CaseInsensitive)
	set.Add("Weapon.Sword")
	if set.Add("WEAPON.sword") {
		t.Fatalf("case variant added twice")
	}
	if !set.Contains("weapon.SWORD") {
		t.Fatalf("contains should fold case")
	}
	// Only ASCII letters are folded.
	set.Add("Épée")
	if !slices.Contains(set.Strings(), "Épée") {
		t.Fatalf("non-ASCII letters changed: %v", set.Strings())
	}
	if set.Flags() != CaseInsensitive {
		t.Fatalf("flags = %d", set.Flags())
	}
}

func TestTagStringSetMerge(t *testing.T) {
	a := newSet("x", "y")
	b := newSet("y", "z")
	a.Merge(b)
	if got := a.Strings(); !slices.Equal(got, []string{"x", "y", "z"}) {
		t.Fatalf("merged = %v", got)
	}
}
