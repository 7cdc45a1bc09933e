package qtag

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"
)

func newSet(tags ...string) *TagStringSet {
	set := NewTagStringSet(0)
	for _, tag := range tags {
		set.Add(tag)
	}
	return set
}

func TestCompileEmitsEveryNode(t *testing.T) {
	layout := MustLayout[uint8](2, 2)
	table := Compile(layout, newSet("A", "A.B", "A.C", "D"))

	type entry struct {
		name  string
		value uint8
	}
	var got []entry
	for _, tag := range table.Tags() {
		name, ok := table.Name(tag)
		if !ok {
			t.Fatalf("no name for %s", tag)
		}
		got = append(got, entry{name, tag.Value()})
	}
	want := []entry{{"A", 0x40}, {"A.B", 0x50}, {"A.C", 0x60}, {"D", 0x80}}
	if !slices.Equal(got, want) {
		t.Fatalf("table = %v, want %v", got, want)
	}

	a, _ := table.Lookup("A")
	ab, _ := table.Lookup("A.B")
	d, _ := table.Lookup("D")
	if !ab.Matches(a) || ab.Matches(d) || a.Matches(ab) {
		t.Fatalf("compiled tags do not match hierarchically")
	}
	if _, ok := table.Lookup("B"); ok {
		t.Fatalf("lookup of unknown name succeeded")
	}
}

func TestCompileInternalNodesAreTags(t *testing.T) {
	table := Compile(MustLayout[uint16](4, 4, 4), newSet("Weapon.Melee.Sword", "Weapon.Ranged.Bow"))
	if table.Len() != 5 {
		t.Fatalf("len = %d, want 5", table.Len())
	}
	weapon, ok := table.Lookup("Weapon")
	if !ok || weapon.Depth() != 1 {
		t.Fatalf("Weapon = %s, %v", weapon, ok)
	}
	sword, _ := table.Lookup("Weapon.Melee.Sword")
	bow, _ := table.Lookup("Weapon.Ranged.Bow")
	if !sword.Matches(weapon) || !bow.Matches(weapon) {
		t.Fatalf("leaves should match their root")
	}
	if sword.String() != "1.1.1" || bow.String() != "1.2.1" {
		t.Fatalf("paths = %s, %s", sword, bow)
	}
}

// Every node gets one valid tag, tags are unique, and substituting the ids
// of a tag back into the label path rebuilds the same tree.
func TestCompileStructuralRoundTrip(t *testing.T) {
	var tags []string
	for i := 0; i < 6; i++ {
		for j := 0; j < i; j++ {
			for k := 0; k < j; k++ {
				tags = append(tags, fmt.Sprintf("r%d.c%d.g%d", i, j, k))
			}
			tags = append(tags, fmt.Sprintf("r%d.c%d", i, j))
		}
		tags = append(tags, fmt.Sprintf("r%d", i))
	}
	set := newSet(tags...)
	forest := BuildForest(set.Strings())
	plan := PlanLayout(forest)
	widths, err := plan.Widths()
	if err != nil {
		t.Fatalf("widths: %v", err)
	}
	layout, err := NewLayout[uint32](widths...)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if err := layout.CanRepresent(forest); err != nil {
		t.Fatalf("planned layout does not fit: %v", err)
	}
	table := CompileForest(layout, forest)
	if table.Len() != forest.Len() {
		t.Fatalf("tags = %d, nodes = %d", table.Len(), forest.Len())
	}

	byIDs := make(map[string]string)
	seen := make(map[uint32]bool)
	for _, tag := range table.Tags() {
		if !tag.IsValid() {
			t.Fatalf("invalid tag %s", tag)
		}
		if seen[tag.Value()] {
			t.Fatalf("duplicate value %s", tag)
		}
		seen[tag.Value()] = true
		name, _ := table.Name(tag)
		labels := strings.Split(name, ".")
		if tag.Depth() != len(labels) {
			t.Fatalf("%s depth %d, name %q", tag, tag.Depth(), name)
		}
		ids := strings.Split(tag.String(), ".")[:tag.Depth()]
		// Parents are emitted first, so the id prefix of every tag maps to
		// the label prefix of its name.
		for n := 1; n <= len(ids); n++ {
			key := strings.Join(ids[:n], ".")
			label := strings.Join(labels[:n], ".")
			if prev, ok := byIDs[key]; ok && prev != label {
				t.Fatalf("ids %s map to %q and %q", key, prev, label)
			}
			byIDs[key] = label
		}
	}
	if len(byIDs) != forest.Len() {
		t.Fatalf("rebuilt %d paths, want %d", len(byIDs), forest.Len())
	}
	for key := range byIDs {
		for _, part := range strings.Split(key, ".") {
			if n, _ := strconv.Atoi(part); n == 0 {
				t.Fatalf("zero id in %s", key)
			}
		}
	}
}

func TestCompileNarrowLayoutKeepsFirstName(t *testing.T) {
	// A 2-bit field wraps the fifth root (id 5) onto the first (id 1).
	table := Compile(MustLayout[uint8](2), newSet("A", "B", "C", "D", "E"))
	if table.Len() != 5 {
		t.Fatalf("len = %d", table.Len())
	}
	tags := table.Tags()
	if tags[0].Value() != tags[4].Value() {
		t.Fatalf("expected a collision, got %s and %s", tags[0], tags[4])
	}
	if name, _ := table.Name(tags[4]); name != "A" {
		t.Fatalf("collision kept %q, want A", name)
	}
	if table.NameAt(4) != "E" {
		t.Fatalf("NameAt(4) = %q, want E", table.NameAt(4))
	}
	if e, _ := table.Lookup("E"); !e.Equal(tags[0]) {
		t.Fatalf("lookup E = %s", e)
	}
}
