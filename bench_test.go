package qtag

import (
	"fmt"
	"testing"
)

var (
	sinkBool  bool
	sinkTable *Table[uint32]
)

func benchTagSet() *TagStringSet {
	set := NewTagStringSet(0)
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			for k := 0; k < 8; k++ {
				set.Add(fmt.Sprintf("Group%d.Kind%d.Item%d", i, j, k))
			}
		}
	}
	return set
}

func BenchmarkCompile(b *testing.B) {
	set := benchTagSet()
	layout := MustLayout[uint32](5, 5, 4)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkTable = Compile(layout, set)
	}
}

func BenchmarkMatches(b *testing.B) {
	child := layout4812.MakeFromPath(3, 7, 11, 2)
	parent := layout4812.MakeFromPath(3, 7)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkBool = child.Matches(parent)
	}
}

func BenchmarkMatchesStrings(b *testing.B) {
	child := "Group3.Kind7.Item2"
	parent := "Group3.Kind7"
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkBool = len(child) > len(parent) && child[:len(parent)] == parent && child[len(parent)] == '.'
	}
}
