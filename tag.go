package qtag

import (
	"cmp"
	"strconv"

	"github.com/delaneyj/toolbelt/bytebufferpool"
)

// Tag is a packed hierarchical tag: one integer holding a field per level.
// The zero value of the integer means "no tag". Tags are plain values and
// are only comparable with tags of the same layout.
type Tag[T Unsigned] struct {
	layout *Layout[T]
	value  T
}

// Value returns the packed integer.
func (t Tag[T]) Value() T { return t.value }

// Layout returns the field layout of t.
func (t Tag[T]) Layout() *Layout[T] { return t.layout }

// IsZero reports whether t holds no tag.
func (t Tag[T]) IsZero() bool { return t.value == 0 }

// Field returns field i, or 0 when i is out of range.
func (t Tag[T]) Field(i int) T {
	if t.layout == nil || i < 0 || i >= len(t.layout.fields) {
		return 0
	}
	f := t.layout.fields[i]
	return (t.value & f.mask) >> uint(f.offset)
}

// SetField overwrites field i with v masked to the field width. Bits of v
// that do not fit are dropped. Out of range indexes are ignored.
func (t *Tag[T]) SetField(i int, v T) {
	if t.layout == nil || i < 0 || i >= len(t.layout.fields) {
		return
	}
	f := t.layout.fields[i]
	t.value = (t.value &^ f.mask) | ((v & f.size) << uint(f.offset))
}

// IsValid reports whether t is set and has no populated field below an
// empty ancestor field.
func (t Tag[T]) IsValid() bool {
	if t.value == 0 || t.layout == nil {
		return false
	}
	seen := false
	for i := len(t.layout.fields) - 1; i >= 0; i-- {
		if t.value&t.layout.fields[i].mask != 0 {
			seen = true
		} else if seen {
			return false
		}
	}
	return true
}

// Depth counts the populated fields from the root until the first empty one.
func (t Tag[T]) Depth() int {
	if t.value == 0 || t.layout == nil {
		return 0
	}
	depth := 0
	for _, f := range t.layout.fields {
		if t.value&f.mask == 0 {
			break
		}
		depth++
	}
	return depth
}

// Matches reports whether t is other or a descendant of other.
// "A.1".Matches("A") is true, "A".Matches("A.1") is false.
func (t Tag[T]) Matches(other Tag[T]) bool {
	if !other.IsValid() {
		return false
	}
	theirs := other.Depth()
	mine := t.Depth()
	switch {
	case theirs > mine:
		return false
	case theirs == mine:
		return t.value == other.value
	default:
		return t.value&t.layout.parentMask(theirs) == other.value
	}
}

// MatchesExact reports whether t equals a valid other.
func (t Tag[T]) MatchesExact(other Tag[T]) bool {
	if !other.IsValid() {
		return false
	}
	return t.value == other.value
}

// Equal reports whether both tags hold the same packed value.
func (t Tag[T]) Equal(other Tag[T]) bool { return t.value == other.value }

// Compare orders tags by packed value, which is depth-first path order.
func (t Tag[T]) Compare(other Tag[T]) int { return cmp.Compare(t.value, other.value) }

// Less reports whether t sorts before other.
func (t Tag[T]) Less(other Tag[T]) bool { return t.value < other.value }

// String renders every field in decimal joined by '.', root first,
// e.g. "1.2.3.0".
func (t Tag[T]) String() string {
	if t.layout == nil {
		return strconv.FormatUint(uint64(t.value), 10)
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	var tmp [20]byte
	for i := range t.layout.fields {
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.Write(strconv.AppendUint(tmp[:0], uint64(t.Field(i)), 10))
	}
	return string(buf.Bytes())
}
