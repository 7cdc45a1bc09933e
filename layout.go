package qtag

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Unsigned is the set of integer types a packed tag can be stored in.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// fieldSpec describes one packed field. Offsets count from bit 0.
type fieldSpec[T Unsigned] struct {
	offset uint8
	width  uint8
	size   T // unshifted mask, 2^width - 1
	mask   T // size << offset
}

// Layout is the ordered field list of a packed tag type. Field 0 holds the
// root level and occupies the most significant bits, so integer order of
// packed values is depth-first order of the tag paths.
//
// A Layout is immutable once built and may be shared between goroutines.
type Layout[T Unsigned] struct {
	fields []fieldSpec[T]
	used   uint8
}

// BitsOf returns the width in bits of T.
func BitsOf[T Unsigned]() int {
	return bits.Len64(uint64(^T(0)))
}

// NewLayout builds a layout from the declared field widths, root level first.
func NewLayout[T Unsigned](widths ...uint8) (*Layout[T], error) {
	if len(widths) == 0 {
		return nil, fmt.Errorf("layout needs at least one field")
	}
	total := BitsOf[T]()
	sum := 0
	for i, w := range widths {
		if w == 0 {
			return nil, fmt.Errorf("field %d has zero width", i)
		}
		sum += int(w)
	}
	if sum > total {
		return nil, fmt.Errorf("field widths sum to %d bits, %d available", sum, total)
	}

	l := &Layout[T]{fields: make([]fieldSpec[T], len(widths)), used: uint8(sum)}
	offset := total
	for i, w := range widths {
		offset -= int(w)
		size := T(^uint64(0) >> (64 - uint(w)))
		l.fields[i] = fieldSpec[T]{
			offset: uint8(offset),
			width:  w,
			size:   size,
			mask:   size << uint(offset),
		}
	}
	return l, nil
}

// MustLayout is NewLayout for package-level declarations; it panics on error.
func MustLayout[T Unsigned](widths ...uint8) *Layout[T] {
	l, err := NewLayout[T](widths...)
	if err != nil {
		panic(err)
	}
	return l
}

// NumFields returns the number of fields.
func (l *Layout[T]) NumFields() int { return len(l.fields) }

// Bits returns the number of bits the fields use.
func (l *Layout[T]) Bits() int { return int(l.used) }

// Width returns the width of field i.
func (l *Layout[T]) Width(i int) uint8 { return l.fields[i].width }

// Offset returns the bit offset of field i from the least significant bit.
func (l *Layout[T]) Offset(i int) uint8 { return l.fields[i].offset }

// MaxFieldValue returns the largest value field i can hold.
func (l *Layout[T]) MaxFieldValue(i int) T { return l.fields[i].size }

// Widths returns a copy of the declared widths.
func (l *Layout[T]) Widths() []uint8 {
	out := make([]uint8, len(l.fields))
	for i, f := range l.fields {
		out[i] = f.width
	}
	return out
}

// Base returns the integer base T maps to.
func (l *Layout[T]) Base() Base {
	base, _ := BaseForBits(BitsOf[T]())
	return base
}

// String renders the layout as a template declaration, e.g. "uint32, 4, 8, 12, 8".
func (l *Layout[T]) String() string {
	var sb strings.Builder
	sb.WriteString(l.Base().String())
	for _, f := range l.fields {
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(int(f.width)))
	}
	return sb.String()
}

// FromRaw wraps an already packed integer. The result is not checked; use
// IsValid when v did not come from MakeFromPath.
func (l *Layout[T]) FromRaw(v T) Tag[T] {
	return Tag[T]{layout: l, value: v}
}

// MakeFromPath packs values into fields 0, 1, ... in order. Assignment stops
// at the first zero entry so the result never has a gap. Values wider than
// their field are masked. Entries beyond NumFields are ignored.
func (l *Layout[T]) MakeFromPath(values ...uint64) Tag[T] {
	var v T
	n := min(len(values), len(l.fields))
	for i := 0; i < n; i++ {
		if values[i] == 0 {
			break
		}
		f := l.fields[i]
		v |= (T(values[i]) & f.size) << uint(f.offset)
	}
	return Tag[T]{layout: l, value: v}
}

// CanRepresent reports whether every node of the enumerated forest fits the
// layout without truncation: enough fields for the deepest node and wide
// enough fields for the largest id at every depth.
func (l *Layout[T]) CanRepresent(f *Forest) error {
	ranges := FindTagRanges(f)
	if len(ranges) > len(l.fields) {
		return fmt.Errorf("hierarchy is %d levels deep, layout has %d fields", len(ranges), len(l.fields))
	}
	for d, r := range ranges {
		if uint64(r) > uint64(l.fields[d].size) {
			return fmt.Errorf("level %d has %d siblings, field %d holds at most %d", d, r, d, uint64(l.fields[d].size))
		}
	}
	return nil
}

// parentMask returns the mask covering fields [0, depth).
func (l *Layout[T]) parentMask(depth int) T {
	var m T
	for i := 0; i < depth && i < len(l.fields); i++ {
		m |= l.fields[i].mask
	}
	return m
}
