package qtag

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Base is the unsigned integer width a packed tag is stored in.
type Base uint8

const (
	BaseUint8 Base = iota
	BaseUint16
	BaseUint32
	BaseUint64
)

// Bits returns the width of b in bits.
func (b Base) Bits() int {
	return 8 << b
}

func (b Base) String() string {
	switch b {
	case BaseUint8:
		return "uint8"
	case BaseUint16:
		return "uint16"
	case BaseUint32:
		return "uint32"
	case BaseUint64:
		return "uint64"
	}
	return "Base(" + strconv.Itoa(int(b)) + ")"
}

// ParseBase parses "uint8", "uint16", "uint32" or "uint64". The C spellings
// with a "_t" suffix are accepted too.
func ParseBase(s string) (Base, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_t") {
	case "uint8", "u8", "8":
		return BaseUint8, nil
	case "uint16", "u16", "16":
		return BaseUint16, nil
	case "uint32", "u32", "32":
		return BaseUint32, nil
	case "uint64", "u64", "64":
		return BaseUint64, nil
	}
	return 0, fmt.Errorf("unknown integer base %q", s)
}

// BaseForBits maps an exact width in bits to its Base.
func BaseForBits(n int) (Base, bool) {
	switch n {
	case 8:
		return BaseUint8, true
	case 16:
		return BaseUint16, true
	case 32:
		return BaseUint32, true
	case 64:
		return BaseUint64, true
	}
	return 0, false
}

// FindTagRanges returns, for every depth, the size of the widest sibling
// group at that depth. ranges[0] is the number of roots. Depths without
// nodes are not present, so an empty forest yields nil.
func FindTagRanges(f *Forest) []uint32 {
	if len(f.roots) == 0 {
		return nil
	}
	ranges := []uint32{uint32(len(f.roots))}
	f.Walk(func(idx, depth int) {
		n := len(f.nodes[idx].Children)
		if n == 0 {
			return
		}
		child := depth + 1
		for len(ranges) <= child {
			ranges = append(ranges, 0)
		}
		ranges[child] = max(ranges[child], uint32(n))
	})
	return ranges
}

// RequiredBitsPerField returns the bit length of every range. A range of 8
// needs 4 bits.
func RequiredBitsPerField(ranges []uint32) []uint32 {
	out := make([]uint32, len(ranges))
	for i, r := range ranges {
		out[i] = uint32(bits.Len32(r))
	}
	return out
}

// FindSmallestIntBase sums the field widths, rounds up to a power of two and
// returns the smallest base that holds it. Sums above 64 are clamped to
// BaseUint64; such a layout cannot be built and callers that care must check
// the sum themselves.
func FindSmallestIntBase(fieldBits []uint32) Base {
	var sum uint64
	for _, b := range fieldBits {
		sum += uint64(b)
	}
	switch rounded := roundUpPow2(sum); {
	case rounded <= 8:
		return BaseUint8
	case rounded <= 16:
		return BaseUint16
	case rounded <= 32:
		return BaseUint32
	default:
		return BaseUint64
	}
}

func roundUpPow2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len64(v-1)
}

// TemplateString renders a layout declaration for code generation, e.g.
// "QuickTag<uint8, 2, 2>".
func TemplateString(typeName string, base Base, fieldBits []uint32) string {
	var sb strings.Builder
	sb.WriteString(typeName)
	sb.WriteByte('<')
	sb.WriteString(base.String())
	for _, b := range fieldBits {
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatUint(uint64(b), 10))
	}
	sb.WriteByte('>')
	return sb.String()
}

// Plan is the narrowest layout that represents a forest.
type Plan struct {
	Ranges   []uint32
	Bits     []uint32
	Sum      uint32
	Base     Base
	Overflow bool // Sum does not fit in 64 bits
}

// PlanLayout enumerates f and derives its layout plan.
func PlanLayout(f *Forest) Plan {
	f.Enumerate()
	ranges := FindTagRanges(f)
	fieldBits := RequiredBitsPerField(ranges)
	var sum uint32
	for _, b := range fieldBits {
		sum += b
	}
	return Plan{
		Ranges:   ranges,
		Bits:     fieldBits,
		Sum:      sum,
		Base:     FindSmallestIntBase(fieldBits),
		Overflow: sum > 64,
	}
}

// Widths returns Bits narrowed to layout widths.
func (p Plan) Widths() ([]uint8, error) {
	out := make([]uint8, len(p.Bits))
	for i, b := range p.Bits {
		w, err := safecast.Conv[uint8](b)
		if err != nil {
			return nil, fmt.Errorf("field %d width %d: %w", i, b, err)
		}
		out[i] = w
	}
	return out, nil
}

// TemplateString renders the plan as a layout declaration.
func (p Plan) TemplateString(typeName string) string {
	return TemplateString(typeName, p.Base, p.Bits)
}
