// Package manifest describes a compiled tag table in a form other tools can
// read: the chosen layout plus every tag with its packed value.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	qtag "github.com/starfederation/qtag-go"
)

// Format selects the manifest encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCBOR    Format = "cbor"
	FormatMsgpack Format = "msgpack"
	FormatYAML    Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCBOR, FormatMsgpack, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "mp", "msgp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q", s)
	}
}

// Entry is one compiled tag.
type Entry struct {
	Name  string `json:"name" cbor:"name" msgpack:"name" yaml:"name"`
	Value uint64 `json:"value" cbor:"value" msgpack:"value" yaml:"value"`
	Path  string `json:"path" cbor:"path" msgpack:"path" yaml:"path"`
	Depth int    `json:"depth" cbor:"depth" msgpack:"depth" yaml:"depth"`
}

// Manifest is a compiled tag table with its layout.
type Manifest struct {
	TypeName    string  `json:"typeName" cbor:"typeName" msgpack:"typeName" yaml:"typeName"`
	Base        string  `json:"base" cbor:"base" msgpack:"base" yaml:"base"`
	Widths      []int   `json:"widths" cbor:"widths" msgpack:"widths" yaml:"widths,flow"`
	Template    string  `json:"template" cbor:"template" msgpack:"template" yaml:"template"`
	Fingerprint string  `json:"fingerprint" cbor:"fingerprint" msgpack:"fingerprint" yaml:"fingerprint"`
	Tags        []Entry `json:"tags" cbor:"tags" msgpack:"tags" yaml:"tags"`
}

// FromTable converts a compiled table.
func FromTable[T qtag.Unsigned](typeName string, layout *qtag.Layout[T], table *qtag.Table[T], fingerprint string) *Manifest {
	widths := make([]int, layout.NumFields())
	fieldBits := make([]uint32, layout.NumFields())
	for i := range widths {
		widths[i] = int(layout.Width(i))
		fieldBits[i] = uint32(layout.Width(i))
	}
	m := &Manifest{
		TypeName:    typeName,
		Base:        layout.Base().String(),
		Widths:      widths,
		Template:    qtag.TemplateString(typeName, layout.Base(), fieldBits),
		Fingerprint: fingerprint,
		Tags:        make([]Entry, 0, table.Len()),
	}
	for i, tag := range table.Tags() {
		m.Tags = append(m.Tags, Entry{
			Name:  table.NameAt(i),
			Value: uint64(tag.Value()),
			Path:  tag.String(),
			Depth: tag.Depth(),
		})
	}
	return m
}

// Fingerprint hashes the ordered strings of set with BLAKE3-256.
func Fingerprint(set *qtag.TagStringSet) string {
	h := blake3.New()
	for _, tag := range set.Strings() {
		h.Write([]byte(tag))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Encode writes m to w.
func (m *Manifest) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case FormatCBOR:
		return cbor.NewEncoder(w).Encode(m)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(m)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown manifest format %q", format)
	}
}
