package main

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/go/packages"

	"github.com/starfederation/qtag-go/manifest"
)

const (
	qtagImportPath  = "github.com/starfederation/qtag-go"
	generatedHeader = "// Code generated by qtagc; DO NOT EDIT."
)

//go:embed templates/qtag_gen.gotemplate
var qtagGenTemplate string

type genOptions struct {
	Dir     string
	Package string
	Prefix  string
}

type genTag struct {
	Ident string
	Name  string
	Path  string
	Hex   string
}

type templateData struct {
	Header      string
	PackageName string
	Imports     []string
	QtagPrefix  string
	LayoutVar   string
	NamesVar    string
	Base        string
	WidthList   string
	Template    string
	Fingerprint string
	Tags        []genTag
}

func generateFile(m *manifest.Manifest, opts genOptions) ([]byte, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", opts.Package)
	}
	widths, err := widthList(m)
	if err != nil {
		return nil, err
	}
	widthStrs := make([]string, len(widths))
	for i, w := range widths {
		widthStrs[i] = strconv.Itoa(int(w))
	}

	data := templateData{
		Header:      generatedHeader,
		PackageName: opts.Package,
		QtagPrefix:  "qtag.",
		Base:        m.Base,
		WidthList:   strings.Join(widthStrs, ", "),
		Template:    m.Template,
		Fingerprint: m.Fingerprint,
	}
	if isQtagRootPackage(opts.Dir) {
		data.QtagPrefix = ""
	} else {
		data.Imports = []string{fmt.Sprintf("qtag %q", qtagImportPath)}
	}

	names := newIdentAllocator(opts.Prefix)
	data.LayoutVar = names.reserve(identPrefix(opts.Prefix) + "Layout")
	data.NamesVar = names.reserve(identPrefix(opts.Prefix) + "Names")
	digits := len(strconv.FormatUint(maxForBase(m.Base), 16))
	for _, entry := range m.Tags {
		data.Tags = append(data.Tags, genTag{
			Ident: names.forTag(entry.Name),
			Name:  entry.Name,
			Path:  entry.Path,
			Hex:   fmt.Sprintf("0x%0*x", digits, entry.Value),
		})
	}

	var buf bytes.Buffer
	tmpl, err := template.New("qtag_gen").Parse(qtagGenTemplate)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return formatted, nil
}

func maxForBase(base string) uint64 {
	switch base {
	case "uint8":
		return 0xff
	case "uint16":
		return 0xffff
	case "uint32":
		return 0xffffffff
	default:
		return ^uint64(0)
	}
}

func identPrefix(prefix string) string {
	if prefix == "" {
		return "Tag"
	}
	return prefix
}

// identAllocator turns dotted tag names into unique Go identifiers.
type identAllocator struct {
	prefix string
	caser  cases.Caser
	used   map[string]struct{}
}

func newIdentAllocator(prefix string) *identAllocator {
	return &identAllocator{
		prefix: identPrefix(prefix),
		caser:  cases.Title(language.Und, cases.NoLower),
		used:   make(map[string]struct{}),
	}
}

func (a *identAllocator) reserve(name string) string {
	candidate := name
	for n := 2; ; n++ {
		if _, taken := a.used[candidate]; !taken {
			a.used[candidate] = struct{}{}
			return candidate
		}
		candidate = name + "_" + strconv.Itoa(n)
	}
}

func (a *identAllocator) forTag(name string) string {
	var sb strings.Builder
	sb.WriteString(a.prefix)
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		sb.WriteString(a.caser.String(word))
	}
	ident := sb.String()
	if !token.IsIdentifier(ident) || !token.IsExported(ident) {
		ident = "T" + ident
	}
	return a.reserve(ident)
}

// detectPackageName returns the package name of the Go files already in dir,
// or a name derived from the directory when there are none.
func detectPackageName(dir string) string {
	cfg := &packages.Config{
		Mode: packages.NeedName,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err == nil {
		for _, pkg := range pkgs {
			if len(pkg.Errors) > 0 && !isSkippablePackageErrors(pkg.Errors) {
				continue
			}
			if pkg.Name != "" && !strings.HasSuffix(pkg.Name, "_test") {
				return pkg.Name
			}
		}
	}
	return packageNameFromDir(dir)
}

func packageNameFromDir(dir string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(filepath.Base(dir)) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	if !token.IsIdentifier(name) {
		return "tags"
	}
	return name
}

func isSkippablePackageErrors(errs []packages.Error) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		msg := strings.ToLower(err.Msg)
		if strings.Contains(msg, "build constraints exclude all go files") {
			continue
		}
		if strings.Contains(msg, "no go files") {
			continue
		}
		return false
	}
	return true
}

// isQtagRootPackage reports whether dir is the root package of this module,
// where the generated file must not import itself.
func isQtagRootPackage(dir string) bool {
	root, modulePath, err := findModuleRoot(dir)
	if err != nil {
		return false
	}
	return modulePath == qtagImportPath && filepath.Clean(root) == filepath.Clean(dir)
}

func findModuleRoot(start string) (string, string, error) {
	dir := start
	for {
		modPath := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(modPath)
		if err == nil {
			modulePath, err := parseModulePath(data)
			if err != nil {
				return "", "", err
			}
			return dir, modulePath, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("go.mod not found starting from %s", start)
		}
		dir = parent
	}
}

func parseModulePath(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "module ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return fields[1], nil
			}
			return "", fmt.Errorf("module declaration malformed")
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in go.mod")
}

func writeFileIfChanged(filePath string, data []byte) (bool, error) {
	existing, err := os.ReadFile(filePath)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// removeGeneratedFile deletes filePath only if qtagc wrote it.
func removeGeneratedFile(filePath string) (bool, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !bytes.HasPrefix(data, []byte(generatedHeader)) {
		return false, nil
	}
	if err := os.Remove(filePath); err != nil {
		return false, err
	}
	return true, nil
}
