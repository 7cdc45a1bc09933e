package main

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	qtag "github.com/starfederation/qtag-go"
	"github.com/starfederation/qtag-go/config"
)

func testSession(t *testing.T, cfg *config.Config) (*session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s, err := sessionFromConfig(cfg, &out)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return s, &out
}

func tagSet(tags ...string) *qtag.TagStringSet {
	set := qtag.NewTagStringSet(0)
	for _, tag := range tags {
		set.Add(tag)
	}
	return set
}

func normalize(src []byte) string {
	return strings.Join(strings.Fields(string(src)), " ")
}

func TestGenerateFile(t *testing.T) {
	s, _ := testSession(t, config.Default())
	m, _, err := s.compile(tagSet("A", "A.B", "A.C", "D"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	src, err := generateFile(m, genOptions{Dir: t.TempDir(), Package: "gameplay", Prefix: "Tag"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.HasPrefix(src, []byte(generatedHeader)) {
		t.Fatalf("missing generated header:\n%s", src)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "qtag_gen.go", src, 0); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, src)
	}
	got := normalize(src)
	for _, want := range []string{
		"package gameplay",
		`import ( qtag "github.com/starfederation/qtag-go" )`,
		"var TagLayout = qtag.MustLayout[uint8](2, 2)",
		"TagA = TagLayout.FromRaw(0x40) // A (1.0)",
		"TagAB = TagLayout.FromRaw(0x50) // A.B (1.1)",
		"TagAC = TagLayout.FromRaw(0x60) // A.C (1.2)",
		"TagD = TagLayout.FromRaw(0x80) // D (2.0)",
		`var TagNames = map[qtag.Tag[uint8]]string{ TagA: "A",`,
		`TagD: "D", }`,
		"QuickTag<uint8, 2, 2>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("generated source missing %q:\n%s", want, src)
		}
	}
}

func TestIdentAllocator(t *testing.T) {
	a := newIdentAllocator("Tag")
	a.reserve("TagLayout")
	tests := []struct {
		name string
		want string
	}{
		{"a-b", "TagAB"},
		{"a", "TagA"},
		{"a.b", "TagAB_2"},
		{"weapon.melee_sword", "TagWeaponMeleeSword"},
		{"Layout", "TagLayout_2"},
		{"level.x1", "TagLevelX1"},
	}
	for _, tt := range tests {
		if got := a.forTag(tt.name); got != tt.want {
			t.Errorf("forTag(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if got := newIdentAllocator("low").forTag("x"); got != "TlowX" {
		t.Fatalf("unexported prefix = %q", got)
	}
}

func TestSessionCompilePinnedLayout(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.Widths = []int{4, 4}
	s, _ := testSession(t, cfg)
	m, plan, err := s.compile(tagSet("A", "A.B", "D"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if m.Template != "QuickTag<uint8, 4, 4>" || plan.TemplateString("QuickTag") != "QuickTag<uint8, 2, 1>" {
		t.Fatalf("templates = %q, %q", m.Template, plan.TemplateString("QuickTag"))
	}

	cfg.Layout.Base = "uint32"
	s, _ = testSession(t, cfg)
	m, _, err = s.compile(tagSet("A", "A.B", "D"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if m.Template != "QuickTag<uint32, 4, 4>" || m.Tags[1].Value != 0x11000000 {
		t.Fatalf("manifest = %+v", m)
	}
}

func TestSessionCompileRejectsNarrowLayout(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.Widths = []int{1}
	s, _ := testSession(t, cfg)
	if _, _, err := s.compile(tagSet("A", "B")); err == nil {
		t.Fatalf("expected error for a layout that truncates ids")
	}
	if _, _, err := s.compile(tagSet()); err == nil {
		t.Fatalf("expected error for empty set")
	}
}

func TestPlanCommand(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.txt")
	if err := os.WriteFile(path, []byte("A\nA.B\nA.C\nD\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, out := testSession(t, config.Default())
	if err := (&planCmd{Files: []string{path}}).Run(s); err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{"4 tags", "ranges:   [2 2]", "bits:     [2 2]", "sum:      4", "base:     uint8", "template: QuickTag<uint8, 2, 2>"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.txt")
	if err := os.WriteFile(path, []byte("B\nA\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, out := testSession(t, config.Default())
	if err := (&listCmd{Files: []string{path}}).Run(s); err != nil {
		t.Fatalf("list: %v", err)
	}
	if out.String() != "Found Tag A\nFound Tag B\n" {
		t.Fatalf("list output = %q", out)
	}
}

func TestGenCommandWritesAndRemoves(t *testing.T) {
	dir := t.TempDir()
	tags := filepath.Join(dir, "tags.txt")
	if err := os.WriteFile(tags, []byte("Weapon.Sword\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "qtag_gen.go")
	s, _ := testSession(t, config.Default())
	cmd := &genCmd{Files: []string{tags}, Out: out, Package: "weapons"}
	if err := cmd.Run(s); err != nil {
		t.Fatalf("gen: %v", err)
	}
	src, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read generated: %v", err)
	}
	if !strings.Contains(normalize(src), "TagWeaponSword = TagLayout.FromRaw(0xc0) // Weapon.Sword (1.1)") {
		t.Fatalf("unexpected output:\n%s", src)
	}
	changed, err := writeFileIfChanged(out, src)
	if err != nil || changed {
		t.Fatalf("rewrite of identical content: changed=%v err=%v", changed, err)
	}

	if err := os.WriteFile(tags, nil, 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := cmd.Run(s); err != nil {
		t.Fatalf("gen empty: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("generated file should be removed, stat err = %v", err)
	}
}

func TestRemoveGeneratedFileKeepsHandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.go")
	if err := os.WriteFile(path, []byte("package tags\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	removed, err := removeGeneratedFile(path)
	if err != nil || removed {
		t.Fatalf("removed=%v err=%v", removed, err)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	tags := filepath.Join(dir, "tags.txt")
	if err := os.WriteFile(tags, []byte("A\nA.B\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, out := testSession(t, config.Default())
	if err := (&exportCmd{Files: []string{tags}, Format: "yaml"}).Run(s); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out.String(), "template: QuickTag<uint8, 1, 1>") || !strings.Contains(out.String(), "name: A.B") {
		t.Fatalf("yaml output:\n%s", out)
	}
	if err := (&exportCmd{Files: []string{tags}, Format: "xml"}).Run(s); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestParseModulePath(t *testing.T) {
	got, err := parseModulePath([]byte("// comment\nmodule github.com/starfederation/qtag-go\n\ngo 1.25\n"))
	if err != nil || got != qtagImportPath {
		t.Fatalf("module path = %q, %v", got, err)
	}
	if _, err := parseModulePath([]byte("go 1.25\n")); err == nil {
		t.Fatalf("expected error without module line")
	}
}

func TestPackageNameFromDir(t *testing.T) {
	if got := packageNameFromDir("/tmp/game-play"); got != "gameplay" {
		t.Fatalf("got %q", got)
	}
	if got := packageNameFromDir("/tmp/123"); got != "tags" {
		t.Fatalf("got %q", got)
	}
}
