package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	qtag "github.com/starfederation/qtag-go"
	"github.com/starfederation/qtag-go/manifest"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
)

type listCmd struct {
	Files []string `arg:"" optional:"" help:"Tag files." type:"path"`
}

func (c *listCmd) Run(s *session) error {
	set, err := s.loadTags(context.Background(), c.Files)
	if err != nil {
		return err
	}
	for _, tag := range set.Strings() {
		fmt.Fprintf(s.out, "Found Tag %s\n", tag)
	}
	return nil
}

type planCmd struct {
	Files []string `arg:"" optional:"" help:"Tag files." type:"path"`
}

func (c *planCmd) Run(s *session) error {
	set, err := s.loadTags(context.Background(), c.Files)
	if err != nil {
		return err
	}
	plan := qtag.PlanLayout(qtag.BuildForest(set.Strings()))

	headingColor.Fprintf(s.out, "%d tags\n", set.Len())
	fmt.Fprintf(s.out, "ranges:   %v\n", plan.Ranges)
	fmt.Fprintf(s.out, "bits:     %v\n", plan.Bits)
	fmt.Fprintf(s.out, "sum:      %d\n", plan.Sum)
	fmt.Fprintf(s.out, "base:     %s\n", plan.Base)
	fmt.Fprintf(s.out, "template: %s\n", plan.TemplateString(s.cfg.Layout.TypeName))
	if plan.Overflow {
		warnColor.Fprintf(s.out, "warning: %d bits do not fit in 64; the base was clamped to %s\n", plan.Sum, plan.Base)
	}
	if s.widths == nil && s.base == nil {
		return nil
	}
	m, _, err := s.compile(set)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "pinned:   %s\n", m.Template)
	return nil
}

type genCmd struct {
	Files   []string `arg:"" optional:"" help:"Tag files." type:"path"`
	Out     string   `help:"Output Go file." type:"path"`
	Package string   `help:"Package name of the generated file. Detected from the output directory when empty."`
	Prefix  string   `help:"Prefix for generated identifiers."`
}

func (c *genCmd) Run(s *session) error {
	out := c.Out
	if out == "" {
		out = s.cfg.Gen.Output
		if s.cfg.Dir != "" && !filepath.IsAbs(out) {
			out = filepath.Join(s.cfg.Dir, out)
		}
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return err
	}

	set, err := s.loadTags(context.Background(), c.Files)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		removed, err := removeGeneratedFile(absOut)
		if err != nil {
			return err
		}
		if removed {
			log.Printf("qtagc: removed %s (no tags)", absOut)
		} else {
			log.Printf("qtagc: no tags")
		}
		return nil
	}

	m, _, err := s.compile(set)
	if err != nil {
		return err
	}

	opts := genOptions{
		Dir:     filepath.Dir(absOut),
		Package: firstNonEmpty(c.Package, s.cfg.Gen.Package),
		Prefix:  firstNonEmpty(c.Prefix, s.cfg.Gen.Prefix, "Tag"),
	}
	if opts.Package == "" {
		opts.Package = detectPackageName(opts.Dir)
	}
	src, err := generateFile(m, opts)
	if err != nil {
		return err
	}
	changed, err := writeFileIfChanged(absOut, src)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("qtagc: wrote %s (%d tags, %s)", absOut, len(m.Tags), m.Template)
	} else {
		log.Printf("qtagc: no changes")
	}
	return nil
}

type exportCmd struct {
	Files  []string `arg:"" optional:"" help:"Tag files." type:"path"`
	Format string   `help:"Output format: json, cbor, msgpack or yaml." default:"json"`
	Out    string   `help:"Output file. Standard output when empty." type:"path"`
}

func (c *exportCmd) Run(s *session) error {
	format, err := manifest.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	set, err := s.loadTags(context.Background(), c.Files)
	if err != nil {
		return err
	}
	m, _, err := s.compile(set)
	if err != nil {
		return err
	}
	if c.Out == "" {
		return m.Encode(s.out, format)
	}
	var buf bytes.Buffer
	if err := m.Encode(&buf, format); err != nil {
		return err
	}
	return os.WriteFile(c.Out, buf.Bytes(), 0o644)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
