// Package config handles qtag.toml files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	qtag "github.com/starfederation/qtag-go"
)

// FileName is the name FindAndLoad looks for.
const FileName = "qtag.toml"

// Config is a qtag.toml file.
type Config struct {
	Tags   Tags   `toml:"tags"`
	Layout Layout `toml:"layout"`
	Gen    Gen    `toml:"gen"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Tags lists the tag files to compile.
type Tags struct {
	Files           []string `toml:"files"`
	CaseInsensitive bool     `toml:"case-insensitive"`
	Jobs            int      `toml:"jobs"`
}

// Layout pins the packed layout. Empty fields are planned from the tags.
type Layout struct {
	TypeName string `toml:"type-name"`
	Base     string `toml:"base"`
	Widths   []int  `toml:"widths"`
}

// Gen configures code generation.
type Gen struct {
	Package string `toml:"package"`
	Output  string `toml:"output"`
	Prefix  string `toml:"prefix"`
}

// Default returns the settings used without a config file.
func Default() *Config {
	return &Config{
		Layout: Layout{TypeName: "QuickTag"},
		Gen:    Gen{Output: "qtag_gen.go"},
	}
}

// Load parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir looking for qtag.toml. It returns nil
// and no error when there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	if c.Layout.Base != "" {
		if _, err := qtag.ParseBase(c.Layout.Base); err != nil {
			return fmt.Errorf("layout.base: %w", err)
		}
	}
	if _, err := c.Widths(); err != nil {
		return err
	}
	if c.Tags.Jobs < 0 {
		return fmt.Errorf("tags.jobs must not be negative")
	}
	return nil
}

// Widths returns the pinned layout widths, or nil when they are planned.
func (c *Config) Widths() ([]uint8, error) {
	if len(c.Layout.Widths) == 0 {
		return nil, nil
	}
	out := make([]uint8, len(c.Layout.Widths))
	for i, w := range c.Layout.Widths {
		v, err := safecast.Conv[uint8](w)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("layout.widths[%d]: invalid width %d", i, w)
		}
		out[i] = v
	}
	return out, nil
}

// SetFlags returns the tag set flags the config asks for.
func (c *Config) SetFlags() qtag.SetFlags {
	var flags qtag.SetFlags
	if c.Tags.CaseInsensitive {
		flags |= qtag.CaseInsensitive
	}
	return flags
}

// TagFiles returns the tag files resolved against Dir.
func (c *Config) TagFiles() []string {
	out := make([]string, len(c.Tags.Files))
	for i, f := range c.Tags.Files {
		if filepath.IsAbs(f) || c.Dir == "" {
			out[i] = f
		} else {
			out[i] = filepath.Join(c.Dir, f)
		}
	}
	return out
}
