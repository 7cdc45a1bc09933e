package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"

	qtag "github.com/starfederation/qtag-go"
	"github.com/starfederation/qtag-go/config"
	"github.com/starfederation/qtag-go/loader"
	"github.com/starfederation/qtag-go/manifest"
)

// session is the merged view of qtag.toml and the global flags.
type session struct {
	cfg    *config.Config
	out    io.Writer
	widths []uint8
	base   *qtag.Base
}

func newSession(args *cli) (*session, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.Config != "" {
		cfg, err = config.Load(args.Config)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}

	if args.CaseInsensitive {
		cfg.Tags.CaseInsensitive = true
	}
	if args.Jobs > 0 {
		cfg.Tags.Jobs = args.Jobs
	}
	if args.TypeName != "" {
		cfg.Layout.TypeName = args.TypeName
	}
	if args.Base != "" {
		cfg.Layout.Base = args.Base
	}
	if len(args.Widths) > 0 {
		cfg.Layout.Widths = args.Widths
	}
	return sessionFromConfig(cfg, os.Stdout)
}

func sessionFromConfig(cfg *config.Config, out io.Writer) (*session, error) {
	s := &session{cfg: cfg, out: out}
	widths, err := cfg.Widths()
	if err != nil {
		return nil, err
	}
	s.widths = widths
	if cfg.Layout.Base != "" {
		b, err := qtag.ParseBase(cfg.Layout.Base)
		if err != nil {
			return nil, err
		}
		s.base = &b
	}
	if s.cfg.Layout.TypeName == "" {
		s.cfg.Layout.TypeName = "QuickTag"
	}
	return s, nil
}

func (s *session) loadTags(ctx context.Context, files []string) (*qtag.TagStringSet, error) {
	if len(files) == 0 {
		files = s.cfg.TagFiles()
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no tag files given (pass files or set tags.files in %s)", config.FileName)
	}
	return loader.LoadFiles(ctx, files, loader.Options{
		Flags: s.cfg.SetFlags(),
		Jobs:  s.cfg.Tags.Jobs,
	})
}

// compile builds the forest of set, picks the layout (pinned or planned) and
// packs every node.
func (s *session) compile(set *qtag.TagStringSet) (*manifest.Manifest, qtag.Plan, error) {
	if set.Len() == 0 {
		return nil, qtag.Plan{}, fmt.Errorf("no tags to compile")
	}
	forest := qtag.BuildForest(set.Strings())
	plan := qtag.PlanLayout(forest)

	widths := s.widths
	if widths == nil {
		if plan.Overflow {
			return nil, plan, fmt.Errorf("tags need %d bits, more than the 64 a packed tag can hold", plan.Sum)
		}
		var err error
		widths, err = plan.Widths()
		if err != nil {
			return nil, plan, err
		}
	}

	base := plan.Base
	switch {
	case s.base != nil:
		base = *s.base
	case s.widths != nil:
		fieldBits := make([]uint32, len(widths))
		for i, w := range widths {
			fieldBits[i] = uint32(w)
		}
		base = qtag.FindSmallestIntBase(fieldBits)
	}

	typeName := s.cfg.Layout.TypeName
	fingerprint := manifest.Fingerprint(set)
	var (
		m   *manifest.Manifest
		err error
	)
	switch base {
	case qtag.BaseUint8:
		m, err = compileAs[uint8](typeName, widths, forest, fingerprint)
	case qtag.BaseUint16:
		m, err = compileAs[uint16](typeName, widths, forest, fingerprint)
	case qtag.BaseUint32:
		m, err = compileAs[uint32](typeName, widths, forest, fingerprint)
	default:
		m, err = compileAs[uint64](typeName, widths, forest, fingerprint)
	}
	return m, plan, err
}

func compileAs[T qtag.Unsigned](typeName string, widths []uint8, forest *qtag.Forest, fingerprint string) (*manifest.Manifest, error) {
	layout, err := qtag.NewLayout[T](widths...)
	if err != nil {
		return nil, err
	}
	if err := layout.CanRepresent(forest); err != nil {
		return nil, fmt.Errorf("layout %s: %w", layout, err)
	}
	table := qtag.CompileForest(layout, forest)
	return manifest.FromTable(typeName, layout, table, fingerprint), nil
}

func widthList(m *manifest.Manifest) ([]uint8, error) {
	out := make([]uint8, len(m.Widths))
	for i, w := range m.Widths {
		v, err := safecast.Conv[uint8](w)
		if err != nil {
			return nil, fmt.Errorf("width %d: %w", w, err)
		}
		out[i] = v
	}
	return out, nil
}
