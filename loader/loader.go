package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/simdjson-go"
	"github.com/tidwall/jsonc"
	"golang.org/x/sync/errgroup"

	qtag "github.com/starfederation/qtag-go"
)

// Format is the layout of a tag file.
type Format uint8

const (
	// FormatLines holds one tag per line.
	FormatLines Format = iota
	// FormatJSON holds a JSON array of strings. Comments are allowed.
	FormatJSON
)

// Options configures LoadFiles.
type Options struct {
	Flags qtag.SetFlags
	// Jobs bounds the number of files read at once. Zero uses GOMAXPROCS.
	Jobs int
}

// LoadFile reads one tag file into a new set.
func LoadFile(ctx context.Context, path string, flags qtag.SetFlags) (*qtag.TagStringSet, error) {
	return LoadFiles(ctx, []string{path}, Options{Flags: flags})
}

// LoadFiles reads every file in parallel and merges their tags into one set.
func LoadFiles(ctx context.Context, paths []string, opts Options) (*qtag.TagStringSet, error) {
	set := qtag.NewTagStringSet(opts.Flags)
	if len(paths) == 0 {
		return set, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	perFile := make([][]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tags, err := readFile(path)
			if err != nil {
				return err
			}
			perFile[i] = tags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, tags := range perFile {
		for _, tag := range tags {
			set.Add(tag)
		}
	}
	return set, nil
}

// ReadTags adds every tag in r to set.
func ReadTags(r io.Reader, format Format, set *qtag.TagStringSet) error {
	tags, err := readTags(r, format)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		set.Add(tag)
	}
	return nil
}

// FormatFor picks the format and decompression for path by extension.
// The returned name has any compression suffix removed.
func FormatFor(path string) (Format, string) {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".zst")
	switch filepath.Ext(name) {
	case ".json", ".jsonc":
		return FormatJSON, name
	default:
		return FormatLines, name
	}
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open tag file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(path, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer closeFn()

	format, _ := FormatFor(path)
	tags, err := readTags(r, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tags, nil
}

func decompress(path string, r io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

func readTags(r io.Reader, format Format) ([]string, error) {
	switch format {
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return parseJSONTags(data)
	case FormatLines:
		return readLines(r)
	default:
		return nil, fmt.Errorf("unknown tag file format %d", format)
	}
}

func readLines(r io.Reader) ([]string, error) {
	var tags []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		tags = append(tags, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func parseJSONTags(data []byte) ([]string, error) {
	data = jsonc.ToJSON(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("tag json must be an array of strings")
	}
	if !simdjson.SupportedCPU() {
		var tags []string
		if err := json.Unmarshal(trimmed, &tags); err != nil {
			return nil, err
		}
		return tags, nil
	}

	parsed, err := simdjson.Parse(trimmed, nil)
	if err != nil {
		return nil, err
	}
	it := parsed.Iter()
	if it.Advance() != simdjson.TypeRoot {
		return nil, fmt.Errorf("json root not found")
	}
	typ, root, err := it.Root(nil)
	if err != nil {
		return nil, err
	}
	if typ != simdjson.TypeArray {
		return nil, fmt.Errorf("tag json must be an array of strings")
	}
	arr, err := root.Array(nil)
	if err != nil {
		return nil, err
	}
	var tags []string
	iter := arr.Iter()
	for {
		t := iter.Advance()
		if t == simdjson.TypeNone {
			break
		}
		if t != simdjson.TypeString {
			return nil, fmt.Errorf("tag json element %d is %v, not a string", len(tags), t)
		}
		s, err := iter.String()
		if err != nil {
			return nil, err
		}
		tags = append(tags, s)
	}
	return tags, nil
}
