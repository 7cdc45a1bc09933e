package main

import (
	"log"

	"github.com/alecthomas/kong"
)

type cli struct {
	Config          string `help:"Path to qtag.toml. Searched upwards from the working directory when empty." type:"path"`
	CaseInsensitive bool   `help:"Lower ASCII letters in tags before compiling."`
	Jobs            int    `help:"Number of tag files read in parallel (0 = GOMAXPROCS)."`
	TypeName        string `help:"Type name used in the layout template string."`
	Base            string `help:"Integer base (uint8, uint16, uint32, uint64). Planned when empty."`
	Widths          []int  `help:"Field widths, root level first. Planned when empty." sep:","`

	List   listCmd   `cmd:"" help:"Print every tag found in the tag files."`
	Plan   planCmd   `cmd:"" help:"Print the narrowest packed layout for the tag files."`
	Gen    genCmd    `cmd:"" help:"Generate a Go file declaring the layout and one var per tag."`
	Export exportCmd `cmd:"" help:"Write the compiled tag table as json, cbor, msgpack or yaml."`
}

func main() {
	log.SetFlags(0)

	var args cli
	ctx := kong.Parse(&args,
		kong.Name("qtagc"),
		kong.Description("Compile dotted hierarchical tags into bit-packed integers."),
		kong.UsageOnError(),
	)

	s, err := newSession(&args)
	if err != nil {
		log.Fatal(err)
	}
	if err := ctx.Run(s); err != nil {
		log.Fatal(err)
	}
}
