// Command catgen is the offline CSV→catalog ingester spec.md §4.1/§6
// describes: it reads an instruction CSV (this repository's curated table
// by default, or an Intel instruction-summary snapshot with -format intel)
// and writes the compact gob-encoded blob the runtime catalog loader can
// deserialize. A small cobra-less main tool; unlike the runtime path
// (catalog.Global, which ingests the embedded CSV directly via
// sync.Once), this binary demonstrates the full offline
// ingest-then-serialize round trip spec.md §6 requires of the catalog's
// on-disk schema.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gabi-250/ras/internal/catalog"
)

func main() {
	var in, out, format string
	flag.StringVar(&in, "in", "internal/catalog/data/x86.csv", "path to the instruction-summary CSV")
	flag.StringVar(&out, "out", "internal/catalog/data/x86.catalog", "path to write the gob-encoded catalog blob")
	flag.StringVar(&format, "format", "shape", `CSV layout: "shape" (this repository's curated table) or "intel" (an Intel instruction-summary snapshot)`)
	flag.Parse()

	if err := run(in, out, format); err != nil {
		fmt.Fprintln(os.Stderr, "catgen:", err)
		os.Exit(1)
	}
}

func run(in, out, format string) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", in, err)
	}
	defer f.Close()

	var recipes []catalog.EncodingRecipe
	switch format {
	case "shape":
		recipes, err = catalog.Ingest(f)
	case "intel":
		recipes, err = catalog.IngestIntel(f)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", in, err)
	}

	blob, err := catalog.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	if err := os.WriteFile(out, blob, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	fmt.Printf("catgen: wrote %d recipes (%d bytes) to %s\n", len(recipes), len(blob), out)
	return nil
}
