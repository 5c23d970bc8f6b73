package catalog

import (
	"bytes"
	_ "embed"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/gabi-250/ras/internal/mnemonic"
)

//go:embed data/x86.csv
var embeddedCSV []byte

// Catalog is the immutable, process-wide instruction table: mnemonic to
// ordered list of encoding recipes. Contract per spec: recipes_for is the
// only read operation, and initialization happens exactly once.
type Catalog struct {
	recipes map[mnemonic.Mnemonic][]EncodingRecipe
}

// RecipesFor returns every recipe registered for mnemonic m, in catalog
// order (the selector, not the catalog, imposes the shortest-first order).
func (c *Catalog) RecipesFor(m mnemonic.Mnemonic) []EncodingRecipe {
	return c.recipes[m]
}

func newCatalog(recipes []EncodingRecipe) *Catalog {
	c := &Catalog{recipes: make(map[mnemonic.Mnemonic][]EncodingRecipe)}
	for _, r := range recipes {
		c.recipes[r.Mnemonic] = append(c.recipes[r.Mnemonic], r)
	}
	return c
}

var (
	once    sync.Once
	global  *Catalog
	loadErr error
)

// Global returns the process-wide Catalog, parsing the embedded CSV table
// exactly once behind sync.Once. Concurrent callers block on the first
// call and then share the same immutable value, matching the "populated
// once, safely shared across sessions" requirement.
func Global() (*Catalog, error) {
	once.Do(func() {
		recipes, err := Ingest(bytes.NewReader(embeddedCSV))
		if err != nil {
			loadErr = fmt.Errorf("catalog: loading embedded table: %w", err)
			return
		}
		global = newCatalog(recipes)
	})
	return global, loadErr
}

// gobRecipe is the on-disk shape of an EncodingRecipe. The catalog's
// on-disk schema is implementation-defined per spec §6 ("exact byte
// layout implementation-defined, stable across one build"); encoding/gob
// satisfies that directly since it already versions struct shape against
// the types it was encoded with.
type gobRecipe struct {
	Mnemonic    mnemonic.Mnemonic
	Operands    []OperandSlot
	OperandSize int
	Rex         RexRequirement
	Modes       ModeSet
	IsNP        bool
	Directives  []Directive
}

// Marshal serializes a recipe set to the gob-encoded on-disk blob format.
// This is the output of the offline ingester (cmd/catgen); Global() does
// not call it (it ingests CSV directly), but it demonstrates the
// serialize/deserialize round trip spec §6 requires of the catalog's
// binary schema.
func Marshal(recipes []EncodingRecipe) ([]byte, error) {
	wrapped := make([]gobRecipe, len(recipes))
	for i, r := range recipes {
		wrapped[i] = gobRecipe(r)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wrapped); err != nil {
		return nil, fmt.Errorf("catalog: marshaling: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a blob written by Marshal back into a recipe set and
// a ready-to-use Catalog.
func Unmarshal(blob []byte) (*Catalog, error) {
	var wrapped []gobRecipe
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("catalog: unmarshaling: %w", err)
	}
	recipes := make([]EncodingRecipe, len(wrapped))
	for i, r := range wrapped {
		recipes[i] = EncodingRecipe(r)
	}
	return newCatalog(recipes), nil
}
