// Package symtab implements the symbol table and fixup resolution
// described in spec.md §4.5, grounded on ras-x86/src/symbol.rs.
package symtab

import "sort"

// SymbolType records a declared symbol's intrinsic data width. Ported
// from ras-x86/src/symbol.rs's SymbolType; the fixup logic never
// branches on it today (every label in a .text-only object is
// effectively code-addressed), but keeping it lets a caller declare
// typed data symbols without a breaking change later. See SPEC_FULL.md §D.
type SymbolType int

const (
	Byte SymbolType = iota
	Word
	Double
	Quad
)

// Attribute is a bitset of symbol attributes.
type Attribute uint8

const (
	Global Attribute = 1 << 0
	Weak   Attribute = 1 << 1
)

// state is a symbol's position in the lifecycle spec.md §4.5 describes.
type state int

const (
	unknown state = iota
	declaredExternal
	defined
)

// Symbol is one entry in the table: a type tag, an attribute bitset, and
// (once defined) its offset into .text.
type Symbol struct {
	Type   SymbolType
	Attrs  Attribute
	state  state
	offset uint64
}

// IsDefined reports whether this symbol has a recorded .text offset.
func (s Symbol) IsDefined() bool { return s.state == defined }

// IsGlobal reports the Global attribute bit.
func (s Symbol) IsGlobal() bool { return s.Attrs&Global != 0 }

// IsWeak reports the Weak attribute bit. The original source's own
// is_weak (attrs & Weak == 1) never returns true since Weak is bit 1
// (value 2); this is a latent bug in the Rust prototype, not behavior to
// preserve — see DESIGN.md Open Question 3. This implementation tests
// the bit correctly.
func (s Symbol) IsWeak() bool { return s.Attrs&Weak != 0 }

// Offset returns the symbol's .text offset and whether it is defined.
func (s Symbol) Offset() (uint64, bool) { return s.offset, s.IsDefined() }

// Fixup is a pending patch site: width bytes at offset into .text must
// be overwritten once the referenced symbol's address is known.
type Fixup struct {
	Offset uint64
	Width  int
}

// DuplicateLabelError reports a label defined more than once.
type DuplicateLabelError struct{ ID string }

func (e *DuplicateLabelError) Error() string { return "duplicate label: " + e.ID }

// UndefinedSymbolsError reports every symbol that had pending fixups but
// was never defined and never pre-declared Global.
type UndefinedSymbolsError struct{ IDs []string }

func (e *UndefinedSymbolsError) Error() string {
	msg := ""
	for _, id := range e.IDs {
		msg += "symbol " + id + " undefined\n"
	}
	return msg
}

// Table tracks every symbol seen during an assembler session: labels
// defined in the item stream and externals pre-declared by the caller.
type Table struct {
	symbols map[string]*Symbol
	fixups  map[string][]Fixup
}

// New returns an empty Table. Pre-declare externals with Declare before
// assembling.
func New() *Table {
	return &Table{
		symbols: make(map[string]*Symbol),
		fixups:  make(map[string][]Fixup),
	}
}

// Declare pre-seeds a symbol as declared-external (caller-supplied,
// typically Global) before it is referenced or defined.
func (t *Table) Declare(id string, typ SymbolType, attrs Attribute) {
	t.symbols[id] = &Symbol{Type: typ, Attrs: attrs, state: declaredExternal}
}

// Define records id as defined at offset. Returns *DuplicateLabelError if
// id was already defined.
func (t *Table) Define(id string, offset uint64) error {
	sym, ok := t.symbols[id]
	if !ok {
		t.symbols[id] = &Symbol{state: defined, offset: offset}
		return nil
	}
	if sym.state == defined {
		return &DuplicateLabelError{ID: id}
	}
	sym.state = defined
	sym.offset = offset
	return nil
}

// AddFixup registers a pending patch for id at the given offset/width.
// Called whenever the encoder emits a forward or unresolved reference.
func (t *Table) AddFixup(id string, offset uint64, width int) {
	t.fixups[id] = append(t.fixups[id], Fixup{Offset: offset, Width: width})
	if _, ok := t.symbols[id]; !ok {
		t.symbols[id] = &Symbol{state: unknown}
	}
}

// Lookup returns the symbol for id and whether it has been seen at all
// (declared or defined).
func (t *Table) Lookup(id string) (Symbol, bool) {
	sym, ok := t.symbols[id]
	if !ok {
		return Symbol{}, false
	}
	return *sym, true
}

// Resolve walks every pending fixup and returns, for each symbol that is
// defined, its offset and the list of fixups to patch; symbols that are
// declared-external with the Global attribute are reported separately
// (their fixup sites stay zero, for the linker); any symbol with pending
// fixups that is neither defined nor declared Global is an error,
// accumulated across all such
// symbols into a single UndefinedSymbolsError per spec.md §4.5/§7.
func (t *Table) Resolve() (resolved map[string][]Fixup, external map[string][]Fixup, err error) {
	resolved = make(map[string][]Fixup)
	external = make(map[string][]Fixup)
	var undefined []string

	ids := make([]string, 0, len(t.fixups))
	for id := range t.fixups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fixups := t.fixups[id]
		sym := t.symbols[id]
		switch {
		case sym != nil && sym.state == defined:
			resolved[id] = fixups
		case sym != nil && sym.state == declaredExternal && sym.IsGlobal():
			external[id] = fixups
		default:
			undefined = append(undefined, id)
		}
	}

	if len(undefined) > 0 {
		return nil, nil, &UndefinedSymbolsError{IDs: undefined}
	}
	return resolved, external, nil
}

// OffsetOf returns the .text offset of a defined symbol.
func (t *Table) OffsetOf(id string) (uint64, bool) {
	sym, ok := t.symbols[id]
	if !ok || sym.state != defined {
		return 0, false
	}
	return sym.offset, true
}

// All returns every symbol in the table, keyed by identifier, for
// handing to the object emitter.
func (t *Table) All() map[string]Symbol {
	out := make(map[string]Symbol, len(t.symbols))
	for id, sym := range t.symbols {
		out[id] = *sym
	}
	return out
}
