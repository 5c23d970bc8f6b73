// Package assembler wires the core pipeline spec.md §2 describes end to
// end: a driver that iterates a stream of labels and instructions,
// dispatching labels to the symbol table and instructions through
// Select → Encode, then resolves fixups and hands the result to the
// object emitter.
//
// Grounded on v0/kasm/codegen.go's Generator shape (constructor plus
// optional debug-context attachment, an accumulated-errors slice, a
// single top-level driving method) adapted to spec.md §4.5's mandated
// single forward pass instead of that file's two-pass collect/emit
// strategy — the spec explicitly replaces the two-pass label-then-emit
// design with "emit immediately, patch fixups in a terminal sweep".
package assembler

import (
	"bytes"
	"fmt"

	"github.com/gabi-250/ras/internal/catalog"
	"github.com/gabi-250/ras/internal/debugcontext"
	"github.com/gabi-250/ras/internal/elfobj"
	"github.com/gabi-250/ras/internal/encoder"
	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/operand"
	"github.com/gabi-250/ras/internal/selector"
	"github.com/gabi-250/ras/internal/symtab"
)

// Item is one element of the input item stream spec.md §6 describes: a
// label definition or an instruction with its typed operands.
type Item struct {
	isLabel   bool
	label     string
	mnemonic  mnemonic.Mnemonic
	operands  []operand.Operand
	lineDebug int // optional: source line, for diagnostics only
}

// Label returns an Item defining a label at the current offset.
func Label(id string) Item { return Item{isLabel: true, label: id} }

// Instruction returns an Item for mnemonic m applied to operands, in
// Intel destination-first order (see spec.md §4.4's "reversed assembler
// operand order" note: an AT&T-syntax parser substitute must reverse its
// source operands before constructing this Item).
func Instruction(m mnemonic.Mnemonic, operands ...operand.Operand) Item {
	return Item{mnemonic: m, operands: operands}
}

// AtLine annotates an Item with a source line number, surfaced only in
// diagnostic entries recorded via an attached debugcontext.DebugContext.
func (it Item) AtLine(line int) Item {
	it.lineDebug = line
	return it
}

// EncodingError reports the instruction index (within the item stream)
// and underlying cause of a failed Select or Encode call, so a caller
// driving a real source file can map it back to a source line.
type EncodingError struct {
	Index int
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("item %d: %s", e.Index, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Driver runs one assembler session: Select → Encode per instruction
// item, Define per label item, then a terminal fixup sweep and object
// emission. A Driver owns its Encoder and symbol table exclusively, per
// spec.md §5's single-threaded-per-session model; it must not be shared
// across goroutines.
type Driver struct {
	mode     mode.Mode
	catalog  *catalog.Catalog
	syms     *symtab.Table
	enc      *encoder.Encoder
	debugCtx *debugcontext.DebugContext
}

// New constructs a Driver targeting mode m. It loads the process-wide
// Catalog on first use (see catalog.Global); a load failure here is
// reported once and cached, matching the "populated once" contract.
func New(m mode.Mode) (*Driver, error) {
	cat, err := catalog.Global()
	if err != nil {
		return nil, fmt.Errorf("assembler: loading catalog: %w", err)
	}
	syms := symtab.New()
	return &Driver{
		mode:    m,
		catalog: cat,
		syms:    syms,
		enc:     encoder.New(m, syms),
	}, nil
}

// WithDebugContext attaches a diagnostic sink; subsequent Select/Encode
// failures during Run are also recorded there as errors. Returns the
// Driver for chaining, matching the teacher's WithDebugContext idiom.
func (d *Driver) WithDebugContext(ctx *debugcontext.DebugContext) *Driver {
	d.debugCtx = ctx
	return d
}

// DeclareSymbol pre-seeds id in the symbol table before Run. With the
// Global attribute, it marks id as an external the linker will resolve
// if it is never defined locally (spec.md §4.5's "declared-external"
// state); a branch to a symbol declared without Global that is never
// defined still fails as undefined.
func (d *Driver) DeclareSymbol(id string, typ symtab.SymbolType, attrs symtab.Attribute) {
	d.syms.Declare(id, typ, attrs)
}

// Run assembles items in order: each Label item defines a symbol at the
// current `.text` offset, each Instruction item is selected and encoded
// immediately. After the last item, pending fixups are resolved. Run
// stops at the first error (spec.md §7's "every failure unwinds the
// current session" propagation policy); the caller may inspect
// d.Text() for whatever was emitted before the failure, but it is not a
// valid machine-code sequence.
func (d *Driver) Run(items []Item) error {
	if d.debugCtx != nil {
		d.debugCtx.SetPhase("select")
	}
	for i, item := range items {
		if item.isLabel {
			if err := d.syms.Define(item.label, d.enc.CurrentOffset()); err != nil {
				d.recordError(item, err)
				return &EncodingError{Index: i, Err: err}
			}
			continue
		}

		recipe, err := selector.Select(d.catalog, item.mnemonic, item.operands, d.mode)
		if err != nil {
			d.recordError(item, err)
			return &EncodingError{Index: i, Err: err}
		}

		if d.debugCtx != nil {
			d.debugCtx.SetPhase("encode")
		}
		if err := d.enc.Encode(recipe, item.operands); err != nil {
			d.recordError(item, err)
			return &EncodingError{Index: i, Err: err}
		}
		if d.debugCtx != nil {
			d.debugCtx.SetPhase("select")
		}
	}

	if d.debugCtx != nil {
		d.debugCtx.SetPhase("fixup")
	}
	if err := d.enc.ResolveFixups(); err != nil {
		return fmt.Errorf("assembler: resolving fixups: %w", err)
	}
	return nil
}

func (d *Driver) recordError(item Item, err error) {
	if d.debugCtx == nil {
		return
	}
	d.debugCtx.Error(d.debugCtx.Loc(item.lineDebug, 0), err.Error())
}

// Text returns the `.text` bytes accumulated so far. Only meaningful
// after a successful Run.
func (d *Driver) Text() []byte { return d.enc.Bytes() }

// WriteObject hands the session's `.text` bytes and resolved symbol
// table to the ELF64 object emitter (spec.md §4.6), appending the
// object file bytes to buf.
func (d *Driver) WriteObject(buf *bytes.Buffer) error {
	if d.debugCtx != nil {
		d.debugCtx.SetPhase("object")
	}
	return elfobj.Write(buf, d.mode, d.Text(), d.syms.All())
}
