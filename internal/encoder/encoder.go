// Package encoder implements spec.md §4.4: walking an EncodingRecipe's
// directive list and appending the corresponding REX/opcode/ModR/M/SIB/
// displacement/immediate bytes, plus the terminal fixup sweep of §4.5.
// Grounded closely on ras-x86/src/encoder.rs, with the ModR/M+SIB+
// displacement synthesis rederived directly from spec.md's literal
// table (the original's own sib() helper carries a "not sure this is
// right" comment and was not ported verbatim).
package encoder

import (
	"fmt"

	"github.com/gabi-250/ras/internal/catalog"
	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/operand"
	"github.com/gabi-250/ras/internal/register"
	"github.com/gabi-250/ras/internal/symtab"
)

// InvariantError reports a supposedly-impossible dispatch state (an
// unreachable SIB combination, a directive referencing an operand index
// out of range). Recoverable, but surfaced as a hard bug per spec.md §7.
type InvariantError struct{ Detail string }

func (e *InvariantError) Error() string { return "encoding invariant violated: " + e.Detail }

// SignExtendError reports an Ib/Iw/Id-equivalent directive receiving an
// immediate wider than its slot. The selector's width matching should
// make this unreachable; this error is defense-in-depth, per spec.md §7.
type SignExtendError struct{ Detail string }

func (e *SignExtendError) Error() string { return "sign extend error: " + e.Detail }

// Encoder accumulates .text bytes for one assembler session. It owns its
// output buffer and the session's symbol table exclusively; spec.md §5
// forbids sharing an Encoder across goroutines.
type Encoder struct {
	buf  []byte
	mode mode.Mode
	syms *symtab.Table
}

// New returns an Encoder targeting the given mode, recording label
// fixups into syms.
func New(m mode.Mode, syms *symtab.Table) *Encoder {
	return &Encoder{mode: m, syms: syms}
}

// Bytes returns the accumulated .text contents. Valid at any point; the
// caller typically reads it only after fixups are resolved.
func (e *Encoder) Bytes() []byte { return e.buf }

// CurrentOffset returns the current length of .text, which is strictly
// non-decreasing across a session per spec.md §4.5.
func (e *Encoder) CurrentOffset() uint64 { return uint64(len(e.buf)) }

// Encode appends the bytes for recipe applied to operands, in the same
// positional order as recipe.Operands.
func (e *Encoder) Encode(recipe catalog.EncodingRecipe, operands []operand.Operand) error {
	if len(operands) != len(recipe.Operands) {
		return &InvariantError{Detail: fmt.Sprintf("operand count mismatch: recipe wants %d, got %d", len(recipe.Operands), len(operands))}
	}

	rexByte, needsRex := e.computeRex(recipe, operands)
	if needsRex {
		for _, op := range operands {
			if op.IsRegister() && op.Register().High {
				return &InvariantError{Detail: "AH/CH/DH/BH cannot be encoded in an instruction that needs a REX prefix"}
			}
		}
	}
	prefixBytes := e.computePrefixes(recipe)

	for _, d := range recipe.Directives {
		switch d.Op {
		case catalog.OpPrefix:
			// Mandatory 66/F2/F3 prefix from the opcode column. Emitted
			// ahead of the REX byte and any operand-size override.
			e.buf = append(e.buf, d.Bytes...)

		case catalog.OpOpcode:
			e.buf = append(e.buf, prefixBytes...)
			prefixBytes = nil
			if needsRex {
				e.buf = append(e.buf, rexByte)
				needsRex = false
			}
			e.buf = append(e.buf, d.Bytes...)

		case catalog.OpOpcodeRd:
			e.buf = append(e.buf, prefixBytes...)
			prefixBytes = nil
			if needsRex {
				e.buf = append(e.buf, rexByte)
				needsRex = false
			}
			if len(d.Bytes) != 1 {
				return &InvariantError{Detail: "OpcodeRd directive must carry exactly one base byte"}
			}
			reg, err := operandRegister(operands, d.OpcodeOperand)
			if err != nil {
				return err
			}
			e.buf = append(e.buf, d.Bytes[0]|reg.Low3())

		case catalog.OpModRM:
			e.buf = append(e.buf, prefixBytes...)
			prefixBytes = nil
			if needsRex {
				e.buf = append(e.buf, rexByte)
				needsRex = false
			}
			if err := e.encodeModRM(d, operands); err != nil {
				return err
			}

		case catalog.OpImm:
			if err := e.encodeImm(d, operands); err != nil {
				return err
			}

		case catalog.OpRel:
			if err := e.encodeRel32(d, operands); err != nil {
				return err
			}

		case catalog.OpMoffsAddr:
			if err := e.encodeMoffs(d, operands); err != nil {
				return err
			}

		default:
			return &InvariantError{Detail: fmt.Sprintf("unknown directive op %d", d.Op)}
		}
	}

	if needsRex {
		// A recipe with no Opcode/OpcodeRd/ModRM directive (shouldn't
		// occur in this catalog) would otherwise silently drop REX.
		return &InvariantError{Detail: "REX prefix computed but never emitted"}
	}

	return nil
}

func operandRegister(operands []operand.Operand, idx int) (register.Register, error) {
	if idx < 0 || idx >= len(operands) {
		return register.Register{}, &InvariantError{Detail: "operand index out of range"}
	}
	op := operands[idx]
	if !op.IsRegister() {
		return register.Register{}, &InvariantError{Detail: "expected register operand"}
	}
	return op.Register(), nil
}

// computePrefixes returns the legacy prefix bytes (currently just the
// 0x66 operand-size override) that must precede the opcode.
func (e *Encoder) computePrefixes(recipe catalog.EncodingRecipe) []byte {
	if e.needsOperandSizePrefix(recipe) {
		return []byte{0x66}
	}
	return nil
}

// needsOperandSizePrefix implements spec.md §4.4's policy directly off
// the recipe's declared OperandSize, rather than re-deriving a
// low-bit-of-first-opcode-byte heuristic: spec.md §9 documents that
// heuristic as an approximation that "may misclassify opcodes", and our
// catalog already records the true effective operand size per recipe
// (POP/PUSH's r16 forms, for instance, have a single opcode byte that
// does not follow the arithmetic-opcode parity the heuristic assumes).
func (e *Encoder) needsOperandSizePrefix(recipe catalog.EncodingRecipe) bool {
	if recipe.IsNP {
		// NP recipes forbid the 66/F2/F3 prefixes outright.
		return false
	}
	if recipe.Rex == catalog.RexForcedW {
		return false
	}
	return recipe.OperandSize == 16
}

// computeRex decides whether a REX byte is required and, if so, its
// value. REX.W is forced by the recipe; REX.R/X/B are derived from the
// actual operands' physical register numbers (>= 8); a bare REX (no bits
// set) is also forced when an 8-bit low-byte register in the SPL/BPL/
// SIL/DIL family is used, since those registers are only reachable once
// any REX prefix byte is present (AH/CH/DH/BH are used otherwise).
func (e *Encoder) computeRex(recipe catalog.EncodingRecipe, operands []operand.Operand) (byte, bool) {
	forced := recipe.Rex != catalog.RexNotForced
	w := recipe.Rex == catalog.RexForcedW

	var r, x, b bool
	for i, slot := range recipe.Operands {
		op := operands[i]
		switch slot.Kind {
		case catalog.ModRmReg:
			if op.IsRegister() {
				if op.Register().NeedsRexExtension() {
					r = true
				}
				if op.Register().Size == register.Width8 && op.Register().Physical >= 4 && op.Register().Physical <= 7 && !op.Register().High {
					forced = true
				}
			}
		case catalog.ModRmRegMem, catalog.OpcodeRd:
			if op.IsRegister() {
				if op.Register().NeedsRexExtension() {
					b = true
				}
				if op.Register().Size == register.Width8 && op.Register().Physical >= 4 && op.Register().Physical <= 7 && !op.Register().High {
					forced = true
				}
			} else if op.IsMemory() && op.Memory().IsSib() {
				if base := op.Memory().Base(); base != nil && base.NeedsRexExtension() {
					b = true
				}
				if idx := op.Memory().Index(); idx != nil && idx.NeedsRexExtension() {
					x = true
				}
			}
		}
	}

	if !forced && !r && !x && !b {
		return 0, false
	}
	rex := byte(0x40)
	if w {
		rex |= 0x08
	}
	if r {
		rex |= 0x04
	}
	if x {
		rex |= 0x02
	}
	if b {
		rex |= 0x01
	}
	return rex, true
}

func (e *Encoder) encodeImm(d catalog.Directive, operands []operand.Operand) error {
	if d.ImmOperand < 0 || d.ImmOperand >= len(operands) {
		return &InvariantError{Detail: "Imm directive operand index out of range"}
	}
	op := operands[d.ImmOperand]
	if !op.IsImmediate() {
		return &InvariantError{Detail: "Imm directive expects an immediate operand"}
	}
	imm := op.Immediate()
	if imm.Size() > d.Width {
		return &SignExtendError{Detail: fmt.Sprintf("immediate of %d bits does not fit in a %d-bit slot", imm.Size(), d.Width)}
	}
	value := signExtend(imm, d.Width)
	e.buf = appendLE(e.buf, value, d.Width/8)
	return nil
}

// signExtend widens a narrower immediate to targetBits, preserving sign,
// matching spec.md §4.4's Ib/Iw/Id directives ("emit immediate
// sign-extended to N bytes").
func signExtend(imm operand.Immediate, targetBits int) uint64 {
	switch imm.Size() {
	case 8:
		return uint64(uint32(int32(int8(imm.Uint8())))) & widthMask(targetBits)
	case 16:
		return uint64(uint32(int32(int16(imm.Uint16())))) & widthMask(targetBits)
	case 32:
		return uint64(int64(int32(imm.Uint32()))) & widthMask(targetBits)
	default:
		return uint64(imm.Value())
	}
}

func widthMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}

func appendLE(buf []byte, value uint64, nbytes int) []byte {
	for i := 0; i < nbytes; i++ {
		buf = append(buf, byte(value>>(8*uint(i))))
	}
	return buf
}

func (e *Encoder) encodeMoffs(d catalog.Directive, operands []operand.Operand) error {
	op := operands[d.ImmOperand]
	if !op.IsMemory() || !op.Memory().IsMoffs() {
		return &InvariantError{Detail: "MoffsAddr directive expects a moffs memory operand"}
	}
	_, value := op.Memory().MoffsValue()
	e.buf = appendLE(e.buf, value, 8)
	return nil
}

// encodeRel32 either resolves a literal relative immediate immediately,
// or registers a pending fixup against a label and emits a four-byte
// placeholder. Both forward and backward label references go through
// the fixup map uniformly (see symtab.Table.Resolve); the placeholder is
// always overwritten in the terminal sweep, including for labels already
// defined at this point in the stream, keeping the encoder a genuine
// single forward pass with no special-casing of already-seen labels.
func (e *Encoder) encodeRel32(d catalog.Directive, operands []operand.Operand) error {
	if d.Width != 32 {
		// The catalog carries rel8/rel16 rows for completeness, but the
		// selector can never choose them (relative operands only match
		// rel32 slots), so reaching one here is a bug.
		return &InvariantError{Detail: fmt.Sprintf("unsupported relative displacement width %d", d.Width)}
	}
	op := operands[d.ImmOperand]
	if !op.IsMemory() || !op.Memory().IsRelative() {
		return &InvariantError{Detail: "Rel32 directive expects a relative memory operand"}
	}
	if label, ok := op.Memory().RelativeLabel(); ok {
		e.syms.AddFixup(label, e.CurrentOffset(), 4)
		e.buf = append(e.buf, 0, 0, 0, 0)
		return nil
	}
	value := uint32(op.Memory().RelativeImmediate())
	e.buf = appendLE(e.buf, uint64(value), 4)
	return nil
}

// ResolveFixups performs the terminal sweep of spec.md §4.5: for every
// defined symbol with pending fixups, writes
// (target_offset - (fixup_offset + width)) as a little-endian signed
// value into .text at each fixup site. Declared-external symbols are
// left as zero bytes for the linker. Any symbol with pending fixups that
// is neither defined nor declared-external produces a single
// *symtab.UndefinedSymbolsError naming every such symbol.
func (e *Encoder) ResolveFixups() error {
	resolved, _, err := e.syms.Resolve()
	if err != nil {
		return err
	}
	for id, fixups := range resolved {
		target, ok := e.syms.OffsetOf(id)
		if !ok {
			return &InvariantError{Detail: "resolved symbol missing offset: " + id}
		}
		for _, f := range fixups {
			delta := int64(target) - int64(f.Offset+uint64(f.Width))
			patch := uint32(int32(delta))
			for i := 0; i < f.Width; i++ {
				e.buf[int(f.Offset)+i] = byte(patch >> (8 * uint(i)))
			}
		}
	}
	return nil
}
