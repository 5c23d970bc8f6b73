package catalog

import (
	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
)

// ModeSet is the set of processor modes a recipe is valid in, one bit per
// mode.Mode value. Built from the Valid16/Valid32/Valid64 columns of the
// Intel instruction-summary CSV.
type ModeSet uint8

// ModesOf builds a ModeSet from its members.
func ModesOf(modes ...mode.Mode) ModeSet {
	var s ModeSet
	for _, m := range modes {
		s |= 1 << uint(m)
	}
	return s
}

// Contains reports whether m is in the set.
func (s ModeSet) Contains(m mode.Mode) bool {
	return s&(1<<uint(m)) != 0
}

// RexRequirement mirrors ras-x86-repr/src/prefix.rs's RexPrefix enum:
// None forces a bare REX prefix byte to be present (needed to
// disambiguate SPL/BPL/SIL/DIL from AH/CH/DH/BH, which share physical
// numbers 4..7), and W forces REX.W regardless of what the operands'
// widths would otherwise imply. Recipes that need neither set RexNotForced;
// the encoder still adds REX.R/X/B bits as individual operands require,
// independent of this field.
type RexRequirement int

const (
	RexNotForced RexRequirement = iota
	RexForced
	RexForcedW
)

// EncodingRecipe is one way to encode a mnemonic's particular operand-count
// form. A mnemonic form may have more than one recipe (e.g. register-direct
// vs. accumulator-immediate); the selector picks the shortest legal one.
type EncodingRecipe struct {
	Mnemonic mnemonic.Mnemonic
	Operands []OperandSlot

	// OperandSize is the "core" width in bits (8/16/32/64) that drives
	// the operand-size-override policy (REX.W vs 0x66 vs neither); see
	// encoder.NeedsOperandSizePrefix. Zero-operand/no-width instructions
	// (NOP, HLT, SYSCALL, ...) leave this at 32 (the mode default), which
	// never triggers a prefix.
	OperandSize int
	Rex         RexRequirement

	// Modes records which processor modes this recipe may be selected
	// in; the selector rejects recipes whose set does not contain the
	// active mode.
	Modes ModeSet

	// IsNP marks recipes whose opcode must not be preceded by the
	// 66/F2/F3 prefixes (the Intel "NP" annotation). Such recipes never
	// carry a Prefix directive, and the encoder additionally suppresses
	// the operand-size override for them.
	IsNP bool

	Directives []Directive
}

// Width returns the slot widths of this recipe's operands, in the same
// order the selector compares widths across candidate recipes.
func (r EncodingRecipe) Width() []int {
	widths := make([]int, len(r.Operands))
	for i, op := range r.Operands {
		widths[i] = op.Size
	}
	return widths
}

// DirectiveCount is the selector's tie-break after operand width: fewer
// directives means a simpler (and, not coincidentally, usually shorter)
// encoding.
func (r EncodingRecipe) DirectiveCount() int {
	return len(r.Directives)
}
