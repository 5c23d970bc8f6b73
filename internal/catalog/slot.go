// Package catalog holds the instruction table: for each mnemonic, the set
// of operand-count forms it supports, and for each form, one or more
// encoding recipes (an ordered list of directives describing exactly how
// to emit REX/opcode/ModRM/SIB/immediate bytes). The table is ingested
// from a CSV, either the curated embedded one (ingest.go) or an Intel
// instruction-summary snapshot (intel.go), and cached behind a
// sync.Once-guarded loader (see catalog.go).
package catalog

// OperandKind enumerates the operand shapes a catalog slot accepts. This
// is a deliberately small subset of ras-x86-repr/src/operand.rs's
// OperandKind enum — only the kinds the embedded instruction table's rows
// and the Intel-summary ingester's rows actually produce (see DESIGN.md's
// catalog scope note for what was left out:
// segment/control/debug/MMX/XMM/YMM/ZMM/x87 operand kinds).
type OperandKind int

const (
	// ModRmReg matches any general-purpose register, encoded in the
	// ModR/M reg field.
	ModRmReg OperandKind = iota
	// ModRmRegMem matches a register or SIB memory operand, encoded in
	// the ModR/M rm field (plus SIB/displacement bytes when memory).
	ModRmRegMem
	// Imm matches an immediate operand.
	Imm
	// Moffs matches a flat absolute memory operand (MOV's accumulator
	// forms only).
	Moffs
	// Al matches only the accumulator register at the slot's width
	// (AL/AX/EAX/RAX), encoded implicitly (no ModR/M byte).
	Al
	// OpcodeRd matches any general-purpose register, encoded by adding
	// its low 3 bits directly to the opcode byte (the "+rb/+rw/+rd/+ro"
	// forms), rather than via a ModR/M byte.
	OpcodeRd
	// Rel32 matches a PC-relative branch target, always encoded at its
	// widest (32-bit) displacement.
	Rel32
	// Rel8 and Rel16 are the short relative-branch forms. They exist so
	// the Intel-summary ingester can represent every row of a jump's
	// opcode table, but no operand value satisfies them: relative
	// operands only match Rel32 slots, so the short forms are never
	// selected (see DESIGN.md's Intel-summary ingestion decisions).
	Rel8
	Rel16
	// One matches the literal immediate value 1 (used by the single
	// shift/rotate-by-1 opcode forms), contributing no bytes of its own.
	One
	// Cl matches only the CL register (shift/rotate-by-CL forms).
	Cl
)

func (k OperandKind) String() string {
	switch k {
	case ModRmReg:
		return "ModRmReg"
	case ModRmRegMem:
		return "ModRmRegMem"
	case Imm:
		return "Imm"
	case Moffs:
		return "Moffs"
	case Al:
		return "Al"
	case OpcodeRd:
		return "OpcodeRd"
	case Rel32:
		return "Rel32"
	case Rel8:
		return "Rel8"
	case Rel16:
		return "Rel16"
	case One:
		return "One"
	case Cl:
		return "Cl"
	default:
		return "Unknown"
	}
}

// OperandSlot is one operand position in an encoding recipe: the kind of
// operand it accepts and the width (in bits) it expects.
type OperandSlot struct {
	Kind OperandKind
	Size int
}
