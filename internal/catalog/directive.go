package catalog

// DirectiveOp tags one step of an encoding recipe's bytecode. The encoder
// (internal/encoder) walks a recipe's Directives in order, each one
// appending bytes (or recording a fixup) to the instruction being
// assembled. This interpreter shape is not present in the original
// source's InstructionRepr (ras-x86-repr/src/instruction.rs), which only
// had a single opcode+modrm+sib+rex struct with no ordered step list; it
// is introduced here so a single recipe can express MOV's moffs forms,
// OpcodeRd forms, and ModRM forms uniformly without the encoder
// special-casing each instruction family.
type DirectiveOp int

const (
	// OpPrefix appends a mandatory legacy prefix byte (66, F2, or F3)
	// declared in the opcode column ahead of the opcode bytes.
	OpPrefix DirectiveOp = iota
	// OpOpcode appends the recipe's literal opcode bytes (1 to 3 bytes).
	OpOpcode
	// OpOpcodeRd appends the recipe's single opcode byte with the low 3
	// bits of the register named by OpcodeOperand added to it, and marks
	// that register's REX.B extension bit if needed.
	OpOpcodeRd
	// OpModRM appends a single ModR/M byte. RegSource selects whether
	// the reg field comes from OpcodeExt or from an operand's register
	// number; RmOperand selects the operand supplying the rm field
	// (a register, or a SIB memory reference that also triggers a SIB
	// byte and displacement bytes).
	OpModRM
	// OpImm appends an immediate's bytes, little-endian, at Width bits,
	// sign-extending the operand's narrower value up to Width when the
	// operand was constructed at a narrower width.
	OpImm
	// OpRel appends a 4-byte placeholder for a PC-relative displacement
	// and registers a fixup against the operand's label (or computes it
	// immediately for a literal relative immediate). Width carries the
	// displacement size in bits; only 32 is encodable, the narrower rel
	// forms existing solely so the Intel-summary ingester can represent
	// their catalog rows.
	OpRel
	// OpMoffsAddr appends the flat absolute address bytes of a moffs
	// memory operand.
	OpMoffsAddr
)

// RegSource selects where an OpModRM directive's reg field comes from.
type RegSource int

const (
	// RegFromExtension uses the recipe's fixed OpcodeExt digit.
	RegFromExtension RegSource = iota
	// RegFromOperand uses the register number of the operand named by
	// RegOperand.
	RegFromOperand
)

// Directive is one step of an encoding recipe.
type Directive struct {
	Op DirectiveOp

	// Prefix / Opcode / OpcodeRd
	Bytes         []byte
	OpcodeOperand int // operand index supplying the embedded register, for OpcodeRd

	// ModRM
	RegSource  RegSource
	OpcodeExt  uint8
	RegOperand int
	RmOperand  int

	// Imm / Rel32 / MoffsAddr
	ImmOperand int
	Width      int
}
