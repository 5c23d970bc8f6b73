// Package register models the general-purpose x86-64 registers the
// encoder can place in a ModR/M reg/rm field or an opcode+rd embedded
// register form.
//
// A Register's Physical number ranges over 0..15, not 0..7: bit 3 of the
// physical number (Physical >= 8) is what the encoder tests to decide
// whether REX.R/X/B must be set, matching the teacher's Encoding field
// (architecture/x86_64/registers.go) and the encoder's own
// "reg_op.Physical & 0b111" masking, which only makes sense if physical
// numbers can exceed 7. See DESIGN.md, Open Question 2.
package register

// Width is the register's size in bits.
type Width int

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Register is a general-purpose register: a physical number and a width.
// AH/CH/DH/BH alias the same physical numbers as SPL/BPL/SIL/DIL (4..7) at
// Width8 but are only reachable without a REX prefix present; the encoder,
// not this type, enforces that mutual exclusion.
type Register struct {
	Name     string
	Physical uint8
	Size     Width
	// High marks the legacy 8-bit high-byte registers (AH/CH/DH/BH),
	// which cannot be addressed once any REX prefix byte is emitted.
	High bool
}

// NeedsRexExtension reports whether encoding this register's physical
// number requires the corresponding REX extension bit (R, X, or B) to be
// set, i.e. whether it is one of R8..R15 / R8D..R15D / etc.
func (r Register) NeedsRexExtension() bool {
	return r.Physical >= 8
}

// Low3 returns the register's physical number masked to the three bits
// that fit directly into a ModR/M reg/rm field or an opcode+rd byte; the
// fourth bit (if any) is carried separately in a REX extension bit.
func (r Register) Low3() uint8 {
	return r.Physical & 0b111
}

// 64-bit general-purpose registers.
var (
	RAX = Register{Name: "rax", Physical: 0, Size: Width64}
	RCX = Register{Name: "rcx", Physical: 1, Size: Width64}
	RDX = Register{Name: "rdx", Physical: 2, Size: Width64}
	RBX = Register{Name: "rbx", Physical: 3, Size: Width64}
	RSP = Register{Name: "rsp", Physical: 4, Size: Width64}
	RBP = Register{Name: "rbp", Physical: 5, Size: Width64}
	RSI = Register{Name: "rsi", Physical: 6, Size: Width64}
	RDI = Register{Name: "rdi", Physical: 7, Size: Width64}
	R8  = Register{Name: "r8", Physical: 8, Size: Width64}
	R9  = Register{Name: "r9", Physical: 9, Size: Width64}
	R10 = Register{Name: "r10", Physical: 10, Size: Width64}
	R11 = Register{Name: "r11", Physical: 11, Size: Width64}
	R12 = Register{Name: "r12", Physical: 12, Size: Width64}
	R13 = Register{Name: "r13", Physical: 13, Size: Width64}
	R14 = Register{Name: "r14", Physical: 14, Size: Width64}
	R15 = Register{Name: "r15", Physical: 15, Size: Width64}
)

// 32-bit general-purpose registers.
var (
	EAX  = Register{Name: "eax", Physical: 0, Size: Width32}
	ECX  = Register{Name: "ecx", Physical: 1, Size: Width32}
	EDX  = Register{Name: "edx", Physical: 2, Size: Width32}
	EBX  = Register{Name: "ebx", Physical: 3, Size: Width32}
	ESP  = Register{Name: "esp", Physical: 4, Size: Width32}
	EBP  = Register{Name: "ebp", Physical: 5, Size: Width32}
	ESI  = Register{Name: "esi", Physical: 6, Size: Width32}
	EDI  = Register{Name: "edi", Physical: 7, Size: Width32}
	R8D  = Register{Name: "r8d", Physical: 8, Size: Width32}
	R9D  = Register{Name: "r9d", Physical: 9, Size: Width32}
	R10D = Register{Name: "r10d", Physical: 10, Size: Width32}
	R11D = Register{Name: "r11d", Physical: 11, Size: Width32}
	R12D = Register{Name: "r12d", Physical: 12, Size: Width32}
	R13D = Register{Name: "r13d", Physical: 13, Size: Width32}
	R14D = Register{Name: "r14d", Physical: 14, Size: Width32}
	R15D = Register{Name: "r15d", Physical: 15, Size: Width32}
)

// 16-bit general-purpose registers.
var (
	AX   = Register{Name: "ax", Physical: 0, Size: Width16}
	CX   = Register{Name: "cx", Physical: 1, Size: Width16}
	DX   = Register{Name: "dx", Physical: 2, Size: Width16}
	BX   = Register{Name: "bx", Physical: 3, Size: Width16}
	SP   = Register{Name: "sp", Physical: 4, Size: Width16}
	BP   = Register{Name: "bp", Physical: 5, Size: Width16}
	SI   = Register{Name: "si", Physical: 6, Size: Width16}
	DI   = Register{Name: "di", Physical: 7, Size: Width16}
	R8W  = Register{Name: "r8w", Physical: 8, Size: Width16}
	R9W  = Register{Name: "r9w", Physical: 9, Size: Width16}
	R10W = Register{Name: "r10w", Physical: 10, Size: Width16}
	R11W = Register{Name: "r11w", Physical: 11, Size: Width16}
	R12W = Register{Name: "r12w", Physical: 12, Size: Width16}
	R13W = Register{Name: "r13w", Physical: 13, Size: Width16}
	R14W = Register{Name: "r14w", Physical: 14, Size: Width16}
	R15W = Register{Name: "r15w", Physical: 15, Size: Width16}
)

// 8-bit general-purpose registers (low byte; available with or without REX).
var (
	AL   = Register{Name: "al", Physical: 0, Size: Width8}
	CL   = Register{Name: "cl", Physical: 1, Size: Width8}
	DL   = Register{Name: "dl", Physical: 2, Size: Width8}
	BL   = Register{Name: "bl", Physical: 3, Size: Width8}
	SPL  = Register{Name: "spl", Physical: 4, Size: Width8}
	BPL  = Register{Name: "bpl", Physical: 5, Size: Width8}
	SIL  = Register{Name: "sil", Physical: 6, Size: Width8}
	DIL  = Register{Name: "dil", Physical: 7, Size: Width8}
	R8B  = Register{Name: "r8b", Physical: 8, Size: Width8}
	R9B  = Register{Name: "r9b", Physical: 9, Size: Width8}
	R10B = Register{Name: "r10b", Physical: 10, Size: Width8}
	R11B = Register{Name: "r11b", Physical: 11, Size: Width8}
	R12B = Register{Name: "r12b", Physical: 12, Size: Width8}
	R13B = Register{Name: "r13b", Physical: 13, Size: Width8}
	R14B = Register{Name: "r14b", Physical: 14, Size: Width8}
	R15B = Register{Name: "r15b", Physical: 15, Size: Width8}
)

// 8-bit high-byte legacy registers. Only addressable in the absence of a
// REX prefix.
var (
	AH = Register{Name: "ah", Physical: 4, Size: Width8, High: true}
	CH = Register{Name: "ch", Physical: 5, Size: Width8, High: true}
	DH = Register{Name: "dh", Physical: 6, Size: Width8, High: true}
	BH = Register{Name: "bh", Physical: 7, Size: Width8, High: true}
)

// ByName maps a canonical lower-case register name to its Register value.
var ByName = map[string]Register{
	"rax": RAX, "rcx": RCX, "rdx": RDX, "rbx": RBX,
	"rsp": RSP, "rbp": RBP, "rsi": RSI, "rdi": RDI,
	"r8": R8, "r9": R9, "r10": R10, "r11": R11,
	"r12": R12, "r13": R13, "r14": R14, "r15": R15,

	"eax": EAX, "ecx": ECX, "edx": EDX, "ebx": EBX,
	"esp": ESP, "ebp": EBP, "esi": ESI, "edi": EDI,
	"r8d": R8D, "r9d": R9D, "r10d": R10D, "r11d": R11D,
	"r12d": R12D, "r13d": R13D, "r14d": R14D, "r15d": R15D,

	"ax": AX, "cx": CX, "dx": DX, "bx": BX,
	"sp": SP, "bp": BP, "si": SI, "di": DI,
	"r8w": R8W, "r9w": R9W, "r10w": R10W, "r11w": R11W,
	"r12w": R12W, "r13w": R13W, "r14w": R14W, "r15w": R15W,

	"al": AL, "cl": CL, "dl": DL, "bl": BL,
	"spl": SPL, "bpl": BPL, "sil": SIL, "dil": DIL,
	"r8b": R8B, "r9b": R9B, "r10b": R10B, "r11b": R11B,
	"r12b": R12B, "r13b": R13B, "r14b": R14B, "r15b": R15B,

	"ah": AH, "ch": CH, "dh": DH, "bh": BH,
}
