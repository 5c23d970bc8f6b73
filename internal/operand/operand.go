// Package operand models the operand values an instruction is invoked
// with (as opposed to catalog.OperandSlot, which models the kinds of
// operand a catalog recipe accepts). Ported closely from
// ras-x86/src/operand.rs in the original source, including the
// CanEncode compatibility predicate.
package operand

import "github.com/gabi-250/ras/internal/register"

// Kind distinguishes the three operand value shapes.
type Kind int

const (
	KindRegister Kind = iota
	KindImmediate
	KindMemory
)

// Operand is a single argument to an instruction: a register, an
// immediate, or a memory reference.
type Operand struct {
	kind Kind
	reg  register.Register
	imm  Immediate
	mem  Memory
}

func FromRegister(r register.Register) Operand { return Operand{kind: KindRegister, reg: r} }
func FromImmediate(i Immediate) Operand        { return Operand{kind: KindImmediate, imm: i} }
func FromMemory(m Memory) Operand              { return Operand{kind: KindMemory, mem: m} }

func (o Operand) IsRegister() bool  { return o.kind == KindRegister }
func (o Operand) IsImmediate() bool { return o.kind == KindImmediate }
func (o Operand) IsMemory() bool    { return o.kind == KindMemory }

func (o Operand) Register() register.Register { return o.reg }
func (o Operand) Immediate() Immediate         { return o.imm }
func (o Operand) Memory() Memory               { return o.mem }

// Size returns the operand's width in bits. Memory operands report 64
// unconditionally, matching the original source's own "XXX" note: a
// memory operand's effective width is determined by the catalog slot it
// is matched against, not by the operand value itself.
func (o Operand) Size() int {
	switch o.kind {
	case KindRegister:
		return int(o.reg.Size)
	case KindImmediate:
		return o.imm.Size()
	case KindMemory:
		return 64
	default:
		return 0
	}
}

// Immediate is a literal value, sized at construction time to the
// smallest width it was given in.
type Immediate struct {
	width Width
	value uint32
}

type Width int

const (
	Imm8  Width = 8
	Imm16 Width = 16
	Imm32 Width = 32
)

func NewImm8(v uint8) Immediate   { return Immediate{width: Imm8, value: uint32(v)} }
func NewImm16(v uint16) Immediate { return Immediate{width: Imm16, value: uint32(v)} }
func NewImm32(v uint32) Immediate { return Immediate{width: Imm32, value: v} }

func (i Immediate) Size() int      { return int(i.width) }
func (i Immediate) Value() uint32  { return i.value }
func (i Immediate) Uint8() uint8   { return uint8(i.value) }
func (i Immediate) Uint16() uint16 { return uint16(i.value) }
func (i Immediate) Uint32() uint32 { return i.value }

// Scale is the SIB byte's multiplier field.
type Scale uint8

const (
	ScaleByte   Scale = 0b00
	ScaleWord   Scale = 0b01
	ScaleDouble Scale = 0b10
	ScaleQuad   Scale = 0b11
)

// Memory is a memory operand: a SIB-addressed location, a PC-relative
// reference to a label or literal offset (used for JMP/CALL targets),
// or a flat absolute moffs address (MOV's accumulator<->memory forms).
type Memory struct {
	memKind memKind

	// Sib fields.
	base         *register.Register
	index        *register.Register
	scale        Scale
	displacement *int32

	// Relative fields.
	relLabel   string
	relIsLabel bool
	relImm     int32

	// Moffs fields.
	moffsWidth Width
	moffsValue uint64
}

type memKind int

const (
	memSib memKind = iota
	memRelative
	memMoffs
)

func NewSib(base, index *register.Register, scale Scale, displacement *int32) Memory {
	return Memory{memKind: memSib, base: base, index: index, scale: scale, displacement: displacement}
}

func NewRelativeLabel(label string) Memory {
	return Memory{memKind: memRelative, relIsLabel: true, relLabel: label}
}

func NewRelativeImmediate(v int32) Memory {
	return Memory{memKind: memRelative, relIsLabel: false, relImm: v}
}

func NewMoffs(width Width, value uint64) Memory {
	return Memory{memKind: memMoffs, moffsWidth: width, moffsValue: value}
}

func (m Memory) IsSib() bool      { return m.memKind == memSib }
func (m Memory) IsRelative() bool { return m.memKind == memRelative }
func (m Memory) IsMoffs() bool    { return m.memKind == memMoffs }

func (m Memory) Base() *register.Register      { return m.base }
func (m Memory) Index() *register.Register     { return m.index }
func (m Memory) Scale() Scale                  { return m.scale }
func (m Memory) Displacement() *int32          { return m.displacement }
func (m Memory) RelativeLabel() (string, bool) { return m.relLabel, m.relIsLabel }
func (m Memory) RelativeImmediate() int32      { return m.relImm }
func (m Memory) MoffsValue() (Width, uint64)   { return m.moffsWidth, m.moffsValue }
