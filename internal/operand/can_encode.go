package operand

import (
	"github.com/gabi-250/ras/internal/catalog"
	"github.com/gabi-250/ras/internal/register"
)

// CanEncode reports whether this operand value may be used where slot
// expects an operand. Ported from ras-x86/src/operand.rs's can_encode,
// extended with the One/Cl slot kinds our catalog adds for shift/rotate
// instructions.
func (o Operand) CanEncode(slot catalog.OperandSlot) bool {
	if !o.IsMemory() && o.Size() > slot.Size {
		return false
	}
	if o.IsRegister() && o.Size() != slot.Size {
		return false
	}

	if slot.Kind == catalog.Al {
		return o.IsRegister() && o.reg.Physical == register.RAX.Physical && !o.reg.High
	}

	if slot.Kind == catalog.Cl {
		return o.IsRegister() && o.reg == register.CL
	}

	if slot.Kind == catalog.One {
		return o.IsImmediate() && o.imm.value == 1
	}

	switch {
	case o.IsRegister() && (slot.Kind == catalog.ModRmRegMem || slot.Kind == catalog.ModRmReg || slot.Kind == catalog.OpcodeRd):
		return true
	case o.IsImmediate() && slot.Kind == catalog.Imm:
		return true
	case o.IsMemory() && o.mem.IsSib() && slot.Kind == catalog.ModRmRegMem:
		return true
	case o.IsMemory() && o.mem.IsMoffs() && slot.Kind == catalog.Moffs:
		return true
	// Be pessimistic and always use the largest (rel32) encoding for
	// jump/call instructions, matching the original source's own comment.
	case o.IsMemory() && o.mem.IsRelative() && slot.Kind == catalog.Rel32:
		return true
	default:
		return false
	}
}
