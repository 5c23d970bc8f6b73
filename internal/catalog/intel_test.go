package catalog_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/gabi-250/ras/internal/catalog"
	"github.com/gabi-250/ras/internal/encoder"
	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/operand"
	"github.com/gabi-250/ras/internal/register"
	"github.com/gabi-250/ras/internal/selector"
	"github.com/gabi-250/ras/internal/symtab"
)

const intelCSV = `Instruction,Opcode,Valid 64-bit,Valid 32-bit,Valid 16-bit,Feature Flags,Operand 1,Operand 2,Operand 3,Operand 4,Tuple Type,Description
"ADD r/m64, r64",REX.W + 01 /r,Valid,N.E.,N.E.,,"ModRM:r/m (r, w)",ModRM:reg (r),NA,NA,,Add r64 to r/m64.
"ADD r/m32, r32",01 /r,Valid,Valid,Valid,,"ModRM:r/m (r, w)",ModRM:reg (r),NA,NA,,Add r32 to r/m32.
"ADD AL, imm8",04 ib,Valid,Valid,Valid,,"AL/AX/EAX/RAX (r, w)",imm8,NA,NA,,Add imm8 to AL.
"XOR AX, imm16",35 iw,Valid,Valid,Valid,,"AX/EAX/RAX (r, w)",imm8/16/32,NA,NA,,Exclusive-or imm16 with AX.
"MOV r8, imm8",B0+ rb ib,Valid,Valid,Valid,,opcode + rb (w),imm8,NA,NA,,Move imm8 to r8.
"SHL r/m8, 1",D0 /4,Valid,Valid,Valid,,"ModRM:r/m (r, w)",1,NA,NA,,Multiply r/m8 by 2 once.
"JZ rel8",74 cb,Valid,Valid,Valid,,Offset,NA,NA,NA,,Jump short if zero.
"JZ rel32",0F 84 cd,Valid,Valid,Valid,,Offset,NA,NA,NA,,Jump near if zero.
NOP,NP 90,Valid,Valid,Valid,,NA,NA,NA,NA,,One byte no-operation instruction.
"MOV AL, moffs8",A0,Valid,Valid,Valid,,AL/AX/EAX/RAX (w),Moffs (r),NA,NA,,Move byte at offset to AL.
"PADDB mm, mm/m64",0F FC /r,Valid,Valid,Valid,MMX,ModRM:reg (r. w),ModRM:r/m (r),NA,NA,,Add packed byte integers.
`

func ingestIntelCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	recipes, err := catalog.IngestIntel(strings.NewReader(intelCSV))
	if err != nil {
		t.Fatalf("IngestIntel: %v", err)
	}
	blob, err := catalog.Marshal(recipes)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	cat, err := catalog.Unmarshal(blob)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return cat
}

func TestIngestIntelParsesRows(t *testing.T) {
	recipes, err := catalog.IngestIntel(strings.NewReader(intelCSV))
	if err != nil {
		t.Fatalf("IngestIntel: %v", err)
	}
	// The PADDB row has a feature flag and must be skipped.
	if len(recipes) != 10 {
		t.Fatalf("got %d recipes, want 10", len(recipes))
	}

	for _, r := range recipes {
		switch {
		case r.Mnemonic == mnemonic.ADD && r.Rex == catalog.RexForcedW:
			if !r.Modes.Contains(mode.Long) || r.Modes.Contains(mode.Protected) {
				t.Error("REX.W ADD must be long-mode only")
			}
		case r.Mnemonic == mnemonic.NOP:
			if !r.IsNP {
				t.Error("NP 90 row must set IsNP")
			}
		case r.Mnemonic == mnemonic.MOV && len(r.Operands) == 2 && r.Operands[0].Kind == catalog.OpcodeRd:
			if r.Directives[0].Op != catalog.OpOpcodeRd {
				t.Errorf("B0+rb row: first directive is %d, want OpOpcodeRd", r.Directives[0].Op)
			}
		case r.Mnemonic == mnemonic.JZ && r.Operands[0].Kind == catalog.Rel8:
			// The short form must exist in the catalog but stay
			// unselectable (checked in TestIngestIntelNeverSelectsRel8).
		}
	}
}

func TestIngestIntelRejectsUnknownOperand(t *testing.T) {
	csv := "Instruction,Opcode,Valid 64-bit,Valid 32-bit,Valid 16-bit,Feature Flags,Operand 1,Operand 2,Operand 3,Operand 4,Tuple Type,Description\n" +
		`"ADD r/m32, banana",01 /r,Valid,Valid,Valid,,"ModRM:r/m (r, w)",implicit thing,NA,NA,,Nonsense operand.` + "\n"
	if _, err := catalog.IngestIntel(strings.NewReader(csv)); err == nil {
		t.Fatal("expected an error for an unrecognized operand token")
	}
}

func TestIngestIntelEndToEndEncode(t *testing.T) {
	cat := ingestIntelCatalog(t)

	cases := []struct {
		name     string
		mnemonic mnemonic.Mnemonic
		operands []operand.Operand
		want     string
	}{
		{"add rax rcx", mnemonic.ADD, []operand.Operand{
			operand.FromRegister(register.RAX),
			operand.FromRegister(register.RCX),
		}, "4801c8"},
		{"add al imm8", mnemonic.ADD, []operand.Operand{
			operand.FromRegister(register.AL),
			operand.FromImmediate(operand.NewImm8(2)),
		}, "0402"},
		{"xor ax imm16", mnemonic.XOR, []operand.Operand{
			operand.FromRegister(register.AX),
			operand.FromImmediate(operand.NewImm16(0x101)),
		}, "66350101"},
		{"mov bl imm8", mnemonic.MOV, []operand.Operand{
			operand.FromRegister(register.BL),
			operand.FromImmediate(operand.NewImm8(7)),
		}, "b307"},
		{"nop", mnemonic.NOP, nil, "90"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			recipe, err := selector.Select(cat, c.mnemonic, c.operands, mode.Long)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			enc := encoder.New(mode.Long, symtab.New())
			if err := enc.Encode(recipe, c.operands); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if got := hex.EncodeToString(enc.Bytes()); got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestIngestIntelNeverSelectsRel8(t *testing.T) {
	cat := ingestIntelCatalog(t)
	operands := []operand.Operand{operand.FromMemory(operand.NewRelativeImmediate(0x10))}
	recipe, err := selector.Select(cat, mnemonic.JZ, operands, mode.Long)
	if err != nil {
		t.Fatalf("Select(JZ): %v", err)
	}
	if recipe.Operands[0].Kind != catalog.Rel32 {
		t.Fatalf("selected %s slot, want Rel32 (the rel8 form must never win)", recipe.Operands[0].Kind)
	}
	enc := encoder.New(mode.Long, symtab.New())
	if err := enc.Encode(recipe, operands); err != nil {
		t.Fatalf("Encode(JZ): %v", err)
	}
	if got, want := hex.EncodeToString(enc.Bytes()), "0f8410000000"; got != want {
		t.Errorf("JZ +0x10 = %s, want %s", got, want)
	}
}

func TestIngestIntelModeFiltering(t *testing.T) {
	cat := ingestIntelCatalog(t)

	// The REX.W form is invalid outside long mode; a 64-bit ADD must not
	// select in protected mode, while the 32-bit form still does.
	_, err := selector.Select(cat, mnemonic.ADD, []operand.Operand{
		operand.FromRegister(register.RAX),
		operand.FromRegister(register.RCX),
	}, mode.Protected)
	if err == nil {
		t.Fatal("expected no 64-bit ADD recipe in protected mode")
	}

	recipe, err := selector.Select(cat, mnemonic.ADD, []operand.Operand{
		operand.FromRegister(register.EAX),
		operand.FromRegister(register.ECX),
	}, mode.Protected)
	if err != nil {
		t.Fatalf("Select(ADD, protected): %v", err)
	}
	if recipe.Rex != catalog.RexNotForced {
		t.Error("protected-mode ADD must not carry a forced REX")
	}
}
