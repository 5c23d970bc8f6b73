package catalog_test

import (
	"strings"
	"testing"

	"github.com/gabi-250/ras/internal/catalog"
	"github.com/gabi-250/ras/internal/mnemonic"
)

const testCSV = `Mnemonic,Opcode,OpcodeExt,OperandSize,Rex,Shape,Op1Kind,Op1Size,Op2Kind,Op2Size,Op3Kind,Op3Size
ADD,01,,32,-,modrm_rm_reg,rm,32,reg,32,,
ADD,01,,64,W,modrm_rm_reg,rm,64,reg,64,,
NOP,90,,32,-,zero,,,,,,
MOV,C7,0,32,-,modrm_ext_rm_imm,rm,32,imm,32,,
`

func TestIngestParsesRows(t *testing.T) {
	recipes, err := catalog.Ingest(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(recipes) != 4 {
		t.Fatalf("got %d recipes, want 4", len(recipes))
	}

	var add64, nop bool
	for _, r := range recipes {
		switch r.Mnemonic {
		case mnemonic.ADD:
			if r.Rex == catalog.RexForcedW {
				add64 = true
				if len(r.Operands) != 2 {
					t.Errorf("ADD/64 recipe has %d operand slots, want 2", len(r.Operands))
				}
			}
		case mnemonic.NOP:
			nop = true
			if len(r.Directives) != 1 {
				t.Errorf("NOP recipe has %d directives, want 1", len(r.Directives))
			}
		}
	}
	if !add64 {
		t.Error("expected a REX.W ADD recipe")
	}
	if !nop {
		t.Error("expected a NOP recipe")
	}
}

func TestIngestRejectsUnknownMnemonic(t *testing.T) {
	csv := "Mnemonic,Opcode,OpcodeExt,OperandSize,Rex,Shape,Op1Kind,Op1Size,Op2Kind,Op2Size,Op3Kind,Op3Size\n" +
		"FROBNICATE,00,,8,-,zero,,,,,,\n"
	if _, err := catalog.Ingest(strings.NewReader(csv)); err == nil {
		t.Fatal("expected an error for an unknown mnemonic")
	}
}

func TestIngestRejectsUnknownShape(t *testing.T) {
	csv := "Mnemonic,Opcode,OpcodeExt,OperandSize,Rex,Shape,Op1Kind,Op1Size,Op2Kind,Op2Size,Op3Kind,Op3Size\n" +
		"NOP,90,,32,-,mystery_shape,,,,,,\n"
	if _, err := catalog.Ingest(strings.NewReader(csv)); err == nil {
		t.Fatal("expected an error for an unknown shape")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	recipes, err := catalog.Ingest(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	blob, err := catalog.Marshal(recipes)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	cat, err := catalog.Unmarshal(blob)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got := cat.RecipesFor(mnemonic.ADD)
	if len(got) != 2 {
		t.Fatalf("RecipesFor(ADD) after round-trip = %d recipes, want 2", len(got))
	}
}

func TestGlobalCatalogLoadsEmbeddedTable(t *testing.T) {
	cat, err := catalog.Global()
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if recipes := cat.RecipesFor(mnemonic.MOV); len(recipes) == 0 {
		t.Error("expected at least one MOV recipe in the embedded catalog")
	}
	if recipes := cat.RecipesFor(mnemonic.JMP); len(recipes) == 0 {
		t.Error("expected at least one JMP recipe in the embedded catalog")
	}
}
