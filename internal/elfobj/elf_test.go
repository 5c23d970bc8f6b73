package elfobj

import (
	"bytes"
	"testing"

	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/symtab"
)

func TestWriteProducesValidHeader(t *testing.T) {
	syms := map[string]symtab.Symbol{}
	tbl := symtab.New()
	if err := tbl.Define("start", 0); err != nil {
		t.Fatalf("define: %v", err)
	}
	tbl.Declare("printf", symtab.Byte, symtab.Global)
	syms = tbl.All()

	var buf bytes.Buffer
	text := []byte{0x90, 0x90, 0xc3}
	if err := Write(&buf, mode.Long, text, syms); err != nil {
		t.Fatalf("Write: %v", err)
	}

	out := buf.Bytes()
	if len(out) < elfHeaderSize {
		t.Fatalf("object too short: %d bytes", len(out))
	}
	if !bytes.Equal(out[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		t.Fatalf("bad magic: %x", out[:4])
	}
	if out[4] != 2 {
		t.Errorf("expected ELFCLASS64 (2), got %d", out[4])
	}
	if out[5] != 1 {
		t.Errorf("expected ELFDATA2LSB (1), got %d", out[5])
	}

	etype := uint16(out[16]) | uint16(out[17])<<8
	if etype != etREL {
		t.Errorf("e_type = %d, want ET_REL (%d)", etype, etREL)
	}
	emachine := uint16(out[18]) | uint16(out[19])<<8
	if emachine != emX86_64 {
		t.Errorf("e_machine = %d, want EM_X86_64 (%d)", emachine, emX86_64)
	}

	// .text bytes follow immediately after the ELF header.
	gotText := out[elfHeaderSize : elfHeaderSize+len(text)]
	if !bytes.Equal(gotText, text) {
		t.Errorf(".text bytes = %x, want %x", gotText, text)
	}
}

func TestWriteProtectedModeUsesEM386(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, mode.Protected, []byte{0x90}, map[string]symtab.Symbol{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.Bytes()
	emachine := uint16(out[18]) | uint16(out[19])<<8
	if emachine != em386 {
		t.Errorf("e_machine = %d, want EM_386 (%d)", emachine, em386)
	}
}

func TestWriteEmptySymbolTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, mode.Long, []byte{0x90}, map[string]symtab.Symbol{}); err != nil {
		t.Fatalf("Write with no symbols: %v", err)
	}
	if buf.Len() < elfHeaderSize {
		t.Fatalf("object too short: %d bytes", buf.Len())
	}
}
