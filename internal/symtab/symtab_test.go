package symtab_test

import (
	"testing"

	"github.com/gabi-250/ras/internal/symtab"
)

func TestDefineThenLookup(t *testing.T) {
	tab := symtab.New()
	if err := tab.Define("start", 0); err != nil {
		t.Fatalf("Define: %v", err)
	}
	sym, ok := tab.Lookup("start")
	if !ok || !sym.IsDefined() {
		t.Fatal("expected start to be defined")
	}
	offset, ok := tab.OffsetOf("start")
	if !ok || offset != 0 {
		t.Fatalf("OffsetOf(start) = (%d, %v), want (0, true)", offset, ok)
	}
}

func TestDefineTwiceFails(t *testing.T) {
	tab := symtab.New()
	if err := tab.Define("dup", 0); err != nil {
		t.Fatalf("Define: %v", err)
	}
	err := tab.Define("dup", 4)
	if err == nil {
		t.Fatal("expected a DuplicateLabelError")
	}
	if _, ok := err.(*symtab.DuplicateLabelError); !ok {
		t.Fatalf("got error %T, want *DuplicateLabelError", err)
	}
}

func TestResolveReportsUndefinedSymbols(t *testing.T) {
	tab := symtab.New()
	tab.AddFixup("missing", 0, 4)
	_, _, err := tab.Resolve()
	if err == nil {
		t.Fatal("expected an UndefinedSymbolsError")
	}
	undef, ok := err.(*symtab.UndefinedSymbolsError)
	if !ok {
		t.Fatalf("got error %T, want *UndefinedSymbolsError", err)
	}
	if len(undef.IDs) != 1 || undef.IDs[0] != "missing" {
		t.Errorf("got IDs %v, want [missing]", undef.IDs)
	}
}

func TestResolveSplitsDefinedFromExternal(t *testing.T) {
	tab := symtab.New()
	tab.Declare("extern_fn", symtab.Quad, symtab.Global)
	if err := tab.Define("local_fn", 16); err != nil {
		t.Fatalf("Define: %v", err)
	}
	tab.AddFixup("extern_fn", 0, 4)
	tab.AddFixup("local_fn", 8, 4)

	resolved, external, err := tab.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := resolved["local_fn"]; !ok {
		t.Error("expected local_fn among resolved symbols")
	}
	if _, ok := external["extern_fn"]; !ok {
		t.Error("expected extern_fn among external symbols")
	}
}

func TestDeclareThenDefineIsNotADuplicate(t *testing.T) {
	tab := symtab.New()
	tab.Declare("fn", symtab.Quad, symtab.Global|symtab.Weak)
	if err := tab.Define("fn", 32); err != nil {
		t.Fatalf("Define after Declare should succeed, got: %v", err)
	}
	sym, _ := tab.Lookup("fn")
	if !sym.IsGlobal() || !sym.IsWeak() {
		t.Error("expected both Global and Weak attributes to survive Define")
	}
}

func TestAllReturnsEverySymbol(t *testing.T) {
	tab := symtab.New()
	tab.Declare("a", symtab.Byte, 0)
	if err := tab.Define("b", 0); err != nil {
		t.Fatalf("Define: %v", err)
	}
	all := tab.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d symbols, want 2", len(all))
	}
}
