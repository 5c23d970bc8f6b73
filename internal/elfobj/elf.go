// Package elfobj writes the ELF64 little-endian relocatable object file
// spec.md §4.6/§6 describes: a single `.text` section plus a symbol table
// entry per defined or declared label. It is deliberately narrow — no
// program headers, no relocations beyond what the encoder already baked
// into `.text` via its own fixup sweep — matching the "thin object
// emitter" collaborator boundary spec.md §1 draws around this concern.
//
// Grounded on ProjectSerenity-firefly's tools/ruse/binary/elf/elf.go: the
// same manual-buffer-plus-encoding/binary style (no struct-tag reflection,
// offsets computed by hand) applied to an ET_REL layout instead of that
// package's ET_EXEC one, since nothing in the retrieval pack writes ET_REL
// object files directly.
package elfobj

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/symtab"
)

const (
	elfHeaderSize  = 0x40
	sectHeaderSize = 0x40
	symEntSize     = 0x18

	etREL = 1

	emX86_64 = 0x3e
	em386    = 0x03

	shtNull     = 0
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3

	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecinstr = 0x4

	stbLocal  = 0
	stbGlobal = 1
	stbWeak   = 2

	sttNotype = 0

	shnUndef = 0
)

// machine maps an assembler Mode to the ELF e_machine constant spec.md
// §6 names: EM_X86_64 for Long mode, EM_386 for Protected or Real (the
// spec's own wording — x86-64 object files have no native 16-bit
// counterpart, so Real reuses the 32-bit machine constant too).
func machine(m mode.Mode) uint16 {
	if m == mode.Long {
		return emX86_64
	}
	return em386
}

// strtab accumulates a null-separated string table and returns each
// string's byte offset, in the "\x00name\x00name2\x00..." layout every
// ELF string table uses (offset 0 is always the empty string).
type strtab struct {
	buf []byte
}

func newStrtab() *strtab {
	return &strtab{buf: []byte{0}}
}

func (s *strtab) add(name string) uint32 {
	off := uint32(len(s.buf))
	s.buf = append(s.buf, []byte(name)...)
	s.buf = append(s.buf, 0)
	return off
}

// symbolEntry is one resolved row destined for .symtab, already ordered
// local-then-global per the ELF requirement that SHT_SYMTAB's sh_info
// hold the index of the first non-local entry.
type symbolEntry struct {
	name    string
	offset  uint64
	global  bool
	weak    bool
	defined bool
}

// Write emits an ELF64 ET_REL object containing a single `.text` section
// (text) and one symbol table entry per entry in syms, to w. Symbols are
// taken from a symtab.Table snapshot (symtab.Table.All) plus the
// fixed-up .text bytes the encoder produced; the object emitter does not
// itself know about fixups, matching the "append bytes; add a named
// symbol at offset with scope" interface spec.md §1 draws for it.
func Write(w *bytes.Buffer, m mode.Mode, text []byte, syms map[string]symtab.Symbol) error {
	entries := make([]symbolEntry, 0, len(syms))
	for name, sym := range syms {
		off, _ := sym.Offset()
		entries = append(entries, symbolEntry{
			name:    name,
			offset:  off,
			global:  sym.IsGlobal(),
			weak:    sym.IsWeak(),
			defined: sym.IsDefined(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].global != entries[j].global {
			return !entries[i].global
		}
		return entries[i].name < entries[j].name
	})

	strs := newStrtab()
	shstrs := newStrtab()

	// .symtab: entry 0 is always the reserved null symbol.
	symBuf := new(bytes.Buffer)
	writeSymEntry(symBuf, 0, 0, 0, 0)

	firstGlobal := 1
	for _, e := range entries {
		if !e.global {
			firstGlobal++
		}
	}

	localEntries, globalEntries := splitByScope(entries)
	for _, e := range append(localEntries, globalEntries...) {
		nameOff := strs.add(e.name)
		bind := byte(stbLocal)
		switch {
		case e.global:
			bind = stbGlobal
		case e.weak:
			bind = stbWeak
		}
		shndx := uint16(shnUndef)
		if e.defined {
			shndx = 1 // .text is always section index 1
		}
		writeSymEntry(symBuf, nameOff, bind, shndx, e.offset)
	}

	nameText := shstrs.add(".text")
	nameSymtab := shstrs.add(".symtab")
	nameStrtab := shstrs.add(".strtab")
	nameShstrtab := shstrs.add(".shstrtab")

	// Section layout: NULL, .text, .symtab, .strtab, .shstrtab.
	const numSections = 5

	textOff := uint64(elfHeaderSize)
	textSize := uint64(len(text))

	symtabOff := align8(textOff + textSize)
	symtabSize := uint64(symBuf.Len())

	strtabOff := align8(symtabOff + symtabSize)
	strtabSize := uint64(len(strs.buf))

	shstrtabOff := align8(strtabOff + strtabSize)
	shstrtabSize := uint64(len(shstrs.buf))

	shoff := align8(shstrtabOff + shstrtabSize)

	buf := new(bytes.Buffer)
	writeElfHeader(buf, m, shoff, numSections, 4 /* .shstrtab index */)

	buf.Write(text)
	padTo(buf, textOff+textSize, symtabOff)
	buf.Write(symBuf.Bytes())
	padTo(buf, symtabOff+symtabSize, strtabOff)
	buf.Write(strs.buf)
	padTo(buf, strtabOff+strtabSize, shstrtabOff)
	buf.Write(shstrs.buf)
	padTo(buf, shstrtabOff+shstrtabSize, shoff)

	writeSectionHeader(buf, 0, shtNull, 0, 0, 0, 0, 0, 0, 0, 0) // NULL
	writeSectionHeader(buf, nameText, shtProgbits, shfAlloc|shfExecinstr, 0, textOff, textSize, 0, 0, 8, 0)
	writeSectionHeader(buf, nameSymtab, shtSymtab, 0, 0, symtabOff, symtabSize, 3 /* link: .strtab */, uint32(firstGlobal), 8, symEntSize)
	writeSectionHeader(buf, nameStrtab, shtStrtab, 0, 0, strtabOff, strtabSize, 0, 0, 1, 0)
	writeSectionHeader(buf, nameShstrtab, shtStrtab, 0, 0, shstrtabOff, shstrtabSize, 0, 0, 1, 0)

	_, err := w.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("elfobj: writing object: %w", err)
	}
	return nil
}

func splitByScope(entries []symbolEntry) (local, global []symbolEntry) {
	for _, e := range entries {
		if e.global {
			global = append(global, e)
		} else {
			local = append(local, e)
		}
	}
	return local, global
}

func align8(off uint64) uint64 {
	const a = 8
	if rem := off % a; rem != 0 {
		return off + (a - rem)
	}
	return off
}

func padTo(buf *bytes.Buffer, cur, target uint64) {
	for cur < target {
		buf.WriteByte(0)
		cur++
	}
}

func writeElfHeader(buf *bytes.Buffer, m mode.Mode, shoff uint64, shnum, shstrndx uint16) {
	ident := [16]byte{0x7f, 'E', 'L', 'F', 2 /* ELFCLASS64 */, 1 /* ELFDATA2LSB */, 1 /* EV_CURRENT */, 0}
	buf.Write(ident[:])

	write := func(data any) { binary.Write(buf, binary.LittleEndian, data) }
	write(uint16(etREL))
	write(machine(m))
	write(uint32(1)) // e_version
	write(uint64(0)) // e_entry
	write(uint64(0)) // e_phoff
	write(shoff)
	write(uint32(0)) // e_flags
	write(uint16(elfHeaderSize))
	write(uint16(0)) // e_phentsize
	write(uint16(0)) // e_phnum
	write(uint16(sectHeaderSize))
	write(shnum)
	write(shstrndx)
}

func writeSectionHeader(buf *bytes.Buffer, name uint32, typ uint32, flags uint64, addr uint64, offset, size uint64, link, info uint32, addralign, entsize uint64) {
	write := func(data any) { binary.Write(buf, binary.LittleEndian, data) }
	write(name)
	write(typ)
	write(flags)
	write(addr)
	write(offset)
	write(size)
	write(link)
	write(info)
	write(addralign)
	write(entsize)
}

func writeSymEntry(buf *bytes.Buffer, name uint32, bind byte, shndx uint16, value uint64) {
	write := func(data any) { binary.Write(buf, binary.LittleEndian, data) }
	write(name)
	write(byte(bind<<4 | sttNotype))
	write(byte(0)) // st_other
	write(shndx)
	write(value)
	write(uint64(0)) // st_size
}
