package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
)

// Column order of the Intel instruction-summary CSV.
const (
	colInstruction = iota
	colOpcode
	colValid64
	colValid32
	colValid16
	colFeatureFlags
	colOperand1
	colOperand2
	colOperand3
	colOperand4
	colTupleType
	colDescription
)

// Operand-kind patterns, matched against the Operand1..4 columns.
// "opcode + rd" also covers the rb/rw/ro spellings the byte- and
// word-sized rows of the same opcode family use.
var (
	modrmRegRE = regexp.MustCompile(`ModRM:reg`)
	modrmRmRE  = regexp.MustCompile(`ModRM:r/?m`)
	allAccRE   = regexp.MustCompile(`AL/AX/EAX/RAX`)
	acc16RE    = regexp.MustCompile(`AX/EAX/RAX`)
	immRE      = regexp.MustCompile(`imm8/16/32|imm(8|16|32)\b|iw`)
	moffsRE    = regexp.MustCompile(`Moffs`)
	opcodeRdRE = regexp.MustCompile(`opcode ?\+ ?r[bwdo]`)
)

// IngestIntel reads the Intel instruction-summary CSV (columns:
// Instruction, Opcode, Valid64, Valid32, Valid16, FeatureFlags,
// Operand1..4, TupleType, Description) and compiles each row into an
// EncodingRecipe. Rows with a non-empty FeatureFlags column (SSE/AVX/
// privileged extensions) are skipped, as are rows whose mnemonic falls
// outside this build's enumeration; an unrecognized operand token is a
// fatal ingestion error.
//
// This is the offline pass the runtime never runs (catalog.Global
// ingests the curated embedded table instead); cmd/catgen invokes it to
// turn a CSV snapshot into the serialized blob format.
func IngestIntel(r io.Reader) ([]EncodingRecipe, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("catalog: reading intel CSV header: %w", err)
	}

	var recipes []EncodingRecipe
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: reading intel CSV row: %w", err)
		}
		if len(row) <= colOperand4 {
			return nil, fmt.Errorf("catalog: intel CSV row %v: too few columns", row)
		}
		if strings.TrimSpace(row[colFeatureFlags]) != "" {
			continue
		}
		recipe, ok, err := parseIntelRow(row)
		if err != nil {
			return nil, fmt.Errorf("catalog: intel CSV row %q: %w", row[colInstruction], err)
		}
		if !ok {
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func parseIntelRow(row []string) (EncodingRecipe, bool, error) {
	name, tokens := splitInstructionColumn(row[colInstruction])
	mnem, known := mnemonic.Parse(name)
	if !known {
		return EncodingRecipe{}, false, nil
	}
	if len(tokens) > 4 {
		return EncodingRecipe{}, false, fmt.Errorf("more than four operands")
	}

	slots := make([]OperandSlot, 0, len(tokens))
	for i, tok := range tokens {
		kindColumn := ""
		if colOperand1+i < len(row) {
			kindColumn = row[colOperand1+i]
		}
		slot, err := resolveSlot(tok, kindColumn)
		if err != nil {
			return EncodingRecipe{}, false, err
		}
		slots = append(slots, slot)
	}

	enc, err := parseOpcodeColumn(row[colOpcode], slots)
	if err != nil {
		return EncodingRecipe{}, false, err
	}

	var modes ModeSet
	if isValidMode(row[colValid16]) {
		modes |= ModesOf(mode.Real)
	}
	if isValidMode(row[colValid32]) {
		modes |= ModesOf(mode.Protected)
	}
	if isValidMode(row[colValid64]) {
		modes |= ModesOf(mode.Long)
	}

	return EncodingRecipe{
		Mnemonic:    mnem,
		Operands:    slots,
		OperandSize: effectiveOperandSize(slots),
		Rex:         enc.rex,
		Modes:       modes,
		IsNP:        enc.isNP,
		Directives:  enc.directives,
	}, true, nil
}

// splitInstructionColumn breaks "MNEMONIC op1, op2" into the mnemonic
// name and its textual operand tokens.
func splitInstructionColumn(instr string) (string, []string) {
	instr = strings.TrimSpace(instr)
	name, rest, found := strings.Cut(instr, " ")
	if !found {
		return instr, nil
	}
	var tokens []string
	for _, tok := range strings.Split(rest, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return name, tokens
}

// resolveSlot determines a slot's kind from the OperandN column and its
// width from the instruction-column token ("r/m64" is 64 bits wide, "AL"
// 8, and so on). Relative branch targets carry no ModRM/immediate
// encoding annotation, so their kind comes from the rel8/rel16/rel32
// token itself.
func resolveSlot(token, kindColumn string) (OperandSlot, error) {
	size := operandTokenSize(token)
	kc := strings.TrimSpace(kindColumn)

	switch {
	case modrmRegRE.MatchString(kc):
		return OperandSlot{Kind: ModRmReg, Size: size}, nil
	case modrmRmRE.MatchString(kc):
		return OperandSlot{Kind: ModRmRegMem, Size: size}, nil
	case allAccRE.MatchString(kc), acc16RE.MatchString(kc):
		return OperandSlot{Kind: Al, Size: size}, nil
	case immRE.MatchString(kc):
		return OperandSlot{Kind: Imm, Size: size}, nil
	case moffsRE.MatchString(kc):
		return OperandSlot{Kind: Moffs, Size: size}, nil
	case opcodeRdRE.MatchString(kc):
		return OperandSlot{Kind: OpcodeRd, Size: size}, nil
	case kc == "1":
		return OperandSlot{Kind: One, Size: 8}, nil
	case kc == "CL":
		return OperandSlot{Kind: Cl, Size: 8}, nil
	}

	switch {
	case strings.HasPrefix(token, "rel8"):
		return OperandSlot{Kind: Rel8, Size: 8}, nil
	case strings.HasPrefix(token, "rel16"):
		return OperandSlot{Kind: Rel16, Size: 16}, nil
	case strings.HasPrefix(token, "rel32"):
		return OperandSlot{Kind: Rel32, Size: 32}, nil
	}

	return OperandSlot{}, fmt.Errorf("unrecognized operand %q (%q)", token, kindColumn)
}

func operandTokenSize(token string) int {
	switch {
	case token == "AL/AX/EAX/RAX":
		return 64
	case strings.HasSuffix(token, "64") || token == "RAX":
		return 64
	case strings.HasSuffix(token, "32") || token == "EAX":
		return 32
	case strings.HasSuffix(token, "16") || token == "AX":
		return 16
	default:
		return 8
	}
}

// effectiveOperandSize is the width that drives the operand-size
// override policy: the widest non-moffs slot, or the 32-bit mode default
// when the recipe has no sized operands at all.
func effectiveOperandSize(slots []OperandSlot) int {
	size := 0
	for _, s := range slots {
		if s.Kind == Moffs {
			continue
		}
		if s.Size > size {
			size = s.Size
		}
	}
	if size == 0 {
		return 32
	}
	return size
}

func isValidMode(s string) bool {
	return strings.TrimSpace(s) == "Valid"
}

type intelEncoding struct {
	directives []Directive
	rex        RexRequirement
	isNP       bool
}

// relWidths maps the code-offset metadata tokens to their displacement
// widths in bits.
var relWidths = map[string]int{
	"cb": 8, "cw": 16, "cd": 32, "cp": 48, "co": 64, "ct": 80,
}

var immWidths = map[string]int{
	"ib": 8, "iw": 16, "id": 32,
}

// parseOpcodeColumn walks the opcode column as a small token stream:
// optional NP, optional mandatory prefix, optional REX kind, up to three
// hex opcode bytes, an optional +rb/+rw/+rd/+ro embedded-register
// suffix, an optional /r or /0../7 ModR/M marker, and optional trailing
// immediate/offset metadata. Hex bytes must be uppercase; the lowercase
// metadata tokens ("cb", "ib", ...) are therefore never mistaken for
// opcode bytes. Tokens outside the known metadata set are skipped, the
// way the original table generator skips them (64-bit immediates land
// here, and spec-wise they are an acknowledged limitation).
func parseOpcodeColumn(col string, slots []OperandSlot) (intelEncoding, error) {
	tokens := strings.FieldsFunc(col, func(r rune) bool {
		return r == ' ' || r == '+'
	})

	var enc intelEncoding
	i := 0

	if i < len(tokens) && tokens[i] == "NP" {
		enc.isNP = true
		i++
	}

	var mandatoryPrefix byte
	if i+1 < len(tokens) {
		switch tokens[i] {
		case "66":
			mandatoryPrefix, i = 0x66, i+1
		case "F2":
			mandatoryPrefix, i = 0xF2, i+1
		case "F3":
			mandatoryPrefix, i = 0xF3, i+1
		}
	}

	if i < len(tokens) && strings.HasPrefix(tokens[i], "REX") {
		if tokens[i] == "REX.W" {
			enc.rex = RexForcedW
		} else {
			enc.rex = RexForced
		}
		i++
	}

	var opcode []byte
	for i < len(tokens) && len(opcode) < 3 {
		b, ok := hexByte(tokens[i])
		if !ok {
			break
		}
		opcode = append(opcode, b)
		i++
	}
	if len(opcode) == 0 {
		return intelEncoding{}, fmt.Errorf("opcode column %q has no opcode bytes", col)
	}

	embedReg := false
	if i < len(tokens) {
		switch tokens[i] {
		case "rb", "rw", "rd", "ro":
			embedReg = true
			i++
		}
	}

	if mandatoryPrefix != 0 {
		enc.directives = append(enc.directives, Directive{Op: OpPrefix, Bytes: []byte{mandatoryPrefix}})
	}
	if embedReg {
		rdIdx := slotIndex(slots, OpcodeRd)
		if rdIdx < 0 {
			return intelEncoding{}, fmt.Errorf("opcode column %q embeds a register but no operand is opcode+rd", col)
		}
		if len(opcode) > 1 {
			enc.directives = append(enc.directives, Directive{Op: OpOpcode, Bytes: opcode[:len(opcode)-1]})
		}
		enc.directives = append(enc.directives, Directive{
			Op:            OpOpcodeRd,
			Bytes:         opcode[len(opcode)-1:],
			OpcodeOperand: rdIdx,
		})
	} else {
		enc.directives = append(enc.directives, Directive{Op: OpOpcode, Bytes: opcode})
	}

	if i < len(tokens) && strings.HasPrefix(tokens[i], "/") {
		d, err := modrmDirective(tokens[i], slots)
		if err != nil {
			return intelEncoding{}, err
		}
		enc.directives = append(enc.directives, d)
		i++
	}

	for ; i < len(tokens); i++ {
		if width, ok := immWidths[tokens[i]]; ok {
			immIdx := slotIndex(slots, Imm)
			if immIdx < 0 {
				return intelEncoding{}, fmt.Errorf("opcode column %q has %s but no immediate operand", col, tokens[i])
			}
			enc.directives = append(enc.directives, Directive{Op: OpImm, ImmOperand: immIdx, Width: width})
			continue
		}
		if width, ok := relWidths[tokens[i]]; ok {
			relIdx := relSlotIndex(slots)
			if relIdx < 0 {
				return intelEncoding{}, fmt.Errorf("opcode column %q has %s but no relative operand", col, tokens[i])
			}
			enc.directives = append(enc.directives, Directive{Op: OpRel, ImmOperand: relIdx, Width: width})
			continue
		}
	}

	if moffsIdx := slotIndex(slots, Moffs); moffsIdx >= 0 {
		enc.directives = append(enc.directives, Directive{Op: OpMoffsAddr, ImmOperand: moffsIdx, Width: 64})
	}

	return enc, nil
}

func modrmDirective(token string, slots []OperandSlot) (Directive, error) {
	rmIdx := slotIndex(slots, ModRmRegMem)
	regIdx := slotIndex(slots, ModRmReg)

	if token == "/r" {
		if regIdx < 0 || rmIdx < 0 {
			return Directive{}, fmt.Errorf("/r requires both a ModRM:reg and a ModRM:r/m operand")
		}
		return Directive{Op: OpModRM, RegSource: RegFromOperand, RegOperand: regIdx, RmOperand: rmIdx}, nil
	}

	ext, err := strconv.ParseUint(strings.TrimPrefix(token, "/"), 10, 8)
	if err != nil || ext > 7 {
		return Directive{}, fmt.Errorf("bad ModR/M marker %q", token)
	}
	// An opcode-extension form puts its sole register-or-memory operand
	// in the rm field; some rows declare it ModRM:reg rather than
	// ModRM:r/m.
	if rmIdx < 0 {
		rmIdx = regIdx
	}
	if rmIdx < 0 {
		return Directive{}, fmt.Errorf("%s requires a register-or-memory operand", token)
	}
	return Directive{Op: OpModRM, RegSource: RegFromExtension, OpcodeExt: uint8(ext), RmOperand: rmIdx}, nil
}

func hexByte(token string) (byte, bool) {
	if len(token) != 2 || strings.ToUpper(token) != token {
		return 0, false
	}
	v, err := strconv.ParseUint(token, 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func slotIndex(slots []OperandSlot, kind OperandKind) int {
	for i, s := range slots {
		if s.Kind == kind {
			return i
		}
	}
	return -1
}

func relSlotIndex(slots []OperandSlot) int {
	for i, s := range slots {
		switch s.Kind {
		case Rel8, Rel16, Rel32:
			return i
		}
	}
	return -1
}
