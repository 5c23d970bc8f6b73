package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
)

// Ingest reads the repository's curated instruction-table CSV and returns
// the decoded set of recipes, in row order. Unlike the Intel
// instruction-summary layout IngestIntel handles, each row here names its
// encoding Shape directly instead of leaving it to be re-derived from
// free-text operand and opcode columns, which keeps the embedded table
// reviewable byte for byte.
//
// Columns: Mnemonic,Opcode,OpcodeExt,OperandSize,Rex,Shape,
//          Op1Kind,Op1Size,Op2Kind,Op2Size,Op3Kind,Op3Size
func Ingest(r io.Reader) ([]EncodingRecipe, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: reading header: %w", err)
	}
	if len(header) < 12 {
		return nil, fmt.Errorf("catalog: expected 12 columns, got %d", len(header))
	}

	var recipes []EncodingRecipe
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: reading row: %w", err)
		}
		recipe, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("catalog: row %v: %w", row, err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func parseRow(row []string) (EncodingRecipe, error) {
	mnem, ok := mnemonic.Parse(strings.TrimSpace(row[0]))
	if !ok {
		return EncodingRecipe{}, fmt.Errorf("unknown mnemonic %q", row[0])
	}

	opcode, err := parseOpcode(row[1])
	if err != nil {
		return EncodingRecipe{}, err
	}

	var ext uint8
	hasExt := strings.TrimSpace(row[2]) != ""
	if hasExt {
		v, err := strconv.ParseUint(strings.TrimSpace(row[2]), 10, 8)
		if err != nil {
			return EncodingRecipe{}, fmt.Errorf("bad opcode extension %q: %w", row[2], err)
		}
		ext = uint8(v)
	}

	operandSize, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return EncodingRecipe{}, fmt.Errorf("bad operand size %q: %w", row[3], err)
	}

	rex, err := parseRex(row[4])
	if err != nil {
		return EncodingRecipe{}, err
	}

	shape := strings.TrimSpace(row[5])

	var slots []OperandSlot
	for _, pair := range [][2]string{{row[6], row[7]}, {row[8], row[9]}, {row[10], row[11]}} {
		kindStr, sizeStr := strings.TrimSpace(pair[0]), strings.TrimSpace(pair[1])
		if kindStr == "" {
			continue
		}
		kind, err := parseOperandKind(kindStr)
		if err != nil {
			return EncodingRecipe{}, err
		}
		size := operandSize
		if sizeStr != "" {
			size, err = strconv.Atoi(sizeStr)
			if err != nil {
				return EncodingRecipe{}, fmt.Errorf("bad operand width %q: %w", sizeStr, err)
			}
		}
		slots = append(slots, OperandSlot{Kind: kind, Size: size})
	}

	directives, err := buildDirectives(shape, opcode, ext, hasExt, slots)
	if err != nil {
		return EncodingRecipe{}, err
	}

	return EncodingRecipe{
		Mnemonic:    mnem,
		Operands:    slots,
		OperandSize: operandSize,
		Rex:         rex,
		// The embedded table is a long-mode table: it has no
		// mode-validity columns, and every row was chosen against
		// long-mode encodings. Rows valid in other modes too get
		// their full sets from the Intel-summary ingester instead.
		Modes:      ModesOf(mode.Long),
		Directives: directives,
	}, nil
}

func parseOpcode(s string) ([]byte, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 3 {
		return nil, fmt.Errorf("opcode %q must have 1 to 3 bytes", s)
	}
	out := make([]byte, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad opcode byte %q: %w", f, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func parseRex(s string) (RexRequirement, error) {
	switch strings.TrimSpace(s) {
	case "", "-":
		return RexNotForced, nil
	case "forced":
		return RexForced, nil
	case "W":
		return RexForcedW, nil
	default:
		return 0, fmt.Errorf("unknown rex requirement %q", s)
	}
}

func parseOperandKind(s string) (OperandKind, error) {
	switch s {
	case "reg":
		return ModRmReg, nil
	case "rm":
		return ModRmRegMem, nil
	case "imm":
		return Imm, nil
	case "moffs":
		return Moffs, nil
	case "al":
		return Al, nil
	case "rd":
		return OpcodeRd, nil
	case "rel32":
		return Rel32, nil
	case "one":
		return One, nil
	case "cl":
		return Cl, nil
	default:
		return 0, fmt.Errorf("unknown operand kind %q", s)
	}
}

// buildDirectives expands a named Shape into its concrete directive
// sequence. Operand indices refer to slots in the order they appear in
// the CSV row (and therefore in the assembled EncodingRecipe.Operands).
func buildDirectives(shape string, opcode []byte, ext uint8, hasExt bool, slots []OperandSlot) ([]Directive, error) {
	op := Directive{Op: OpOpcode, Bytes: opcode}

	switch shape {
	case "zero":
		return []Directive{op}, nil

	case "rd":
		return []Directive{{Op: OpOpcodeRd, Bytes: opcode, OpcodeOperand: 0}}, nil

	case "rd_imm":
		return []Directive{
			{Op: OpOpcodeRd, Bytes: opcode, OpcodeOperand: 0},
			{Op: OpImm, ImmOperand: 1, Width: slots[1].Size},
		}, nil

	case "modrm_reg_rm":
		return []Directive{op, {Op: OpModRM, RegSource: RegFromOperand, RegOperand: 0, RmOperand: 1}}, nil

	case "modrm_rm_reg":
		return []Directive{op, {Op: OpModRM, RegSource: RegFromOperand, RegOperand: 1, RmOperand: 0}}, nil

	case "modrm_ext_rm":
		if !hasExt {
			return nil, fmt.Errorf("shape %q requires an opcode extension", shape)
		}
		return []Directive{op, {Op: OpModRM, RegSource: RegFromExtension, OpcodeExt: ext, RmOperand: 0}}, nil

	case "modrm_ext_rm_imm":
		if !hasExt {
			return nil, fmt.Errorf("shape %q requires an opcode extension", shape)
		}
		immIdx := len(slots) - 1
		return []Directive{
			op,
			{Op: OpModRM, RegSource: RegFromExtension, OpcodeExt: ext, RmOperand: 0},
			{Op: OpImm, ImmOperand: immIdx, Width: slots[immIdx].Size},
		}, nil

	case "al_imm":
		immIdx := len(slots) - 1
		return []Directive{op, {Op: OpImm, ImmOperand: immIdx, Width: slots[immIdx].Size}}, nil

	case "imm_only":
		return []Directive{op, {Op: OpImm, ImmOperand: 0, Width: slots[0].Size}}, nil

	case "rel32":
		return []Directive{op, {Op: OpRel, ImmOperand: 0, Width: 32}}, nil

	case "moffs_store":
		// AL/AX/EAX/RAX -> moffs: accumulator implicit, address operand second.
		return []Directive{op, {Op: OpMoffsAddr, ImmOperand: 1, Width: 64}}, nil

	case "moffs_load":
		// moffs -> AL/AX/EAX/RAX: accumulator implicit, address operand first.
		return []Directive{op, {Op: OpMoffsAddr, ImmOperand: 0, Width: 64}}, nil

	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}
}
