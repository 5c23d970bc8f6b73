package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gabi-250/ras/internal/debugcontext"
	"github.com/gabi-250/ras/internal/mnemonic"
	"github.com/gabi-250/ras/internal/mode"
	"github.com/gabi-250/ras/internal/operand"
	"github.com/gabi-250/ras/internal/register"
	"github.com/gabi-250/ras/internal/symtab"
	"github.com/gabi-250/ras/pkg/assembler"
	"github.com/spf13/cobra"
)

var (
	demoOutPath string
	demoMode    string
	demoExterns []string
)

var assembleDemoCmd = &cobra.Command{
	Use:     "assemble-demo",
	GroupID: "file-operations",
	Short:   "Assemble a fixed demonstration program and write an ELF object",
	Long: `assemble-demo builds a short, hand-written instruction stream in Go
(the parser that would normally turn AT&T-syntax source text into this
stream is out of this library's scope, per spec.md §1) and runs it
through the full Select → Encode → Fixup → Emit pipeline, writing the
resulting ELF64 object to --out.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAssembleDemo(cmd); err != nil {
			printErr(cmd, err)
			os.Exit(1)
		}
	},
}

func init() {
	assembleDemoCmd.Flags().StringVar(&demoOutPath, "out", "demo.o", "output path for the ELF object")
	assembleDemoCmd.Flags().StringVarP(&demoMode, "mode", "m", "long", "processor mode: real, protected, or long (the embedded instruction table is long-mode)")
	assembleDemoCmd.Flags().StringSliceVar(&demoExterns, "extern", nil, "symbols to pre-declare global; their branch fixups are left zeroed for the linker instead of failing as undefined")
}

// demoProgram returns the instruction stream exercised by assemble-demo:
// a loop body that decrements ECX and jumps back to its own label,
// followed by a register-clearing XOR and a RET.
func demoProgram() []assembler.Item {
	return []assembler.Item{
		assembler.Instruction(mnemonic.MOV, operand.FromRegister(register.ECX), operand.FromImmediate(operand.NewImm32(10))),
		assembler.Label("loop"),
		assembler.Instruction(mnemonic.DEC, operand.FromRegister(register.ECX)),
		assembler.Instruction(mnemonic.CMP, operand.FromRegister(register.ECX), operand.FromImmediate(operand.NewImm32(0))),
		assembler.Instruction(mnemonic.JNZ, operand.FromMemory(operand.NewRelativeLabel("loop"))),
		assembler.Instruction(mnemonic.XOR, operand.FromRegister(register.RAX), operand.FromRegister(register.RAX)),
		assembler.Instruction(mnemonic.RET),
	}
}

func runAssembleDemo(cmd *cobra.Command) error {
	m, ok := mode.Parse(demoMode)
	if !ok {
		return fmt.Errorf("unknown mode %q", demoMode)
	}

	d, err := assembler.New(m)
	if err != nil {
		return fmt.Errorf("constructing driver: %w", err)
	}

	debugCtx := debugcontext.NewDebugContext(demoOutPath)
	d.WithDebugContext(debugCtx)

	for _, sym := range demoExterns {
		d.DeclareSymbol(sym, symtab.Quad, symtab.Global)
	}

	if err := d.Run(demoProgram()); err != nil {
		for _, e := range debugCtx.Errors() {
			cmd.PrintErrln(e.String())
		}
		return fmt.Errorf("assembling demo program: %w", err)
	}

	var obj bytes.Buffer
	if err := d.WriteObject(&obj); err != nil {
		return fmt.Errorf("writing object: %w", err)
	}

	if err := os.WriteFile(demoOutPath, obj.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", demoOutPath, err)
	}

	cmd.Printf("wrote %d bytes of .text (%d bytes object) to %s\n", len(d.Text()), obj.Len(), demoOutPath)
	return nil
}
