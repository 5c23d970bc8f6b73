// Command ras is the assembler library's driver CLI: a thin shell around
// pkg/assembler that exercises the Select → Encode → Fixup → Emit
// pipeline spec.md §2 describes. The CLI itself is explicitly out of
// scope per spec.md §1 ("a thin driver/CLI"); this package exists only
// to give the pipeline a runnable entry point, grounded on the teacher's
// own cobra-based command tree (cmd/cli/cmd/root.go, x86_64.go).
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ras",
	Short: "ras is an x86-64 assembler library driver",
	Long:  `ras drives the instruction-selection and encoding pipeline: select a recipe, encode it, resolve fixups, emit an ELF object.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "arch",
		Title: "Architectures",
	})
	rootCmd.AddCommand(x8664Cmd)
}
