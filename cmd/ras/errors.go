package main

import (
	"errors"

	"github.com/gabi-250/ras/internal/parseerr"
	"github.com/gabi-250/ras/internal/symtab"
	"github.com/gabi-250/ras/pkg/assembler"
	"github.com/spf13/cobra"
)

// printErr renders a pipeline failure, switching on the concrete error
// types the driver and an eventual external parser can produce, per
// spec.md §7's "every failure is one of these named types" contract.
// Parser errors are included even though this CLI never constructs a
// *parseerr.List itself: the type switch is the pass-through contract a
// real parser plugs into ahead of pkg/assembler, documented by exercising
// it here rather than leaving it unreferenced.
func printErr(cmd *cobra.Command, err error) {
	var parseList *parseerr.List
	var parseOne *parseerr.Error
	var encErr *assembler.EncodingError
	var dup *symtab.DuplicateLabelError
	var undef *symtab.UndefinedSymbolsError

	switch {
	case errors.As(err, &parseList):
		for _, e := range parseList.Errors {
			cmd.PrintErrf("line %d: %s\n", e.Line, e.Err)
		}
	case errors.As(err, &parseOne):
		cmd.PrintErrln("parse error:", parseOne)
	case errors.As(err, &encErr):
		cmd.PrintErrf("item %d: %s\n", encErr.Index, encErr.Err)
	case errors.As(err, &dup):
		cmd.PrintErrln("duplicate label:", dup.ID)
	case errors.As(err, &undef):
		cmd.PrintErrln(undef.Error())
	default:
		cmd.PrintErrln("error:", err)
	}
}
