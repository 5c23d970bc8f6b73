package main

import "github.com/spf13/cobra"

var x8664Cmd = &cobra.Command{
	Use:     "x86_64",
	GroupID: "arch",
	Short:   "x86_64 architecture",
	Long:    `Commands that drive the x86-64 Select/Encode/Fixup/Emit pipeline.`,
}

func init() {
	x8664Cmd.AddGroup(&cobra.Group{
		ID:    "file-operations",
		Title: "File operations",
	})
	x8664Cmd.AddCommand(assembleDemoCmd)
}
