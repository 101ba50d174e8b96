package main

import (
	"encoding/json"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type fdWriter interface {
	Fd() uintptr
}

// isInteractive reports whether f is attached to a terminal.
func isInteractive(f any) bool {
	fw, ok := f.(fdWriter)
	if !ok {
		return false
	}
	fd := fw.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stdoutIsTTY reports whether the command writes to a terminal; table output is only used then.
func stdoutIsTTY(cmd *cobra.Command) bool {
	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok {
		return isInteractive(f)
	}
	return false
}
