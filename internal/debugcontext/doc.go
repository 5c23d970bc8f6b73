// Package debugcontext provides a passive, append-only data structure that
// accumulates diagnostic entries (errors, warnings, info, traces) as the
// assembler pipeline progresses. It does not perform I/O or formatting —
// a separate renderer consumes the entries to produce output.
//
// The driver tags entries with the pipeline phase that was active when
// they were recorded ("select", "encode", "fixup", "object"), so a
// consumer can tell which stage produced a diagnostic.
package debugcontext
