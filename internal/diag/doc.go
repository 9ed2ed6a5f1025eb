// Package diag defines the diagnostic model shared by the lowering passes,
// the driver and the CLI.
//
// Diagnostic is the central record: Severity, a compact numeric Code with a
// stable string form (LOW4xxx for lowering, IO5xxx for input/output, CFG6xxx
// for configuration), a Message, a Primary span and optional Notes.
//
// Passes emit through a Reporter so emission stays decoupled from storage.
// ReportBuilder (ReportError / ReportWarning) chains WithNote before Emit;
// BagReporter collects into a Bag which supports sorting, deduplication and a
// size limit. DedupReporter wraps another Reporter and drops repeats.
//
// Rendering lives in internal/diagfmt.
package diag
