// Package logging assembles the slog loggers used by the cutdiff CLI.
//
// It owns the console and JSON handlers, maps configuration onto levels and
// output files, and tags log lines with run, edition, and stage identifiers
// carried on the context. A no-op logger is provided for tests and for
// packages constructed without one.
package logging
