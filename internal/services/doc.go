// Package services defines shared utilities consumed by the comparison,
// hashing, and extraction commands.
//
// Key responsibilities:
//   - Context helpers that stamp comparison run IDs, edition names, and stage
//     names so log lines can be correlated across a run.
//   - Structured error markers plus the Wrap helper that classify failures
//     into consistent exit codes (usage problems vs runtime failures).
//
// Use these helpers when wiring new commands so operational behaviour (error
// handling, observability) stays uniform across the tool.
package services
