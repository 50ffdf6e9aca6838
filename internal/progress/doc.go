// Package progress reports long-running work either as a terminal progress
// bar or, when output is not a terminal, as log lines sampled every ten
// percent.
package progress
