// Package logs reads the per-run log files squeeze writes to its log
// directory.
//
// Latest finds the newest run log, LastLines returns its trailing lines with
// bounded memory, and Follow streams lines appended afterwards until the
// caller's context ends. `squeeze logs` is built on these helpers.
package logs
