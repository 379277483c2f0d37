// Package preflight provides the startup checks a run depends on: the
// processing root and store location must be writable and, unless the
// in-process fallback is enabled, every configured encoder must resolve.
//
// The CLI "squeeze check" command renders RunAll as a table; "squeeze run"
// calls Verify and aborts before touching any file when it fails.
package preflight
