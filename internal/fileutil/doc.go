// Package fileutil holds the small filesystem primitives the pipeline relies
// on: hidden temporary siblings for candidates and atomic, mode-preserving
// replacement of originals.
package fileutil
