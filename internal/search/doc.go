// Package search runs the adaptive quality ladder for one file against one
// encoder and decides which candidate, if any, replaces the original.
package search
