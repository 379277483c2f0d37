package dedup

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// PathSet is an ordered set of root-relative, slash-separated file paths.
// The zero value is an empty set.
type PathSet []string

// NewPathSet builds a set from paths, dropping duplicates.
func NewPathSet(paths ...string) PathSet {
	set := make(PathSet, 0, len(paths))
	for _, p := range paths {
		set, _ = set.Add(p)
	}
	return set
}

// Contains reports whether p is a member.
func (s PathSet) Contains(p string) bool {
	_, found := slices.BinarySearch(s, p)
	return found
}

// Add returns the set with p inserted and whether it changed.
func (s PathSet) Add(p string) (PathSet, bool) {
	idx, found := slices.BinarySearch(s, p)
	if found {
		return s, false
	}
	return slices.Insert(slices.Clone(s), idx, p), true
}

// Remove returns the set without p and whether it changed.
func (s PathSet) Remove(p string) (PathSet, bool) {
	idx, found := slices.BinarySearch(s, p)
	if !found {
		return s, false
	}
	return slices.Delete(slices.Clone(s), idx, idx+1), true
}

// Equal reports whether both sets hold the same members.
func (s PathSet) Equal(other PathSet) bool {
	return slices.Equal(s, other)
}

// encode joins the members with NUL, which cannot occur in a path.
func (s PathSet) encode() []byte {
	return []byte(strings.Join(s, "\x00"))
}

func decodePathSet(data []byte) (PathSet, error) {
	if len(data) == 0 {
		return nil, errors.New("empty path set")
	}
	parts := bytes.Split(data, []byte{0})
	set := make(PathSet, 0, len(parts))
	for _, part := range parts {
		if len(part) == 0 {
			return nil, errors.New("empty path in path set")
		}
		set = append(set, string(part))
	}
	if !slices.IsSorted(set) {
		slices.Sort(set)
	}
	return slices.Compact(set), nil
}

// NormalizePath converts a root-relative path into the stored slash form.
// Absolute paths, parent escapes and NUL bytes are rejected.
func NormalizePath(rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty path")
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("path %q contains NUL", rel)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q is absolute", rel)
	}
	cleaned := path.Clean(filepath.ToSlash(rel))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes the root", rel)
	}
	return cleaned, nil
}
