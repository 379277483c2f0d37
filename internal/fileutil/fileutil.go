package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempMarker is embedded in the names of every temporary sibling squeeze creates.
const TempMarker = ".squeeze-"

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// TempSibling creates an empty hidden file next to path named
// ".<base>.squeeze-*.tmp" and returns its name. The caller owns removal.
func TempSibling(path string) (string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+TempMarker+"*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp sibling: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp sibling: %w", err)
	}
	return name, nil
}

// IsTempName reports whether a base name belongs to a squeeze temporary file.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, TempMarker) && strings.HasSuffix(name, ".tmp")
}

// ReplaceFile atomically moves replacement over target, carrying over the
// target's permission bits. Both paths must be on the same filesystem.
func ReplaceFile(replacement, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}
	if err := os.Chmod(replacement, info.Mode().Perm()); err != nil {
		return fmt.Errorf("preserve mode: %w", err)
	}
	f, err := os.Open(replacement)
	if err != nil {
		return fmt.Errorf("open replacement: %w", err)
	}
	syncErr := f.Sync()
	_ = f.Close()
	if syncErr != nil {
		return fmt.Errorf("sync replacement: %w", syncErr)
	}
	if err := os.Rename(replacement, target); err != nil {
		return fmt.Errorf("rename replacement: %w", err)
	}
	return nil
}

// RemoveQuietly deletes path, ignoring a missing file.
func RemoveQuietly(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
