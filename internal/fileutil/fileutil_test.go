package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileMode(src, dst, 0o600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %o, want 600", info.Mode().Perm())
	}
}

func TestTempSiblingNaming(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "photo.jpg")

	tmp, err := TempSibling(target)
	if err != nil {
		t.Fatalf("TempSibling: %v", err)
	}
	if filepath.Dir(tmp) != dir {
		t.Fatalf("expected sibling in %s, got %s", dir, tmp)
	}
	base := filepath.Base(tmp)
	if !strings.HasPrefix(base, ".photo.jpg.squeeze-") || !IsTempName(base) {
		t.Fatalf("unexpected temp name %q", base)
	}
	if IsTempName("photo.jpg") || IsTempName(".hidden.jpg") {
		t.Fatal("regular names must not be treated as temp files")
	}
}

func TestReplaceFilePreservesMode(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(target, []byte("original"), 0o640); err != nil {
		t.Fatal(err)
	}
	tmp, err := TempSibling(target)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tmp, []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := ReplaceFile(tmp, target); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("content = %q", got)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %o, want 640", info.Mode().Perm())
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatal("expected temp file to be consumed")
	}
}

func TestReplaceFileMissingTarget(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, "tmp")
	if err := os.WriteFile(tmp, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceFile(tmp, filepath.Join(dir, "gone.jpg")); err == nil {
		t.Fatal("expected error when target is missing")
	}
}

func TestRemoveQuietly(t *testing.T) {
	if err := RemoveQuietly(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("expected nil for missing file, got %v", err)
	}
	if err := RemoveQuietly(""); err != nil {
		t.Fatal(err)
	}
}
