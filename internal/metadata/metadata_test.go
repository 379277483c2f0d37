package metadata_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/imagefmt"
	"squeeze/internal/metadata"
	"squeeze/internal/services"
	"squeeze/internal/testsupport"
)

func appSegment(marker byte, payload string) []byte {
	seg := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(seg[2:4], uint16(len(payload)+2))
	return append(seg, payload...)
}

// withSegments splices segments right after the SOI of a plain JPEG.
func withSegments(t *testing.T, path string, plain []byte, segments ...[]byte) {
	t.Helper()
	data := append([]byte{}, plain[:2]...)
	for _, seg := range segments {
		data = append(data, seg...)
	}
	data = append(data, plain[2:]...)
	testsupport.WriteBytes(t, path, data)
}

func TestExtractCollectsAppSegments(t *testing.T) {
	dir := t.TempDir()
	plain := testsupport.WriteJPEG(t, filepath.Join(dir, "plain.jpg"), 32, 32, 1)

	exif := appSegment(0xE1, "Exif\x00\x00camera=test")
	icc := appSegment(0xE2, "ICC_PROFILE\x00\x01\x01profile")
	jfif := appSegment(0xE0, "JFIF\x00\x01\x02")
	src := filepath.Join(dir, "tagged.jpg")
	withSegments(t, src, plain, jfif, exif, icc)

	blob, err := metadata.Extract(src, imagefmt.JPEG)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := append(append([]byte{}, exif...), icc...); !bytes.Equal(blob, want) {
		t.Fatalf("blob = %q, want %q", blob, want)
	}
	if got := metadata.Segments(blob); len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
}

func TestExtractWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.jpg")
	testsupport.WriteJPEG(t, path, 16, 16, 2)

	blob, err := metadata.Extract(path, imagefmt.JPEG)
	if err != nil || blob != nil {
		t.Fatalf("expected nil blob, got %q (%v)", blob, err)
	}
	blob, err = metadata.Extract(filepath.Join(dir, "missing.png"), imagefmt.PNG)
	if err != nil || blob != nil {
		t.Fatalf("non-jpeg formats must be skipped, got %q (%v)", blob, err)
	}
}

func TestExtractRejectsNonJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.jpg")
	testsupport.WriteBytes(t, path, []byte("definitely not a jpeg"))

	_, err := metadata.Extract(path, imagefmt.JPEG)
	if !errors.Is(err, metadata.ErrNotJPEG) || !errors.Is(err, services.ErrTransientFile) {
		t.Fatalf("expected ErrNotJPEG, got %v", err)
	}
}

func TestInjectRestoresSegments(t *testing.T) {
	dir := t.TempDir()
	plain := testsupport.WriteJPEG(t, filepath.Join(dir, "plain.jpg"), 48, 48, 3)
	exif := appSegment(0xE1, "Exif\x00\x00original")

	candidate := filepath.Join(dir, "candidate.jpg")
	stale := appSegment(0xE1, "Exif\x00\x00stale")
	jfif := appSegment(0xE0, "JFIF\x00\x01\x02")
	withSegments(t, candidate, plain, jfif, stale)
	if err := os.Chmod(candidate, 0o640); err != nil {
		t.Fatal(err)
	}

	if err := metadata.Inject(candidate, imagefmt.JPEG, exif); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append(append([]byte{0xFF, 0xD8}, jfif...), exif...), plain[2:]...)
	if !bytes.Equal(data, want) {
		t.Fatalf("rewritten candidate does not match expected layout")
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("rewritten candidate no longer decodes: %v", err)
	}
	info, _ := os.Stat(candidate)
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode changed to %v", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestInjectNoops(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	original := testsupport.WriteJPEG(t, path, 16, 16, 4)

	if err := metadata.Inject(path, imagefmt.JPEG, nil); err != nil {
		t.Fatalf("empty blob: %v", err)
	}
	if err := metadata.Inject(path, imagefmt.WEBP, appSegment(0xE1, "Exif")); err != nil {
		t.Fatalf("webp: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, original) {
		t.Fatal("no-op inject modified the file")
	}
}

func TestInjectRejectsMalformedBlob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	original := testsupport.WriteJPEG(t, path, 16, 16, 5)

	for name, blob := range map[string][]byte{
		"truncated":    appSegment(0xE1, "Exif")[:5],
		"wrong marker": appSegment(0xDB, "table"),
	} {
		if err := metadata.Inject(path, imagefmt.JPEG, blob); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, original) {
		t.Fatal("failed inject modified the file")
	}
}
