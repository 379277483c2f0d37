package imagefmt

import (
	"os"
	"path/filepath"
	"testing"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}
	webpMagic = []byte{'R', 'I', 'F', 'F', 0x24, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P', 'V', 'P', '8', ' '}
)

func TestFromExtension(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"a.jpg", JPEG, true},
		{"a.JPEG", JPEG, true},
		{"dir/b.Png", PNG, true},
		{"c.webp", WEBP, true},
		{"d.gif", Unknown, false},
		{"noext", Unknown, false},
	}
	for _, tc := range tests {
		got, ok := FromExtension(tc.path)
		if got != tc.want || ok != tc.ok {
			t.Errorf("FromExtension(%q) = %v,%v want %v,%v", tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDetectPrefersMagicBytes(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		name string
		head []byte
		want Format
	}{
		"jpeg":           {"photo.jpg", jpegMagic, JPEG},
		"png":            {"image.png", pngMagic, PNG},
		"webp":           {"image.webp", webpMagic, WEBP},
		"mislabelled":    {"actually-png.jpg", pngMagic, PNG},
		"extension only": {"opaque.webp", []byte("not an image header"), WEBP},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name)
			if err := os.WriteFile(path, tc.head, 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := Detect(path)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Detect = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Detect(path); err == nil {
		t.Fatal("expected error for unsupported file")
	}
	if _, err := Detect(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
