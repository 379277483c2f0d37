package hashing_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/hashing"
	"squeeze/internal/services"
)

func TestHashFileKnownDigests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		algorithm string
		want      hashing.Fingerprint
	}{
		{"sha256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"blake3", "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85"},
		{"", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tc := range tests {
		t.Run(tc.algorithm, func(t *testing.T) {
			h, err := hashing.New(tc.algorithm)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got, err := h.HashFile(context.Background(), path)
			if err != nil {
				t.Fatalf("HashFile: %v", err)
			}
			if got != tc.want {
				t.Fatalf("digest = %s, want %s", got, tc.want)
			}
			if !hashing.Valid(got.String()) {
				t.Fatalf("digest %s reported invalid", got)
			}
		})
	}
}

func TestHashFileStreamsLargeInputs(t *testing.T) {
	h, err := hashing.New("sha256")
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Repeat([]byte{0x5a}, 3*hashing.BlockSize+17)
	path := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	fromFile, err := h.HashFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	fromReader, err := h.HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if fromFile != fromReader {
		t.Fatalf("file and reader digests differ: %s vs %s", fromFile, fromReader)
	}
}

func TestHashFileMissingIsTransient(t *testing.T) {
	h, _ := hashing.New("sha256")
	_, err := h.HashFile(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if !errors.Is(err, services.ErrTransientFile) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("missing file must not be fatal")
	}
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := hashing.New("md5"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad": true,
		"BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD": false,
		"abc": false,
		"":    false,
	}
	for value, want := range cases {
		if got := hashing.Valid(value); got != want {
			t.Errorf("Valid(%q) = %v, want %v", value, got, want)
		}
	}
}
