package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/fileutil"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	WriteBytes(t, path, bytes.Repeat([]byte{0x42}, int(size)))
}

// WriteBytes writes data to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CopyFile duplicates src to dst, creating parent directories.
func CopyFile(t testing.TB, src, dst string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", dst, err)
	}
	if err := fileutil.CopyFileMode(src, dst, 0o644); err != nil {
		t.Fatalf("copy %s: %v", src, err)
	}
}

// NoisyImage returns a deterministic image whose noise resists compression,
// so high-quality encodes are large and low-quality ones shrink noticeably.
func NoisyImage(width, height int, seed uint64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*255/width) ^ uint8(rng.IntN(64)),
				G: uint8(y*255/height) ^ uint8(rng.IntN(64)),
				B: uint8(rng.IntN(256)),
				A: 0xff,
			})
		}
	}
	return img
}

// WriteJPEG encodes a noisy image at quality 100 and returns the bytes written.
func WriteJPEG(t testing.TB, path string, width, height int, seed uint64) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, NoisyImage(width, height, seed), &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	WriteBytes(t, path, buf.Bytes())
	return buf.Bytes()
}

// WritePNG encodes a noisy image without compression and returns the bytes written.
func WritePNG(t testing.TB, path string, width, height int, seed uint64) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, NoisyImage(width, height, seed)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	WriteBytes(t, path, buf.Bytes())
	return buf.Bytes()
}

// WriteRandomFile writes size deterministic pseudo-random bytes, so files
// with different seeds never share a fingerprint.
func WriteRandomFile(t testing.TB, path string, size int64, seed uint64) []byte {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, ^seed))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}
	WriteBytes(t, path, data)
	return data
}
