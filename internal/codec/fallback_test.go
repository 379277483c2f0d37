package codec_test

import (
	"context"
	"errors"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gen2brain/webp"

	"squeeze/internal/codec"
	"squeeze/internal/imagefmt"
	"squeeze/internal/testsupport"
)

func TestFallbackJPEGLowersSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	original := testsupport.WriteJPEG(t, src, 256, 256, 1)

	fb := codec.NewFallback()
	cand, err := fb.Encode(context.Background(), src, imagefmt.JPEG, 50)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	defer cand.Discard()

	if cand.Size >= int64(len(original)) {
		t.Fatalf("expected q50 candidate (%d) to be smaller than q100 original (%d)", cand.Size, len(original))
	}
	if cand.Quality != 50 || cand.Encoder != "fallback" {
		t.Fatalf("unexpected candidate %+v", cand)
	}
	f, err := os.Open(cand.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := jpeg.Decode(f); err != nil {
		t.Fatalf("candidate is not a JPEG: %v", err)
	}
}

func TestFallbackWEBPRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "image.webp")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := webp.Encode(f, testsupport.NoisyImage(96, 96, 2), webp.Options{Quality: 100}); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	info, _ := os.Stat(src)

	cand, err := codec.NewFallback().Encode(context.Background(), src, imagefmt.WEBP, 40)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	defer cand.Discard()
	if cand.Size <= 0 || cand.Size >= info.Size() {
		t.Fatalf("expected smaller webp candidate, got %d vs %d", cand.Size, info.Size())
	}
	if format, err := imagefmt.Detect(cand.Path); err != nil || format != imagefmt.WEBP {
		t.Fatalf("candidate detected as %v (%v)", format, err)
	}
}

func TestFallbackPNGConvertOnly(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "shot.png")
	original := testsupport.WritePNG(t, src, 128, 128, 3)

	fb := codec.NewFallback()
	cand, err := fb.Convert(context.Background(), src, imagefmt.PNG)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	defer cand.Discard()
	if cand.Size >= int64(len(original)) {
		t.Fatalf("expected best compression (%d) below uncompressed (%d)", cand.Size, len(original))
	}
	out, err := os.Open(cand.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	if _, err := png.Decode(out); err != nil {
		t.Fatalf("candidate is not a PNG: %v", err)
	}

	if _, err := fb.Encode(context.Background(), src, imagefmt.PNG, 80); !errors.Is(err, codec.ErrUnsupported) {
		t.Fatalf("expected PNG ladder to be unsupported, got %v", err)
	}
}

func TestFallbackCorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	testsupport.WriteFile(t, src, 2048)

	_, err := codec.NewFallback().Encode(context.Background(), src, imagefmt.JPEG, 80)
	if !errors.Is(err, codec.ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the source to remain, got %d entries", len(entries))
	}
}
