package codec

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/gen2brain/webp"
	"github.com/puzpuzpuz/xsync/v3"

	"squeeze/internal/fileutil"
	"squeeze/internal/imagefmt"
	"squeeze/internal/services"
)

const (
	fallbackName = "fallback"
	webpMethod   = 6
)

// Fallback re-encodes images in-process. It has no lossy PNG ladder.
//
// A source is decoded once and reused by every quality step until
// ReleaseSource drops it. A cached image is discarded when the file's size
// or modification time no longer match.
type Fallback struct {
	sources *xsync.MapOf[string, decodedSource]
	decode  func(src string, format imagefmt.Format) (image.Image, error)
}

type decodedSource struct {
	format  imagefmt.Format
	size    int64
	modTime time.Time
	img     image.Image
}

// NewFallback returns the in-process encoder.
func NewFallback() *Fallback {
	return &Fallback{
		sources: xsync.NewMapOf[string, decodedSource](),
		decode:  decode,
	}
}

// Name implements Encoder.
func (f *Fallback) Name() string { return fallbackName }

// Convert recompresses PNG sources at the best zlib level.
func (f *Fallback) Convert(ctx context.Context, src string, format imagefmt.Format) (Candidate, error) {
	if format != imagefmt.PNG {
		return Candidate{}, unsupported(fallbackName, "convert", format)
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return f.transcode(ctx, src, format, 0, func(w io.Writer, img image.Image) error {
		return enc.Encode(w, img)
	})
}

// Encode re-encodes JPEG and WEBP sources at quality.
func (f *Fallback) Encode(ctx context.Context, src string, format imagefmt.Format, quality int) (Candidate, error) {
	switch format {
	case imagefmt.JPEG:
		return f.transcode(ctx, src, format, quality, func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		})
	case imagefmt.WEBP:
		return f.transcode(ctx, src, format, quality, func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, webp.Options{Quality: quality, Method: webpMethod})
		})
	default:
		return Candidate{}, unsupported(fallbackName, "encode", format)
	}
}

func (f *Fallback) transcode(ctx context.Context, src string, format imagefmt.Format, quality int, encode func(io.Writer, image.Image) error) (Candidate, error) {
	operation := "encode " + format.String()
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	img, err := f.source(src, format)
	if err != nil {
		return Candidate{}, services.Wrap(services.ErrEncodeFailure, fallbackName, operation, "decode source", err)
	}

	out, err := fileutil.TempSibling(src)
	if err != nil {
		return Candidate{}, services.Wrap(services.ErrTransientFile, fallbackName, operation, "create temp output", err)
	}
	size, err := writeImage(out, img, encode)
	if err != nil {
		_ = fileutil.RemoveQuietly(out)
		return Candidate{}, services.Wrap(services.ErrEncodeFailure, fallbackName, operation, "write candidate", err)
	}
	return Candidate{Path: out, Size: size, Quality: quality, Encoder: fallbackName}, nil
}

// ReleaseSource implements SourceReleaser.
func (f *Fallback) ReleaseSource(src string) {
	f.sources.Delete(src)
}

func (f *Fallback) source(src string, format imagefmt.Format) (image.Image, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if cached, ok := f.sources.Load(src); ok &&
		cached.format == format && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.img, nil
	}
	img, err := f.decode(src, format)
	if err != nil {
		f.sources.Delete(src)
		return nil, err
	}
	f.sources.Store(src, decodedSource{format: format, size: info.Size(), modTime: info.ModTime(), img: img})
	return img, nil
}

func decode(src string, format imagefmt.Format) (image.Image, error) {
	file, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	switch format {
	case imagefmt.JPEG:
		return jpeg.Decode(r)
	case imagefmt.PNG:
		return png.Decode(r)
	case imagefmt.WEBP:
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("no decoder for %s", format)
	}
}

func writeImage(path string, img image.Image, encode func(io.Writer, image.Image) error) (int64, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(file)
	if err := encode(w, img); err != nil {
		_ = file.Close()
		return 0, err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return 0, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return 0, err
	}
	return info.Size(), file.Close()
}
