package imagefmt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Format tags a supported image encoding.
type Format string

// Supported formats.
const (
	Unknown Format = ""
	JPEG    Format = "jpeg"
	PNG     Format = "png"
	WEBP    Format = "webp"
)

// headerSize covers every magic number filetype inspects.
const headerSize = 262

func (f Format) String() string {
	if f == Unknown {
		return "unknown"
	}
	return string(f)
}

// Parse maps a configuration or CLI value to a Format.
func Parse(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WEBP, nil
	default:
		return Unknown, fmt.Errorf("unsupported image format %q", value)
	}
}

// FromExtension classifies path by its extension, case-insensitively.
func FromExtension(path string) (Format, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return Unknown, false
	}
	f, err := Parse(ext)
	if err != nil {
		return Unknown, false
	}
	return f, true
}

// Detect sniffs the file's magic bytes, falling back to the extension when
// the header is not recognised as a supported image.
func Detect(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer file.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, fmt.Errorf("read header: %w", err)
	}
	if f := Sniff(head[:n]); f != Unknown {
		return f, nil
	}
	if f, ok := FromExtension(path); ok {
		return f, nil
	}
	return Unknown, fmt.Errorf("unrecognised image format: %s", filepath.Base(path))
}

// Sniff classifies a header buffer by magic number.
func Sniff(head []byte) Format {
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return Unknown
	}
	f, err := Parse(kind.Extension)
	if err != nil {
		return Unknown
	}
	return f
}
