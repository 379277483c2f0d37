package metadata

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"squeeze/internal/fileutil"
	"squeeze/internal/imagefmt"
	"squeeze/internal/services"
)

const component = "metadata"

// Extract returns the raw APP1 (Exif, XMP) and APP2 (ICC) segments of a JPEG
// in file order. Formats whose tools keep metadata themselves, and JPEGs
// without such segments, yield nil.
func Extract(path string, format imagefmt.Format) ([]byte, error) {
	if format != imagefmt.JPEG {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientFile, component, "extract", path, err)
	}
	defer file.Close()

	segments, _, err := readHeader(bufio.NewReader(file))
	if err != nil {
		return nil, services.Wrap(services.ErrTransientFile, component, "extract", path, err)
	}
	var blob []byte
	for _, seg := range segments {
		if preserved(seg.marker) {
			blob = append(blob, seg.raw...)
		}
	}
	return blob, nil
}

// Inject replaces the APP1/APP2 segments of the JPEG at path with blob,
// placing them after SOI and any APP0 (JFIF) segments. The rewrite goes
// through a temp sibling and an atomic rename. An empty blob or a non-JPEG
// format is a no-op.
func Inject(path string, format imagefmt.Format, blob []byte) error {
	if format != imagefmt.JPEG || len(blob) == 0 {
		return nil
	}
	if err := validateBlob(blob); err != nil {
		return services.Wrap(services.ErrTransientFile, component, "inject", "invalid metadata blob", err)
	}

	tmp, err := fileutil.TempSibling(path)
	if err != nil {
		return services.Wrap(services.ErrTransientFile, component, "inject", "create temp file", err)
	}
	if err := rewrite(path, tmp, blob); err != nil {
		_ = fileutil.RemoveQuietly(tmp)
		return services.Wrap(services.ErrTransientFile, component, "inject", path, err)
	}
	if err := fileutil.ReplaceFile(tmp, path); err != nil {
		_ = fileutil.RemoveQuietly(tmp)
		return services.Wrap(services.ErrTransientFile, component, "inject", "replace candidate", err)
	}
	return nil
}

func rewrite(src, dst string, blob []byte) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	r := bufio.NewReader(in)
	segments, stop, err := readHeader(r)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)

	header := []byte{markerPrefix, markerSOI}
	i := 0
	for ; i < len(segments) && segments[i].marker == markerAPP0; i++ {
		header = append(header, segments[i].raw...)
	}
	header = append(header, blob...)
	for _, seg := range segments[i:] {
		if !preserved(seg.marker) {
			header = append(header, seg.raw...)
		}
	}
	header = append(header, markerPrefix, stop)

	if _, err := w.Write(header); err != nil {
		_ = out.Close()
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// validateBlob checks that blob is a sequence of complete APP1/APP2 segments.
func validateBlob(blob []byte) error {
	for rest := blob; len(rest) > 0; {
		if len(rest) < 4 || rest[0] != markerPrefix {
			return errors.New("truncated segment")
		}
		if !preserved(rest[1]) {
			return fmt.Errorf("unexpected marker %#x", rest[1])
		}
		length := int(binary.BigEndian.Uint16(rest[2:4]))
		if length < 2 || len(rest) < 2+length {
			return errors.New("segment length out of range")
		}
		rest = rest[2+length:]
	}
	return nil
}

// Segments splits a blob produced by Extract into its raw segments. A
// malformed tail is dropped.
func Segments(blob []byte) [][]byte {
	var out [][]byte
	for rest := blob; len(rest) >= 4 && rest[0] == markerPrefix; {
		length := int(binary.BigEndian.Uint16(rest[2:4]))
		if length < 2 || len(rest) < 2+length {
			break
		}
		out = append(out, rest[:2+length])
		rest = rest[2+length:]
	}
	return out
}
