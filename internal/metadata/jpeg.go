package metadata

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerAPP0   = 0xE0
	markerAPP1   = 0xE1
	markerAPP2   = 0xE2
	markerTEM    = 0x01
	markerRST0   = 0xD0
	markerRST7   = 0xD7
)

// ErrNotJPEG reports input that does not start with a JPEG SOI marker.
var ErrNotJPEG = errors.New("not a jpeg stream")

type segment struct {
	marker byte
	raw    []byte // marker, length and payload
}

// standalone markers carry no length field.
func standalone(marker byte) bool {
	return marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7) || marker == markerSOI || marker == markerEOI
}

// readHeader returns the segments preceding the first SOS (or EOI) marker and
// that marker. The reader is left positioned just after it.
func readHeader(r *bufio.Reader) ([]segment, byte, error) {
	var soi [2]byte
	if _, err := io.ReadFull(r, soi[:]); err != nil {
		return nil, 0, fmt.Errorf("read soi: %w", err)
	}
	if soi[0] != markerPrefix || soi[1] != markerSOI {
		return nil, 0, ErrNotJPEG
	}

	var segments []segment
	for {
		marker, err := nextMarker(r)
		if err != nil {
			return nil, 0, err
		}
		if marker == markerSOS || marker == markerEOI {
			return segments, marker, nil
		}
		if standalone(marker) {
			segments = append(segments, segment{marker: marker, raw: []byte{markerPrefix, marker}})
			continue
		}
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, 0, fmt.Errorf("read segment length: %w", err)
		}
		length := int(binary.BigEndian.Uint16(lenBuf[:]))
		if length < 2 {
			return nil, 0, fmt.Errorf("segment %#x has invalid length %d", marker, length)
		}
		raw := make([]byte, 2+length)
		raw[0], raw[1] = markerPrefix, marker
		copy(raw[2:4], lenBuf[:])
		if _, err := io.ReadFull(r, raw[4:]); err != nil {
			return nil, 0, fmt.Errorf("read segment %#x: %w", marker, err)
		}
		segments = append(segments, segment{marker: marker, raw: raw})
	}
}

// nextMarker skips fill bytes and returns the marker code.
func nextMarker(r *bufio.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read marker: %w", err)
	}
	if b != markerPrefix {
		return 0, fmt.Errorf("expected marker, found %#x", b)
	}
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read marker: %w", err)
		}
		if b != markerPrefix {
			return b, nil
		}
	}
}

func preserved(marker byte) bool {
	return marker == markerAPP1 || marker == markerAPP2
}
