package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"squeeze/internal/services"
)

// Supported digest algorithms.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmBLAKE3 = "blake3"
)

// BlockSize is the read granularity used when streaming file contents.
const BlockSize = 64 * 1024

// Fingerprint is the lowercase hex digest of a file's bytes.
type Fingerprint string

// String returns the hex form.
func (f Fingerprint) String() string { return string(f) }

// Short returns an abbreviated form for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Valid reports whether value is a well-formed 64-character lowercase hex digest.
func Valid(value string) bool {
	if len(value) != 64 {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// Hasher computes content fingerprints with a fixed algorithm.
type Hasher struct {
	algorithm string
}

// New returns a Hasher for algorithm. An empty name selects sha256.
func New(algorithm string) (*Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}
	if _, err := newDigest(algorithm); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "hashing", "select algorithm", err.Error(), nil)
	}
	return &Hasher{algorithm: algorithm}, nil
}

// Algorithm returns the digest name bound to the hasher.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

func newDigest(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// HashFile streams path through the digest in BlockSize reads. Missing or
// unreadable files yield errors marked services.ErrTransientFile.
func (h *Hasher) HashFile(ctx context.Context, path string) (Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransientFile, "hashing", "open", path, err)
	}
	defer f.Close()

	fp, err := h.HashReader(f)
	if err != nil {
		return "", services.Wrap(services.ErrTransientFile, "hashing", "read", path, err)
	}
	return fp, nil
}

// HashReader digests everything r yields.
func (h *Hasher) HashReader(r io.Reader) (Fingerprint, error) {
	digest, err := newDigest(h.algorithm)
	if err != nil {
		return "", err
	}
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(digest, readerOnly{r}, buf); err != nil {
		return "", err
	}
	return Fingerprint(hex.EncodeToString(digest.Sum(nil))), nil
}

// readerOnly hides WriterTo so CopyBuffer honours the block size.
type readerOnly struct{ io.Reader }
