package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"squeeze/internal/hashing"
	"squeeze/internal/imagefmt"
	"squeeze/internal/services"
)

// FileRecord describes one discovered image. Its fingerprint is computed on
// first request and cached; a record belongs to a single worker.
type FileRecord struct {
	Path    string
	RelPath string
	Size    int64
	Format  imagefmt.Format
	Mode    os.FileMode

	fingerprint hashing.Fingerprint
}

// NewFileRecord stats path without opening it. The format comes from the
// extension and is refined by sniffing once the file is known to be worth
// processing.
func NewFileRecord(root, path string) (*FileRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientFile, "pipeline", "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, services.Wrap(services.ErrTransientFile, "pipeline", "stat", path, fmt.Errorf("not a regular file"))
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientFile, "pipeline", "relative path", path, err)
	}
	format, _ := imagefmt.FromExtension(path)
	return &FileRecord{
		Path:    path,
		RelPath: filepath.ToSlash(rel),
		Size:    info.Size(),
		Format:  format,
		Mode:    info.Mode().Perm(),
	}, nil
}

// Fingerprint hashes the file once and returns the cached value afterwards.
func (r *FileRecord) Fingerprint(ctx context.Context, hasher *hashing.Hasher) (hashing.Fingerprint, error) {
	if r.fingerprint != "" {
		return r.fingerprint, nil
	}
	fp, err := hasher.HashFile(ctx, r.Path)
	if err != nil {
		return "", err
	}
	r.fingerprint = fp
	return fp, nil
}

// Hashed reports whether the fingerprint was computed.
func (r *FileRecord) Hashed() bool { return r.fingerprint != "" }
