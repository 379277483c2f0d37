package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"squeeze/internal/config"
	"squeeze/internal/fileutil"
	"squeeze/internal/imagefmt"
)

// ErrRootUnreadable reports that the walk could not start at the root.
var ErrRootUnreadable = errors.New("root directory unreadable")

// DiscoverOptions filters the walk.
type DiscoverOptions struct {
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root. A matching directory is not descended into.
	Exclude []string
	// SkipPaths lists absolute files or directories never yielded, such as
	// a store kept inside the root.
	SkipPaths []string
}

// Discover lazily yields the absolute paths of supported images under root.
// The store directory, temp candidates, and excluded paths are skipped. Walk
// errors below the root are yielded alongside an empty path and the walk
// continues.
func Discover(ctx context.Context, root string, opts DiscoverOptions) (iter.Seq2[string, error], error) {
	matchers := make([]glob.Glob, 0, len(opts.Exclude))
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude %q: %w", pattern, err)
		}
		matchers = append(matchers, g)
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[filepath.Clean(p)] = struct{}{}
	}

	excluded := func(rel string, dir bool) bool {
		for _, g := range matchers {
			if g.Match(rel) || (dir && g.Match(rel+"/")) {
				return true
			}
		}
		return false
	}

	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if path == root {
					return fmt.Errorf("%w: %w", ErrRootUnreadable, err)
				}
				if !yield("", fmt.Errorf("walk %s: %w", path, err)) {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if path == root {
				return nil
			}
			if _, ok := skip[path]; ok {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if d.Name() == config.StoreDirName || excluded(rel, true) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || fileutil.IsTempName(d.Name()) || strings.HasPrefix(d.Name(), "._") {
				return nil
			}
			if _, ok := imagefmt.FromExtension(d.Name()); !ok {
				return nil
			}
			if excluded(rel, false) {
				return nil
			}
			if !yield(path, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", err)
		}
	}, nil
}

// DiscoverOptionsFromConfig builds discovery filters for root, skipping the
// configured store and its sidecar files when they live inside root.
func DiscoverOptionsFromConfig(cfg *config.Config, root string) DiscoverOptions {
	storePath := cfg.StorePath(root)
	skip := []string{storePath, storePath + "-wal", storePath + "-shm", storePath + "-journal", storePath + ".lock"}
	return DiscoverOptions{Exclude: cfg.Discovery.Exclude, SkipPaths: skip}
}
