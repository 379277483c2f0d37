package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"

	"squeeze/internal/config"
	"squeeze/internal/deps"
	"squeeze/internal/services"
)

// ToolRequirements lists the external encoders configured for each format.
func ToolRequirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{Name: "JPEG encoder", Command: cfg.Tools.JPEG, Description: "JPEG quality ladder"},
		{Name: "WEBP encoder", Command: cfg.Tools.WEBP, Description: "WEBP quality ladder"},
		{Name: "PNG optimizer", Command: cfg.Tools.PNGOptimize, Description: "Lossless PNG recompression"},
		{Name: "PNG quantizer", Command: cfg.Tools.PNGQuantize, Description: "PNG quality ladder"},
	}
}

// CheckTools resolves every configured encoder.
func CheckTools(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(cfg.Paths.ToolsDir, ToolRequirements(cfg))
}

// MissingTools aggregates every unavailable required tool into one error
// marked services.ErrToolUnavailable. It returns nil when all are present.
func MissingTools(statuses []deps.Status) error {
	var result *multierror.Error
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		result = multierror.Append(result, services.Wrap(
			services.ErrToolUnavailable,
			"preflight",
			"resolve "+status.Name,
			status.Detail,
			nil,
		))
	}
	return result.ErrorOrNil()
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// checkStoreLocation verifies the directory that will hold the store, walking
// up to the nearest existing ancestor when it has not been created yet.
func checkStoreLocation(storePath string) Result {
	dir := filepath.Dir(storePath)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	result := CheckDirectoryAccess("Store directory", dir)
	if result.Passed {
		result.Detail = fmt.Sprintf("%s (writable)", storePath)
	}
	return result
}
