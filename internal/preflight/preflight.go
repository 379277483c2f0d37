package preflight

import (
	"strings"

	"squeeze/internal/config"
	"squeeze/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// directoryChecks verifies the processing root and the store location.
func directoryChecks(cfg *config.Config, root string) []Result {
	if root == "" {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Root directory", root),
		checkStoreLocation(cfg.StorePath(root)),
	}
}

// RunAll executes the startup checks for processing root. Encoder checks
// are reported individually so the CLI can render them in one table.
func RunAll(cfg *config.Config, root string) []Result {
	if cfg == nil {
		return nil
	}

	results := directoryChecks(cfg, root)
	for _, status := range CheckTools(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}
	return results
}

// Verify turns failed checks into a single error. Directory failures are
// marked services.ErrConfiguration. Missing encoders are marked
// services.ErrToolUnavailable unless allowFallback is set.
func Verify(cfg *config.Config, root string, allowFallback bool) error {
	var failed []string
	for _, result := range directoryChecks(cfg, root) {
		if !result.Passed {
			failed = append(failed, result.Name+": "+result.Detail)
		}
	}
	if len(failed) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "check directories", strings.Join(failed, "; "), nil)
	}
	if allowFallback {
		return nil
	}
	return MissingTools(CheckTools(cfg))
}
