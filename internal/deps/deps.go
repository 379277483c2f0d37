package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external binary squeeze can use.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ResolveTool locates command, preferring an executable of that name inside
// toolsDir over PATH lookup. Commands containing a path separator are checked
// as given.
func ResolveTool(toolsDir, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command not configured")
	}
	if toolsDir = strings.TrimSpace(toolsDir); toolsDir != "" && !strings.ContainsRune(command, filepath.Separator) {
		candidate := filepath.Join(toolsDir, command)
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	return path, nil
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(toolsDir string, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.TrimSpace(req.Command),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		path, err := ResolveTool(toolsDir, status.Command)
		if err != nil {
			status.Detail = err.Error()
		} else {
			status.Path = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

func isExecutable(info os.FileInfo) bool {
	return !info.IsDir() && info.Mode().Perm()&0o111 != 0
}
