package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransientFile   = errors.New("transient file error")
	ErrToolUnavailable = errors.New("tool unavailable")
	ErrEncodeFailure   = errors.New("encode failure")
	ErrStore           = errors.New("store error")
	ErrConfiguration   = errors.New("configuration error")
	ErrTimeout         = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransientFile
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the whole run rather than a single file.
// Store failures and configuration problems are run-fatal; everything else is
// isolated to the file that produced it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStore) || errors.Is(err, ErrConfiguration)
}

// Kind returns a short classification label used in logs and reports.
// A timeout wrapped inside an encode failure reports as a timeout.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrToolUnavailable):
		return "tool_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrEncodeFailure):
		return "encode"
	default:
		return "transient"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
