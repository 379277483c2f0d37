package services_test

import (
	"errors"
	"strings"
	"testing"

	"squeeze/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEncodeFailure, "codec", "cjpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncodeFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"codec", "cjpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransientFile) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"store", services.Wrap(services.ErrStore, "dedup", "claim", "", errors.New("disk")), true},
		{"configuration", services.Wrap(services.ErrConfiguration, "dedup", "open", "root mismatch", nil), true},
		{"transient", services.Wrap(services.ErrTransientFile, "hashing", "open", "", nil), false},
		{"encode", services.Wrap(services.ErrEncodeFailure, "codec", "cwebp", "", nil), false},
		{"tool", services.Wrap(services.ErrToolUnavailable, "codec", "cjpeg", "", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsFatal(tc.err); got != tc.fatal {
				t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if got := services.Kind(services.Wrap(services.ErrTimeout, "codec", "cjpeg", "", nil)); got != "timeout" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(errors.New("plain")); got != "transient" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(nil); got != "" {
		t.Fatalf("unexpected kind for nil %q", got)
	}
}

func TestKindPrefersTimeoutOverEncode(t *testing.T) {
	// The external encoder reports a killed tool as an encode failure
	// wrapping the timeout marker.
	err := services.Wrap(services.ErrEncodeFailure, "codec", "cjpeg", "killed after 1s", services.ErrTimeout)
	if got := services.Kind(err); got != "timeout" {
		t.Fatalf("expected timeout kind, got %q", got)
	}
	if got := services.Kind(services.Wrap(services.ErrEncodeFailure, "codec", "cjpeg", "exit 1", nil)); got != "encode" {
		t.Fatalf("expected encode kind, got %q", got)
	}
}
