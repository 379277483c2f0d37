package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Console timestamps omit the date; the run log file name carries it.
const consoleTimestampLayout = "15:04:05.000"

// fingerprintDisplayLen is how many hex digits of a fingerprint the console shows.
const fingerprintDisplayLen = 12

// plainValue renders v without quoting, for header fields.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return fieldValue("", v)
}

// fieldValue renders v for a console detail line. Keys ending in _bytes
// print as IEC sizes and fingerprints are shortened.
func fieldValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		if isByteKey(key) && v.Int64() >= 0 {
			return humanize.IBytes(uint64(v.Int64()))
		}
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		if isByteKey(key) {
			return humanize.IBytes(v.Uint64())
		}
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(time.DateTime)
	case slog.KindString:
		if key == "fingerprint" {
			return quoteIfNeeded(shortFingerprint(v.String()))
		}
		return quoteIfNeeded(v.String())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return quoteIfNeeded(v.String())
	}
}

func isByteKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || key == "size"
}

// shortFingerprint trims a hex digest to its first fingerprintDisplayLen digits.
func shortFingerprint(fp string) string {
	if len(fp) <= fingerprintDisplayLen {
		return fp
	}
	return fp[:fingerprintDisplayLen]
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
