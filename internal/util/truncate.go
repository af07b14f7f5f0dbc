package util

import "fmt"

// DefaultLogMaxLen caps provider response bodies quoted in logs and
// order notes. Xero validation errors repeat the full submitted
// payload, which would otherwise bloat both.
const DefaultLogMaxLen = 1024

// TruncateLog shortens long strings for diagnostics output.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog using
// DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
