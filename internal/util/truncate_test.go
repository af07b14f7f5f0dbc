package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateLog(t *testing.T) {
	require.Equal(t, "short", TruncateLog("short", 10))

	long := strings.Repeat("a", 50)
	got := TruncateLog(long, 10)
	require.True(t, strings.HasPrefix(got, "aaaaaaaaaa..."))
	require.Contains(t, got, "50 bytes total")
}

func TestTruncateBytes(t *testing.T) {
	body := strings.Repeat("x", DefaultLogMaxLen+1)
	require.Contains(t, TruncateBytes([]byte(body)), "truncated")
	require.Equal(t, "ok", TruncateBytes([]byte("ok")))
}
