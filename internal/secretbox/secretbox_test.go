package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBox(t *testing.T) *Box {
	t.Helper()
	box, err := New("test-secret", "", zap.NewNop())
	require.NoError(t, err)
	return box
}

func TestSealOpenRoundTrip(t *testing.T) {
	box := newTestBox(t)

	cases := []string{
		"hello",
		"",
		"false",
		`{"access_token":"abc","refresh_token":"def","expires_at":1735689600}`,
		strings.Repeat("x", 4096),
		"日本語 mixed ünicode \x00\x01",
	}
	for _, plaintext := range cases {
		sealed, err := box.Seal(plaintext)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(sealed, "enc$"))

		got, err := box.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	box := newTestBox(t)

	a, err := box.Seal("same input")
	require.NoError(t, err)
	b, err := box.Seal("same input")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenPassesThroughPlaintext(t *testing.T) {
	box := newTestBox(t)

	// Values persisted before encryption was introduced have no
	// envelope and must come back unchanged.
	for _, legacy := range []string{"plain-verifier-string", "false", "", "{\"a\":1}"} {
		got, err := box.Open(legacy)
		require.NoError(t, err)
		require.Equal(t, legacy, got)
	}
}

func TestOpenRejectsMalformedEnvelope(t *testing.T) {
	box := newTestBox(t)

	_, err := box.Open("enc$notbase64!!$also-bad")
	require.Error(t, err)

	_, err = box.Open("enc$missingparts")
	require.Error(t, err)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	box := newTestBox(t)
	other, err := New("different-secret", "", zap.NewNop())
	require.NoError(t, err)

	sealed, err := box.Seal("secret material")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	require.Error(t, err)
}

func TestKeyFallbackOrder(t *testing.T) {
	primary, err := New("primary", "signing", zap.NewNop())
	require.NoError(t, err)
	fallback, err := New("", "signing", zap.NewNop())
	require.NoError(t, err)
	signingOnly, err := New("", "signing", zap.NewNop())
	require.NoError(t, err)

	sealed, err := fallback.Seal("value")
	require.NoError(t, err)

	// Same signing secret derives the same key.
	got, err := signingOnly.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "value", got)

	// A configured encryption secret takes precedence over it.
	_, err = primary.Open(sealed)
	require.Error(t, err)
}
