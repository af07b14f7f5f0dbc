// Package secretbox encrypts opaque credential blobs before they are
// persisted. Sealed values are self-contained: the nonce travels with
// the ciphertext so Open needs no external state.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const envelopePrefix = "enc$"

// devKeyMaterial is the last-resort key when neither an encryption
// secret nor a signing secret is configured. Tokens sealed with it are
// recoverable by anyone with the source, hence the loud warning in New.
const devKeyMaterial = "xerosync-insecure-development-key"

var ErrMalformed = errors.New("secretbox: malformed sealed value")

// Box performs symmetric encryption with a key derived from an
// externally supplied secret.
type Box struct {
	aead cipher.AEAD
}

// New derives a 256-bit key from secret, falling back to the host
// signing secret and finally to a fixed development constant.
func New(secret, signingSecret string, log *zap.Logger) (*Box, error) {
	material := secret
	if material == "" {
		material = signingSecret
	}
	if material == "" {
		material = devKeyMaterial
		log.Warn("no encryption secret configured, stored credentials are sealed with a built-in development key",
			zap.String("fix", "set encryption_secret or signing_secret in the config"))
	}

	key := sha256.Sum256([]byte(material))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (b *Box) Seal(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := b.aead.Seal(nil, nonce, []byte(plaintext), nil)

	return envelopePrefix +
		base64.RawURLEncoding.EncodeToString(nonce) + "$" +
		base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open decrypts a sealed value. Input without the envelope prefix is
// returned unchanged: values written before encryption was introduced
// must keep working. A decrypted plaintext of "false" (or any other
// serialized value) is a normal result, only envelope or cipher
// failures produce an error.
func (b *Box) Open(value string) (string, error) {
	if !strings.HasPrefix(value, envelopePrefix) {
		return value, nil
	}

	parts := strings.SplitN(strings.TrimPrefix(value, envelopePrefix), "$", 2)
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ct, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(nonce) != b.aead.NonceSize() {
		return "", ErrMalformed
	}

	plaintext, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: open failed: %w", err)
	}
	return string(plaintext), nil
}
