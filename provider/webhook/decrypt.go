// Package webhook opens encrypted VR Payment webhook deliveries.
//
// The gateway seals every notification with AES-GCM. The initialization
// vector and authentication tag travel as hex in the X-Initialization-Vector
// and X-Authentication-Tag headers, the ciphertext as a hex request body, and
// the key is the hex secret configured for the merchant.
package webhook

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthentication means the tag did not verify. The payload must be discarded.
	ErrAuthentication = errors.New("webhook: authentication failed")
	// ErrMalformedInput means an input was not hex or had an invalid length.
	ErrMalformedInput = errors.New("webhook: malformed input")
)

const tagSize = 16

// Decrypt opens cipherHex with AES-GCM and returns the plaintext.
// No plaintext is returned unless the tag verifies.
func Decrypt(keyHex, ivHex, tagHex, cipherHex string) ([]byte, error) {
	key, err := decodeHex("key", keyHex)
	if err != nil {
		return nil, err
	}
	iv, err := decodeHex("initialization vector", ivHex)
	if err != nil {
		return nil, err
	}
	tag, err := decodeHex("authentication tag", tagHex)
	if err != nil {
		return nil, err
	}
	body, err := decodeHex("body", cipherHex)
	if err != nil {
		return nil, err
	}
	if len(tag) != tagSize {
		return nil, fmt.Errorf("%w: authentication tag is %d bytes, want %d", ErrMalformedInput, len(tag), tagSize)
	}

	aead, err := newGCM(key, iv)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(body)+len(tag))
	sealed = append(sealed, body...)
	sealed = append(sealed, tag...)

	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plain, nil
}

// Encrypt seals plaintext the way the gateway does and returns the hex
// ciphertext and tag. It backs the sandbox tooling and tests.
func Encrypt(keyHex, ivHex string, plaintext []byte) (cipherHex, tagHex string, err error) {
	key, err := decodeHex("key", keyHex)
	if err != nil {
		return "", "", err
	}
	iv, err := decodeHex("initialization vector", ivHex)
	if err != nil {
		return "", "", err
	}
	aead, err := newGCM(key, iv)
	if err != nil {
		return "", "", err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - tagSize
	return strings.ToUpper(hex.EncodeToString(sealed[:split])), strings.ToUpper(hex.EncodeToString(sealed[split:])), nil
}

func newGCM(key, iv []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: key is %d bytes, want 16, 24 or 32", ErrMalformedInput, len(key))
	}
	if len(iv) == 0 {
		return nil, fmt.Errorf("%w: empty initialization vector", ErrMalformedInput)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return aead, nil
}

func decodeHex(role, s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid hex", ErrMalformedInput, role)
	}
	return b, nil
}
