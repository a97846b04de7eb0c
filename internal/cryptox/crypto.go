// Package cryptox implements the vault's envelope encryption: key derivation
// from the process master secret plus the user's login password, and AES-GCM
// encryption of individual credential secrets.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/avorobjovs/keyguard/internal/common"
)

// envelopeNonceSize is the nonce length in bytes. Stored envelopes embed the
// nonce, so this value must never change once data exists.
const envelopeNonceSize = 16

// envelopeDelimiter joins the hex-encoded nonce and ciphertext. The two-part
// colon-joined shape is the stored format and is kept for compatibility with
// already-encrypted records.
const envelopeDelimiter = ":"

// KeyDeriver derives per-user symmetric keys from a process-wide master
// secret. The master secret comes from configuration and is injected once at
// construction; the derived key is never stored anywhere.
type KeyDeriver struct {
	master []byte
}

// NewKeyDeriver constructs a KeyDeriver for the given master secret.
// Validating that the secret is non-empty is the config layer's job; an
// absent master secret must prevent process start, not fail per-request.
func NewKeyDeriver(masterSecret string) *KeyDeriver {
	return &KeyDeriver{master: []byte(masterSecret)}
}

// Derive computes a 32-byte AES key from the master secret and the user's
// plaintext login password. Deterministic on purpose: the vault re-derives
// the key every session instead of storing it, so a user who forgets their
// password also loses the key (the guardian recovery path replaces the login
// password but cannot bring old ciphertexts back).
func (kd *KeyDeriver) Derive(userSecret string) []byte {
	h := sha256.New()
	h.Write(kd.master)
	h.Write([]byte(userSecret))
	return h.Sum(nil)
}

// EncryptSecret encrypts a single credential string under key using AES-GCM
// with a fresh random nonce, and returns the stored envelope
// "hex(nonce):hex(ciphertext)".
func EncryptSecret(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}

	aesgcm, err := cipher.NewGCMWithNonceSize(block, envelopeNonceSize)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	nonce := make([]byte, envelopeNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	ciphertext := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)

	return hex.EncodeToString(nonce) + envelopeDelimiter + hex.EncodeToString(ciphertext), nil
}

// DecryptSecret opens an envelope produced by EncryptSecret. Every failure
// mode on this path (malformed envelope, bad encoding, wrong nonce length,
// wrong key, tampered ciphertext) is reported as common.ErrDecryption, so a
// caller can always distinguish "decrypted to empty string" from "failed".
func DecryptSecret(envelope string, key []byte) (string, error) {
	parts := strings.Split(envelope, envelopeDelimiter)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed envelope", common.ErrDecryption)
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce encoding", common.ErrDecryption)
	}
	if len(nonce) != envelopeNonceSize {
		return "", fmt.Errorf("%w: bad nonce length", common.ErrDecryption)
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", common.ErrDecryption)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: cipher init", common.ErrDecryption)
	}
	aesgcm, err := cipher.NewGCMWithNonceSize(block, envelopeNonceSize)
	if err != nil {
		return "", fmt.Errorf("%w: gcm init", common.ErrDecryption)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", common.ErrDecryption)
	}

	return string(plaintext), nil
}
