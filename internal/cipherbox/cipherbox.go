// Package cipherbox encrypts credential plaintext for storage and derives the
// deterministic digest used to look credentials up without decrypting them.
package cipherbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// InsecurePlaceholderKey is substituted when no master key is configured so the
// pool stays available. Anything encrypted under it is effectively plaintext.
const InsecurePlaceholderKey = "credpool-insecure-placeholder-master-key-change-me"

// ErrDecryptionFailed is returned by Decrypt for any envelope that cannot be
// opened with the current master key.
var ErrDecryptionFailed = errors.New("credential decryption failed")

var (
	hkdfSalt = []byte("credpool")
	hkdfInfo = []byte("credential-envelope-v1")
)

// Box seals and opens credential envelopes with AES-256-GCM. The envelope is
// base64(nonce || ciphertext || tag). The derived key is kept in a memguard
// Enclave, encrypted in memory, and is only opened for the duration of one
// Encrypt or Decrypt call. A Box is safe for concurrent use.
//
// The master key itself arrives as a Go string from configuration and cannot
// be wiped; only the derived AES key is protected.
type Box struct {
	key     *memguard.Enclave
	logger  *slog.Logger
	metrics driven.PoolMetrics
}

// New builds a Box from the process-wide master key. An empty masterKey falls
// back to InsecurePlaceholderKey and logs a warning.
func New(masterKey string, logger *slog.Logger, metrics driven.PoolMetrics) (*Box, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}

	if masterKey == "" {
		logger.Warn("master key not configured, using insecure placeholder key; set CREDPOOL_MASTER_KEY")
		masterKey = InsecurePlaceholderKey
	}

	derived := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(masterKey), hkdfSalt, hkdfInfo), derived); err != nil {
		memguard.WipeBytes(derived)
		return nil, fmt.Errorf("derive key: %w", err)
	}

	b := &Box{key: sealKey(derived), logger: logger, metrics: metrics}
	if _, err := b.aead(); err != nil {
		return nil, err
	}
	return b, nil
}

// sealKey moves derived into an Enclave. memguard wipes derived once copied.
func sealKey(derived []byte) *memguard.Enclave {
	return memguard.NewEnclave(derived)
}

// aead opens the key enclave and builds the GCM instance for one operation.
// The plaintext key buffer is destroyed before returning.
func (b *Box) aead() (cipher.AEAD, error) {
	buf, err := b.key.Open()
	if err != nil {
		return nil, fmt.Errorf("open key enclave: %w", err)
	}
	defer buf.Destroy()

	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (b *Box) Encrypt(plaintext string) (string, error) {
	gcm, err := b.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt. It never panics: any failure
// is logged and reported as an error wrapping ErrDecryptionFailed, which
// callers treat as "credential temporarily unusable".
func (b *Box) Decrypt(envelope string) (string, error) {
	plaintext, err := b.open(envelope)
	if err != nil {
		b.logger.Warn("credential envelope could not be decrypted", "error", err)
		b.metrics.DecryptFailed()
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func (b *Box) open(envelope string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := b.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcm.Overhead() {
		return "", errors.New("envelope too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

// Hash returns the hex SHA-256 digest of plaintext. It does not depend on the
// master key, so dedup and usage lookups survive key rotation.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
