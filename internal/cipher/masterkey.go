// Package cipher holds the master key and the symmetric primitives used to protect documents.
package cipher

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize = 32

	minPassphraseLen = 32
)

var (
	masterKeySalt = []byte("research-vault/master-key/v1")
	masterKeyInfo = []byte("document-key-wrapping")
)

// MasterKey is the process-wide key-encryption key. It is read-only after construction.
type MasterKey struct {
	key []byte
}

// LoadMasterKey accepts base64 of exactly 32 bytes, or a passphrase of at least 32
// characters which is stretched with HKDF-SHA256.
func LoadMasterKey(secret string) (*MasterKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("master key is empty")
	}

	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == KeySize {
		return &MasterKey{key: raw}, nil
	}

	if len(secret) < minPassphraseLen {
		return nil, fmt.Errorf("master key passphrase must be at least %d characters", minPassphraseLen)
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(secret), masterKeySalt, masterKeyInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	return &MasterKey{key: key}, nil
}

// NewMasterKey wraps raw key bytes. The slice is copied.
func NewMasterKey(raw []byte) (*MasterKey, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeySize, len(raw))
	}
	k := make([]byte, KeySize)
	copy(k, raw)
	return &MasterKey{key: k}, nil
}

// Fingerprint identifies the key in logs without revealing it.
func (m *MasterKey) Fingerprint() string {
	sum := sha256.Sum256(m.key)
	return hex.EncodeToString(sum[:8])
}

// EncodeKey renders a key in the base64 form accepted by LoadMasterKey.
func EncodeKey(k Key) string {
	return base64.StdEncoding.EncodeToString(k)
}
