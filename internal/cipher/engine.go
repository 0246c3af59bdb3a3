package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const wrapVersion byte = 1

var (
	ErrDecryption = errors.New("cipher: decryption failed")
	ErrKeyUnwrap  = errors.New("cipher: key unwrap failed")
	ErrInvalidKey = errors.New("cipher: invalid key length")

	wrapAAD = []byte("research-vault/document-key")
)

// Key is a per-document symmetric key.
type Key []byte

// Wipe zeroes the key in place.
func (k Key) Wipe() {
	clear(k)
}

// Engine is the symmetric cipher contract the protection service depends on.
type Engine interface {
	GenerateKey() (Key, error)
	Encrypt(plaintext []byte, key Key) ([]byte, error)
	Decrypt(ciphertext []byte, key Key) ([]byte, error)
	WrapKey(key Key) ([]byte, error)
	UnwrapKey(wrapped []byte) (Key, error)
}

// XChaCha implements Engine with XChaCha20-Poly1305 for both content and key wrapping.
type XChaCha struct {
	master *MasterKey
}

func NewEngine(master *MasterKey) *XChaCha {
	return &XChaCha{master: master}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *XChaCha) GenerateKey() (Key, error) {
	b, err := randBytes(KeySize)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return Key(b), nil
}

// Encrypt seals plaintext under key. Output is nonce || ciphertext+tag.
func (e *XChaCha) Encrypt(plaintext []byte, key Key) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := randBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

func (e *XChaCha) Decrypt(ciphertext []byte, key Key) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(ciphertext) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	pt, err := aead.Open(nil, nonce, ciphertext[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return pt, nil
}

// WrapKey seals key under the master key with a fresh nonce. Output is version || nonce || sealed.
func (e *XChaCha) WrapKey(key Key) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(e.master.key)
	if err != nil {
		return nil, err
	}
	nonce, err := randBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, 1+len(nonce)+KeySize+aead.Overhead())
	out = append(out, wrapVersion)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, key, wrapAAD), nil
}

func (e *XChaCha) UnwrapKey(wrapped []byte) (Key, error) {
	if len(wrapped) != 1+chacha20poly1305.NonceSizeX+KeySize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: wrapped key has unexpected length %d", ErrKeyUnwrap, len(wrapped))
	}
	if wrapped[0] != wrapVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrKeyUnwrap, wrapped[0])
	}
	aead, err := chacha20poly1305.NewX(e.master.key)
	if err != nil {
		return nil, err
	}
	nonce := wrapped[1 : 1+chacha20poly1305.NonceSizeX]
	key, err := aead.Open(nil, nonce, wrapped[1+chacha20poly1305.NonceSizeX:], wrapAAD)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnwrap, err)
	}
	return Key(key), nil
}
