// Package blobstore defines the content-addressed store that holds document ciphertexts.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrBlobNotFound = errors.New("blobstore: blob not found")

// Store persists opaque blobs and returns an identifier derived from their content.
type Store interface {
	Put(ctx context.Context, blob []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// ContentRef is the address used by the local backends: lowercase hex SHA-256 of the blob.
func ContentRef(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
