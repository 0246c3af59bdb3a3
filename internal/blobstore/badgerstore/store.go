// Package badgerstore is a local content-addressed blob store backed by badger.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/frahmantamala/research-vault/internal/blobstore"
)

const keyPrefix = "blob/"

type Config struct {
	Path     string
	InMemory bool
}

type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	logger.Info("badger blob store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db, logger: logger}, nil
}

func key(ref string) []byte {
	return []byte(keyPrefix + ref)
}

// Put is idempotent: the same blob always maps to the same ref.
func (s *Store) Put(ctx context.Context, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := blobstore.ContentRef(blob)

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(ref)); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key(ref), blob)
	})
	if err != nil {
		return "", fmt.Errorf("badger put %s: %w", ref, err)
	}
	return ref, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(ref))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, blobstore.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", ref, err)
	}
	return blob, nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(ref)); err != nil {
			return err
		}
		return txn.Delete(key(ref))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return blobstore.ErrBlobNotFound
	}
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", ref, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
