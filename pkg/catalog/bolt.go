package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	catalogBucket = []byte("catalog")
	documentKey   = []byte("document")
)

// BoltBackend keeps the catalog document under a single key so that a write
// replaces the whole catalog inside one transaction.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (or creates) the bbolt database at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageError("create catalog directory", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, storageError("open catalog db", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(catalogBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, storageError("create catalog bucket", err)
	}

	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Read(_ context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(catalogBucket).Get(documentKey)
		if v == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, storageError("read catalog", err)
	}
	return data, nil
}

func (b *BoltBackend) Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return storageError("update catalog", err)
	}

	var fnErr error
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(catalogBucket)
		var current []byte
		if v := bucket.Get(documentKey); v != nil {
			current = append([]byte(nil), v...)
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		if next == nil {
			return nil
		}
		return bucket.Put(documentKey, next)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storageError("update catalog", err)
	}
	return nil
}

func (b *BoltBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close catalog db: %w", err)
	}
	return nil
}
