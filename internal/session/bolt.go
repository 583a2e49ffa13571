package session

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

var bucket = []byte("session")

var errClosed = errors.New("session database is not open")

type bolt struct {
	db *bbolt.DB
}

// Open returns a store persisted in the bbolt file at path. If the file
// cannot be opened the failure is logged and the store never holds a
// session.
func Open(path string, opts ...Option) *Store {
	be := &bolt{}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		slog.Warn("session storage unavailable", "path", path, "error", err)
		return newStore(be, opts)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		slog.Warn("session storage unavailable", "path", path, "error", err)
		return newStore(be, opts)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		slog.Warn("session storage unavailable", "path", path, "error", err)
		return newStore(be, opts)
	}

	be.db = db
	return newStore(be, opts)
}

func (b *bolt) load() ([]byte, error) {
	if b.db == nil {
		return nil, nil
	}
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(Key)); v != nil {
			// v is only valid inside the transaction.
			data = slices.Clone(v)
		}
		return nil
	})
	return data, err
}

func (b *bolt) save(data []byte) error {
	if b.db == nil {
		return errClosed
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(Key), data)
	})
}

func (b *bolt) remove() error {
	if b.db == nil {
		return nil
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(Key))
	})
}

func (b *bolt) close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
