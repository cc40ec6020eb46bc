// Package store persists login credentials in a bbolt database, keyed by
// generated opaque keys that double as calendar subscription path segments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"campuscal/adapter"
)

var (
	bucketCredentials = []byte("credentials")
	bucketLastAccess  = []byte("last_access")
)

// Store is a bbolt-backed credential store. One row per credential:
// key -> adapter-tagged token, plus a last-access stamp used by external
// expiry cleanup.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path and ensures the buckets
// exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketCredentials, bucketLastAccess} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put saves the credential under a fresh UUID key and returns the key.
func (s *Store) Put(ctx context.Context, cred adapter.Credentials) (string, error) {
	key := uuid.NewString()

	value, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketCredentials).Put([]byte(key), value); err != nil {
			return err
		}
		return s.stampLocked(tx, key)
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

// Get resolves a key back to its credential and refreshes the last-access
// stamp. Unknown keys yield adapter.ErrCredentialNotFound.
func (s *Store) Get(ctx context.Context, key string) (adapter.Credentials, error) {
	var cred adapter.Credentials

	err := s.db.Update(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketCredentials).Get([]byte(key))
		if value == nil {
			return fmt.Errorf("%w: key %q", adapter.ErrCredentialNotFound, key)
		}
		if err := json.Unmarshal(value, &cred); err != nil {
			return fmt.Errorf("decoding credential %q: %w", key, err)
		}
		return s.stampLocked(tx, key)
	})
	if err != nil {
		return adapter.Credentials{}, err
	}

	return cred, nil
}

// LastAccess returns when the key was last written or resolved.
func (s *Store) LastAccess(key string) (time.Time, error) {
	var stamp time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketLastAccess).Get([]byte(key))
		if value == nil {
			return fmt.Errorf("%w: key %q", adapter.ErrCredentialNotFound, key)
		}
		t, err := time.Parse(time.RFC3339, string(value))
		if err != nil {
			return err
		}
		stamp = t
		return nil
	})
	return stamp, err
}

func (s *Store) stampLocked(tx *bbolt.Tx, key string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return tx.Bucket(bucketLastAccess).Put([]byte(key), []byte(now))
}
