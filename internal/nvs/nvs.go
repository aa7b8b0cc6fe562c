// Package nvs provides the durable key-value blob store that holds the
// persisted configuration: an in-memory implementation for tests and
// volatile runs, and a SQLite-backed one for real persistence.
package nvs

import (
	"errors"
	"fmt"
)

// MaxKeyLen matches the flash NVS limit for namespace and key names.
const MaxKeyLen = 15

var (
	ErrNotFound   = errors.New("nvs: not found")
	ErrInvalidKey = errors.New("nvs: invalid namespace or key")
	ErrClosed     = errors.New("nvs: store closed")
)

// BlobStore is the durable store contract. Set replaces the whole value in
// one step; a reader never observes a partially written blob.
type BlobStore interface {
	Get(namespace, key string) ([]byte, error)
	Set(namespace, key string, data []byte) error
}

func checkKey(namespace, key string) error {
	for _, s := range []string{namespace, key} {
		if s == "" || len(s) > MaxKeyLen {
			return fmt.Errorf("%w: %q/%q", ErrInvalidKey, namespace, key)
		}
	}
	return nil
}
