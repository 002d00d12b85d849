package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("kv: key not found")
	// ErrConflict is returned by Update when the value changed underneath
	// the read-modify-write cycle too many times in a row.
	ErrConflict = errors.New("kv: too many concurrent modifications")
)

// Store is durable flat key-value storage for serialized blobs. Writers
// racing on the same key are coordinated through Update, which applies fn
// to the current value under optimistic concurrency control: if another
// writer lands between the read and the write, the cycle is retried with
// the fresh value.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn func(current string, found bool) (string, error)) error
}
