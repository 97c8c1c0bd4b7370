// Package storage provides the durable key-value backends for save data.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is wrapped by Set when the backend is out of space.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// KVStore defines the single-key persistence contract shared by every backend.
// Values are opaque strings; the persistence adapter owns their format.
type KVStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
