package session

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrRecordNotFound is returned by Backend.Get when the key holds no record.
	ErrRecordNotFound = errors.New("session record not found")
	// ErrBackendUnavailable wraps every backend I/O failure.
	ErrBackendUnavailable = errors.New("session backend unavailable")
	// ErrInvalidKey is returned for empty or whitespace-only keys.
	ErrInvalidKey = errors.New("invalid session key")
)

// Backend is the platform key-value store holding persisted session records.
// Delete of an absent key succeeds.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
