package repository

import (
	"context"
	"fmt"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// StorageError wraps a durable-store failure. Losing a flag record is a
// correctness issue, so callers surface these as fatal to the request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Repository defines the interface for durable flag persistence. The flag
// log is append-only: no update or delete is exposed.
type Repository interface {
	// AppendFlags durably records the flags in order. Fails with a
	// *StorageError on write failure; the caller decides retry policy.
	AppendFlags(ctx context.Context, flags []*models.Flag) error

	// ListFlagsBySession returns one page of a session's flag history,
	// most recent first, plus the total count.
	ListFlagsBySession(ctx context.Context, sessionID string, page, limit int) ([]*models.Flag, int, error)

	// Utility
	Close()
}
