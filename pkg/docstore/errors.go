package docstore

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// Sentinel errors for the storage contract. Callers should test with the
// Is* helpers rather than comparing directly, since returned errors carry
// wrapped context.
var (
	// ErrNotFound indicates the document path does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrExists indicates a create targeted a path that already exists.
	ErrExists = errors.New("document already exists")

	// ErrConflict indicates an update supplied an expected version that no
	// longer matches the stored document.
	ErrConflict = errors.New("document version conflict")
)

// IsNotFound reports whether err indicates a missing document.
// Also recognises redis.Nil for callers that talk to Redis directly.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, redis.Nil)
}

// IsExists reports whether err indicates a create collision.
func IsExists(err error) bool {
	return errors.Is(err, ErrExists)
}

// IsConflict reports whether err indicates a version conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
