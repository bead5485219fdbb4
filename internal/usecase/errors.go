package usecase

import crerr "github.com/cockroachdb/errors"

// Sentinel errors shared across services. The HTTP layer maps these to
// status codes; everything else wraps them with context.
var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("not found")
	ErrUnauthorized          = crerr.New("unauthorized")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
)
