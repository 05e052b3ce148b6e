package models

import "errors"

// Domain-level sentinel errors. Services return these (usually wrapped) and
// handlers translate them to HTTP status codes in one place.
var (
	ErrNotFound         = errors.New("requested item not found")
	ErrConflict         = errors.New("item already exists")
	ErrUnauthenticated  = errors.New("authentication required or invalid credentials")
	ErrForbidden        = errors.New("action not allowed")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timed out")
)
