package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrMissingParameter       = errors.New("missing required parameter")
	ErrUnsupportedType        = errors.New("unsupported database type")
	ErrDriverUnavailable      = errors.New("database driver unavailable")
	ErrInvalidFilter          = errors.New("invalid document filter")
	ErrNoCollections          = errors.New("no collections found in database")
	ErrConnectTimeout         = errors.New("timed out connecting to database")
	ErrCredentialsKeyMismatch = errors.New("profile credentials were encrypted with a different key")
)
