package infrastructure

import "errors"

// Sentinel errors for the whole service. Handlers wrap these with context via
// fmt.Errorf("...: %w", err); Respond* maps them back to HTTP status codes.
//
// Token failures are deliberately collapsed into ErrUnauthorized no matter
// which check failed (signature, expiry, revocation, audience) so responses
// do not reveal which one it was.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
