package errors

import (
	"errors"
)

var (
	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailAlreadyInUse    = errors.New("email already in use")

	ErrMissingToken        = errors.New("authorization token is not specified")
	ErrMalformedAuthHeader = errors.New("incorrect authorization header form")
	ErrInvalidToken        = errors.New("invalid token")
	ErrWrongTokenType      = errors.New("incorrect token type")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrReuseDetected       = errors.New("refresh token reuse detected")
	ErrTokenOwnerNotFound  = errors.New("token owner not found")

	// ErrJTIConflict means a freshly generated jti collided with an already
	// recorded one. The randomness source is broken if this ever fires.
	ErrJTIConflict = errors.New("jti already recorded")

	ErrLinkNotFound = errors.New("short link not found")
	ErrKeyOccupied  = errors.New("this key is already in use")
	ErrInvalidURL   = errors.New("provided URL is not valid")
)
