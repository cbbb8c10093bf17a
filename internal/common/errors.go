package common

import "errors"

var (
	// Local storage errors.
	ErrorNotFound = errors.New("not found")

	// Token errors (malformed or unparsable access token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
