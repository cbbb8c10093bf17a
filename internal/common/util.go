package common

import "github.com/google/uuid"

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// NewRequestID returns a fresh random identifier for X-Request-ID and
// Idempotency-Key headers.
func NewRequestID() string {
	return uuid.NewString()
}
