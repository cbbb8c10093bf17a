// Package common contains shared constants and helpers used across
// CoEvo client components.
package common

// HTTP header names the client sets on outbound requests.
const (
	AuthorizationHeader  = "Authorization"
	RequestIDHeader      = "X-Request-ID"
	IdempotencyKeyHeader = "Idempotency-Key"
)

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "
