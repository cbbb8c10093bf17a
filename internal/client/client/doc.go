// Package client is the typed request/response boundary to the CoEvo
// backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) with one
//     method per backend capability: auth, boards, threads and posts,
//     moderation, watches, notifications, bounties, wallet and system.
//  2. A concrete REST implementation (see HTTPClient) that attaches the
//     bearer token from a TokenSource, stamps every request with an
//     X-Request-ID, applies a default timeout box and decodes JSON responses.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Non-2xx responses are returned as
// *APIError carrying the server's message verbatim; a 401 additionally
// matches ErrUnauthorized (and clears the session through the TokenSource),
// a 404 matches ErrNotFound. Callers use errors.Is / errors.As.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context; when it carries no deadline the configured request
// timeout is applied.
package client
