package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrAuthFailed indicates a rejected login, an invalid refresh token,
	// or a request that stayed unauthorized after a refresh.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrServerOffline indicates the catalog server is unreachable.
	ErrServerOffline = errors.New("server is unreachable")

	// ErrNotSignedIn indicates the operation requires a signed-in session.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")
)
