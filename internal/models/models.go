// Package models contains the data transfer objects of the HTTP API,
// the link record model, and the typed error outcomes of the core.
package models

import "errors"

// Link is a single short-code record. OwnerID is fixed at creation
// time and survives edits.
type Link struct {
	Code    string `json:"code"`
	LongURL string `json:"long_url"`
	OwnerID string `json:"-"`
}

// RegisterRequest is the body of POST /api/user/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// LoginRequest is the body of POST /api/user/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// ShortenRequest is the body of POST /api/shorten.
type ShortenRequest struct {
	URL string `json:"url" validate:"required"`
}

// ShortenResponse is the reply to a successful shorten request.
type ShortenResponse struct {
	Code     string `json:"code"`
	ShortURL string `json:"short_url"`
}

// UpdateLinkRequest is the body of PUT /api/urls/{code}.
type UpdateLinkRequest struct {
	URL string `json:"url" validate:"required"`
}

// UserLink is one element of the GET /api/user/urls listing.
type UserLink struct {
	Code     string `json:"code"`
	ShortURL string `json:"short_url"`
	LongURL  string `json:"long_url"`
}

// UserLinks is the full listing for one owner.
type UserLinks []UserLink

// InternalStatsResponse carries aggregate service counters.
type InternalStatsResponse struct {
	Links int64 `json:"urls"`
	Users int64 `json:"users"`
}

// Storage backend selector values, in priority order.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// Typed outcomes of the core. The router maps each to an HTTP status;
// nothing here is surfaced as an uncontrolled fault.
var (
	// ErrUnauthenticated means no valid identity was presented.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means a valid identity does not own the record.
	ErrForbidden = errors.New("record belongs to another user")

	// ErrNotFound means no such code or email exists.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken means a registration hit an already-used email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrCodeTaken means an insert drew an already-occupied short code.
	// The creation path retries on it; it never reaches a client.
	ErrCodeTaken = errors.New("short code already taken")

	// ErrInvalidCredentials means login failed on email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrCodeSpaceExhausted means code generation gave up after the
	// collision-retry cap. Fails the create closed.
	ErrCodeSpaceExhausted = errors.New("could not generate a unique short code")
)
