// Package storage declares the interface every storage backend of the
// service implements: users, sessions, and ownership-scoped links.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// UserKeeper persists accounts. CreateUser must perform the email
// uniqueness check and the insert as one atomic step and return
// models.ErrEmailTaken when the address is already registered.
type UserKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

// SessionKeeper persists the token → user-id bindings of the identity
// resolver. DeleteSession is idempotent.
type SessionKeeper interface {
	SaveSession(ctx context.Context, token, userID string) error
	FindSession(ctx context.Context, token string) (string, bool, error)
	DeleteSession(ctx context.Context, token string) error
}

// LinkKeeper persists short-code records. InsertLink must perform the
// code occupancy check and the insert as one atomic step and return
// models.ErrCodeTaken for an occupied code; it never overwrites.
// UpdateLinkURL replaces the destination only and leaves the owner
// untouched.
type LinkKeeper interface {
	InsertLink(ctx context.Context, link models.Link) error
	FindLinkByCode(ctx context.Context, code string) (models.Link, bool, error)
	FindLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error)
	UpdateLinkURL(ctx context.Context, code, longURL string) error
	DeleteLink(ctx context.Context, code string) error
}

// StatsKeeper reports aggregate counters for the internal stats endpoint.
type StatsKeeper interface {
	GetNumberOfLinks(ctx context.Context) (int64, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

// Storage is the full backend contract the application wires at startup.
type Storage interface {
	UserKeeper
	SessionKeeper
	LinkKeeper
	StatsKeeper

	Ping(ctx context.Context) error
	Close() error
}
