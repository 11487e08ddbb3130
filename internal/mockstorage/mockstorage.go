// Package mockstorage provides a testify-based mock implementation of
// the storage interface, used to simulate backend behavior in handler
// and service tests.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// StorageMock implements storage.Storage through testify's mock engine.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks account creation and returns a generated ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching an account by ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetUserByEmail mocks fetching an account by email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// SaveSession mocks storing a session binding.
func (m *StorageMock) SaveSession(ctx context.Context, token, userID string) error {
	args := m.Called(ctx, token, userID)
	return args.Error(0)
}

// FindSession mocks resolving a session token.
func (m *StorageMock) FindSession(ctx context.Context, token string) (string, bool, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Bool(1), args.Error(2)
}

// DeleteSession mocks removing a session binding.
func (m *StorageMock) DeleteSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// InsertLink mocks inserting a new link record.
func (m *StorageMock) InsertLink(ctx context.Context, link models.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// FindLinkByCode mocks the unscoped record lookup.
func (m *StorageMock) FindLinkByCode(ctx context.Context, code string) (models.Link, bool, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(models.Link), args.Bool(1), args.Error(2)
}

// FindLinksByOwner mocks the per-owner listing.
func (m *StorageMock) FindLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	args := m.Called(ctx, ownerID)
	links, _ := args.Get(0).([]models.Link)
	return links, args.Error(1)
}

// UpdateLinkURL mocks the destination replacement.
func (m *StorageMock) UpdateLinkURL(ctx context.Context, code, longURL string) error {
	args := m.Called(ctx, code, longURL)
	return args.Error(0)
}

// DeleteLink mocks record removal.
func (m *StorageMock) DeleteLink(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// GetNumberOfLinks mocks the link counter.
func (m *StorageMock) GetNumberOfLinks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfUsers mocks the user counter.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the backend.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
