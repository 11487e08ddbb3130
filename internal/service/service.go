// Package service contains the core of the application: account
// registration and login, and the ownership-scoped short-link store.
// Every mutating or listing link operation runs through one ordered
// authorization policy, so error precedence is deterministic.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

const (
	codeLength               = 6
	codeAlphabet             = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	triesToGenerateFreshCode = 10
)

// Service implements the account and link operations over an injected
// storage backend.
type Service struct {
	db           storage.Storage
	shortURLBase string
}

// New creates a Service bound to the given storage.
func New(db storage.Storage, shortURLBase string) *Service {
	return &Service{
		db:           db,
		shortURLBase: shortURLBase,
	}
}

// RegisterUser creates a new account. The email must be unused; the
// password is stored as a bcrypt hash only.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	usr := &user.User{
		Email:        email,
		PasswordHash: string(passwordHash),
	}
	if _, err := s.db.CreateUser(ctx, usr); err != nil {
		return nil, err
	}

	return usr, nil
}

// LoginUser authenticates an email/password pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*user.User, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return usr, nil
}

// CreateLink stores a new record owned by userID under a freshly
// generated code: 6 alphanumeric symbols, retried on collision. The
// insert itself is the collision check, so a concurrent create drawing
// the same code cannot overwrite this one. Attempts are capped; on
// exhaustion the create fails closed.
func (s *Service) CreateLink(ctx context.Context, userID, longURL string) (models.Link, error) {
	if userID == "" {
		return models.Link{}, models.ErrUnauthenticated
	}

	for i := 0; i < triesToGenerateFreshCode; i++ {
		code, err := randomString(codeLength)
		if err != nil {
			return models.Link{}, err
		}

		link := models.Link{
			Code:    code,
			LongURL: longURL,
			OwnerID: userID,
		}
		err = s.db.InsertLink(ctx, link)
		if errors.Is(err, models.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return models.Link{}, err
		}

		return link, nil
	}

	return models.Link{}, models.ErrCodeSpaceExhausted
}

// ResolveLink is the public redirect lookup. It is intentionally
// ownership-exempt: short links are meant to be shareable. A record
// with an empty destination counts as missing.
func (s *Service) ResolveLink(ctx context.Context, code string) (models.Link, error) {
	link, found, err := s.db.FindLinkByCode(ctx, code)
	if err != nil {
		return models.Link{}, err
	}
	if !found || link.LongURL == "" {
		return models.Link{}, models.ErrNotFound
	}

	return link, nil
}

// GetUserLinks lists every record owned by userID. Anonymous callers
// own nothing and get an empty listing.
func (s *Service) GetUserLinks(ctx context.Context, userID string) (models.UserLinks, error) {
	result := models.UserLinks{}
	if userID == "" {
		return result, nil
	}

	links, err := s.db.FindLinksByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		result = append(result, models.UserLink{
			Code:     link.Code,
			ShortURL: s.GetShortURL(link.Code),
			LongURL:  link.LongURL,
		})
	}

	return result, nil
}

// GetOwnedLink returns a single record to its owner, with the same
// gating as update and delete.
func (s *Service) GetOwnedLink(ctx context.Context, userID, code string) (models.Link, error) {
	link, err := s.authorize(ctx, userID, code)
	if err != nil {
		return models.Link{}, err
	}

	return link, nil
}

// UpdateLink replaces the destination of an owned record. The owner
// is preserved across edits.
func (s *Service) UpdateLink(ctx context.Context, userID, code, longURL string) error {
	if _, err := s.authorize(ctx, userID, code); err != nil {
		return err
	}

	return s.db.UpdateLinkURL(ctx, code, longURL)
}

// DeleteLink removes an owned record entirely.
func (s *Service) DeleteLink(ctx context.Context, userID, code string) error {
	if _, err := s.authorize(ctx, userID, code); err != nil {
		return err
	}

	return s.db.DeleteLink(ctx, code)
}

// authorize evaluates the access policy for a single record in a
// stable order: identity first, then existence, then ownership. The
// ordering guarantees an unauthenticated caller never learns whether
// a code exists.
func (s *Service) authorize(ctx context.Context, userID, code string) (models.Link, error) {
	if userID == "" {
		return models.Link{}, models.ErrUnauthenticated
	}

	link, found, err := s.db.FindLinkByCode(ctx, code)
	if err != nil {
		return models.Link{}, err
	}
	if !found {
		return models.Link{}, models.ErrNotFound
	}

	if link.OwnerID != userID {
		return models.Link{}, models.ErrForbidden
	}

	return link, nil
}

func randomString(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		randomIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		result[i] = codeAlphabet[randomIndex.Int64()]
	}

	return string(result), nil
}

// GetInternalStats returns aggregate counters of stored links and users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	links, err := s.db.GetNumberOfLinks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Links: links,
		Users: users,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetShortURL renders the public URL for a short code.
func (s *Service) GetShortURL(code string) string {
	return strings.TrimRight(s.shortURLBase, "/") + "/" + code
}
