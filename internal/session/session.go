// Package session implements the identity resolver: it establishes,
// resolves and revokes the server-side binding between an opaque
// session token and a user ID. The client-visible credential is a
// signed JWT wrapping the token, delivered via a cookie or the
// Authorization header; revocation stays immediate because the
// binding itself lives in storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

type sessionKeeper interface {
	SaveSession(ctx context.Context, token, userID string) error
	FindSession(ctx context.Context, token string) (string, bool, error)
	DeleteSession(ctx context.Context, token string) error
}

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

type sessionStorage interface {
	sessionKeeper
	userKeeper
}

// Claims wraps the standard JWT claims with the opaque session token.
// No user data is embedded in the credential itself.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key holding the resolved user ID.
// An empty value means Anonymous.
const UserIDKey ContextKey = "userID"

// Sessions manages the session lifecycle and the signed cookie
// carrying the token.
type Sessions struct {
	db         sessionStorage
	cookieName string
	signingKey []byte
}

// New creates a Sessions resolver over the given storage.
func New(db sessionStorage, cookieName string, signingKey []byte) *Sessions {
	return &Sessions{
		db:         db,
		cookieName: cookieName,
		signingKey: signingKey,
	}
}

// Establish creates a fresh opaque token bound to userID, stores the
// binding, and delivers the signed credential via cookie and
// Authorization header. Used after registration and login.
func (s *Sessions) Establish(ctx context.Context, response http.ResponseWriter, userID string) (string, error) {
	token := uuid.New().String()

	if err := s.db.SaveSession(ctx, token, userID); err != nil {
		return "", fmt.Errorf("session.Establish: %w", err)
	}

	JWTString, err := s.buildJWTString(&Claims{SessionID: token})
	if err != nil {
		return "", fmt.Errorf("session.Establish: %w", err)
	}

	response.Header().Set("Authorization", JWTString)
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     s.cookieName,
			Value:    JWTString,
			Path:     "/",
			HttpOnly: true,
		},
	)

	return token, nil
}

// Resolve maps the request credential to a user ID. Absent, invalid,
// revoked or dangling credentials all resolve to Anonymous (an empty
// ID); only storage failures are reported as errors.
func (s *Sessions) Resolve(ctx context.Context, request *http.Request) (string, error) {
	token := s.getSessionToken(request)
	if token == "" {
		return "", nil
	}

	userID, found, err := s.db.FindSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("session.Resolve: %w", err)
	}
	if !found {
		return "", nil
	}

	// The bound user must still exist for the identity to be valid.
	if _, err := s.db.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("session.Resolve: %w", err)
	}

	return userID, nil
}

// Revoke removes the session binding and expires the cookie.
// Revoking an unknown or already-revoked token is not an error.
func (s *Sessions) Revoke(ctx context.Context, response http.ResponseWriter, request *http.Request) error {
	if token := s.getSessionToken(request); token != "" {
		if err := s.db.DeleteSession(ctx, token); err != nil {
			return fmt.Errorf("session.Revoke: %w", err)
		}
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     s.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		},
	)

	return nil
}

// WithIdentity is an HTTP middleware that resolves the request
// credential exactly once and stores the result under UserIDKey.
func (s *Sessions) WithIdentity(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := s.Resolve(request.Context(), request)
		if err != nil {
			logger.Log.Debugln("Error resolving the request identity: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext extracts the resolved user ID from the request
// context. Empty means Anonymous.
func UserIDFromContext(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}

	return userID
}

func (s *Sessions) getCredentialString(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(s.cookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

// getSessionToken verifies the credential signature and extracts the
// opaque token. A bad signature yields an empty token.
func (s *Sessions) getSessionToken(request *http.Request) string {
	tokenString := s.getCredentialString(request)
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.SessionID
}

func (s *Sessions) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	return token.SignedString(s.signingKey)
}
