// Package user defines the user model used throughout the application,
// particularly for authentication and per-user link ownership.
package user

// User represents a registered account.
// Its ID is the value link records and sessions refer to.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	// Email is unique across all users; compared with a case-sensitive
	// exact match.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the account password.
	// Never serialized into HTTP responses.
	PasswordHash string `json:"-"`
}
