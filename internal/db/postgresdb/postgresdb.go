// Package postgresdb provides the PostgreSQL-backed implementation of
// the storage interface. Uniqueness of emails and short codes is
// enforced by the schema; goose applies the migrations at startup.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// PostgresDB is a PostgreSQL-backed storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// New opens the connection, pings it, and runs the schema migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgresdb.New: ping failed: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("postgresdb.New: goose.SetDialect: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("postgresdb.New: goose.Up: %w", err)
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CreateUser inserts a new account. The unique index on email makes
// the uniqueness check and the insert one atomic statement.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			RETURNING id`,
		usr.Email,
		usr.PasswordHash,
	)

	var userID string
	if err := row.Scan(&userID); err != nil {
		if isUniqueViolation(err) {
			return "", models.ErrEmailTaken
		}
		return "", err
	}
	usr.ID = userID

	return userID, nil
}

// GetUserByID fetches an account by its UUID.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash FROM users WHERE id = $1`,
		userID,
	)

	return scanUser(row)
}

// GetUserByEmail fetches an account by its exact email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash FROM users WHERE email = $1`,
		email,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (*user.User, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// SaveSession stores the token → user-id binding.
func (db *PostgresDB) SaveSession(ctx context.Context, token, userID string) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO sessions (token, user_id) VALUES ($1, $2)`,
		token,
		userID,
	)

	return err
}

// FindSession resolves a token to the bound user ID.
func (db *PostgresDB) FindSession(ctx context.Context, token string) (string, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT user_id FROM sessions WHERE token = $1`,
		token,
	)

	var userID string
	err := row.Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return userID, true, nil
}

// DeleteSession removes the binding; deleting an unknown token succeeds.
func (db *PostgresDB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM sessions WHERE token = $1`,
		token,
	)

	return err
}

// InsertLink stores a new link record. The primary key on code makes
// the occupancy check and the insert one atomic statement; a
// collision surfaces as models.ErrCodeTaken.
func (db *PostgresDB) InsertLink(ctx context.Context, link models.Link) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO links (code, long_url, owner_id) VALUES ($1, $2, $3)`,
		link.Code,
		link.LongURL,
		link.OwnerID,
	)
	if isUniqueViolation(err) {
		return models.ErrCodeTaken
	}

	return err
}

// FindLinkByCode returns the record for a code, unscoped.
func (db *PostgresDB) FindLinkByCode(ctx context.Context, code string) (models.Link, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT code, long_url, owner_id FROM links WHERE code = $1`,
		code,
	)

	var link models.Link
	err := row.Scan(&link.Code, &link.LongURL, &link.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Link{}, false, nil
	}
	if err != nil {
		return models.Link{}, false, err
	}

	return link, true, nil
}

// FindLinksByOwner returns every record owned by ownerID.
func (db *PostgresDB) FindLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT code, long_url, owner_id FROM links WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(&link.Code, &link.LongURL, &link.OwnerID); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

// UpdateLinkURL replaces the destination of an existing record; the
// owner column is left untouched.
func (db *PostgresDB) UpdateLinkURL(ctx context.Context, code, longURL string) error {
	result, err := db.database.ExecContext(
		ctx,
		`UPDATE links SET long_url = $1 WHERE code = $2`,
		longURL,
		code,
	)
	if err != nil {
		return err
	}

	return errNotFoundWhenNothingAffected(result)
}

// DeleteLink removes the record entirely.
func (db *PostgresDB) DeleteLink(ctx context.Context, code string) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM links WHERE code = $1`,
		code,
	)
	if err != nil {
		return err
	}

	return errNotFoundWhenNothingAffected(result)
}

func errNotFoundWhenNothingAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// GetNumberOfLinks returns the total amount of stored records.
func (db *PostgresDB) GetNumberOfLinks(ctx context.Context) (int64, error) {
	return db.countFrom(ctx, `SELECT count(*) FROM links`)
}

// GetNumberOfUsers returns the total amount of registered accounts.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.countFrom(ctx, `SELECT count(*) FROM users`)
}

func (db *PostgresDB) countFrom(ctx context.Context, query string) (int64, error) {
	var count int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// Ping checks the database connection within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctx)
}

// Close releases the connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}
