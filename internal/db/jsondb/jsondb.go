// Package jsondb implements the storage interface on top of in-memory
// maps that are loaded from and flushed to a JSON file. With an empty
// file name it degrades to a purely volatile backend.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// CacheStruct is the serialized shape of the whole database.
type CacheStruct struct {
	Users        map[string]*user.User
	UsersByEmail map[string]string
	Links        map[string]models.Link
	Sessions     map[string]string
}

// NewCache returns an empty, fully initialized cache.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:        map[string]*user.User{},
		UsersByEmail: map[string]string{},
		Links:        map[string]models.Link{},
		Sessions:     map[string]string{},
	}
}

// JSONDB keeps the users, links and sessions maps, each guarded by its
// own lock so concurrent handlers cannot interleave partial writes.
type JSONDB struct {
	fileName string

	usersMu    sync.RWMutex
	linksMu    sync.RWMutex
	sessionsMu sync.RWMutex

	Cache CacheStruct
}

// New loads the database from fileName, initializing the file when it
// does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := db.flush(); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// NewVolatile returns a JSONDB with no file behind it. Used by the
// in-memory backend, which overrides Close.
func NewVolatile() *JSONDB {
	return &JSONDB{
		Cache: NewCache(),
	}
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

func (db *JSONDB) flush() error {
	jsonData, err := json.MarshalIndent(db.Cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	return os.WriteFile(db.fileName, jsonData, 0644)
}

// CreateUser inserts a new account. The email uniqueness check and the
// insert run under one lock, so two simultaneous registrations with
// the same email cannot both succeed.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	db.usersMu.Lock()
	defer db.usersMu.Unlock()

	if _, taken := db.Cache.UsersByEmail[usr.Email]; taken {
		return "", models.ErrEmailTaken
	}

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	db.Cache.Users[usr.ID] = usr
	db.Cache.UsersByEmail[usr.Email] = usr.ID

	return usr.ID, nil
}

// GetUserByID returns the account with the given ID or models.ErrNotFound.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.usersMu.RLock()
	defer db.usersMu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, models.ErrNotFound
	}

	return usr, nil
}

// GetUserByEmail returns the account with the given email or models.ErrNotFound.
// The match is case-sensitive and exact.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.usersMu.RLock()
	defer db.usersMu.RUnlock()

	userID, found := db.Cache.UsersByEmail[email]
	if !found {
		return nil, models.ErrNotFound
	}

	return db.Cache.Users[userID], nil
}

// SaveSession stores the token → user-id binding.
func (db *JSONDB) SaveSession(ctx context.Context, token, userID string) error {
	db.sessionsMu.Lock()
	defer db.sessionsMu.Unlock()

	db.Cache.Sessions[token] = userID

	return nil
}

// FindSession resolves a token to the bound user ID.
func (db *JSONDB) FindSession(ctx context.Context, token string) (string, bool, error) {
	db.sessionsMu.RLock()
	defer db.sessionsMu.RUnlock()

	userID, found := db.Cache.Sessions[token]

	return userID, found, nil
}

// DeleteSession removes the binding. Unknown tokens are not an error.
func (db *JSONDB) DeleteSession(ctx context.Context, token string) error {
	db.sessionsMu.Lock()
	defer db.sessionsMu.Unlock()

	delete(db.Cache.Sessions, token)

	return nil
}

// InsertLink stores a new link record. The occupancy check and the
// insert run under one lock; an occupied code is rejected with
// models.ErrCodeTaken instead of overwriting the existing record.
func (db *JSONDB) InsertLink(ctx context.Context, link models.Link) error {
	db.linksMu.Lock()
	defer db.linksMu.Unlock()

	if _, taken := db.Cache.Links[link.Code]; taken {
		return models.ErrCodeTaken
	}
	db.Cache.Links[link.Code] = link

	return nil
}

// FindLinkByCode returns the record for a code, unscoped.
func (db *JSONDB) FindLinkByCode(ctx context.Context, code string) (models.Link, bool, error) {
	db.linksMu.RLock()
	defer db.linksMu.RUnlock()

	link, found := db.Cache.Links[code]

	return link, found, nil
}

// FindLinksByOwner returns every record owned by ownerID.
func (db *JSONDB) FindLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	db.linksMu.RLock()
	defer db.linksMu.RUnlock()

	links := make([]models.Link, 0, len(db.Cache.Links))
	for _, link := range db.Cache.Links {
		links = append(links, link)
	}

	return funk.Filter(links, func(link models.Link) bool {
		return link.OwnerID == ownerID
	}).([]models.Link), nil
}

// UpdateLinkURL replaces the destination of an existing record,
// preserving its owner.
func (db *JSONDB) UpdateLinkURL(ctx context.Context, code, longURL string) error {
	db.linksMu.Lock()
	defer db.linksMu.Unlock()

	link, found := db.Cache.Links[code]
	if !found {
		return models.ErrNotFound
	}

	link.LongURL = longURL
	db.Cache.Links[code] = link

	return nil
}

// DeleteLink removes the record entirely.
func (db *JSONDB) DeleteLink(ctx context.Context, code string) error {
	db.linksMu.Lock()
	defer db.linksMu.Unlock()

	if _, found := db.Cache.Links[code]; !found {
		return models.ErrNotFound
	}
	delete(db.Cache.Links, code)

	return nil
}

// GetNumberOfLinks returns the total amount of stored records.
func (db *JSONDB) GetNumberOfLinks(ctx context.Context) (int64, error) {
	db.linksMu.RLock()
	defer db.linksMu.RUnlock()

	return int64(len(db.Cache.Links)), nil
}

// GetNumberOfUsers returns the total amount of registered accounts.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.usersMu.RLock()
	defer db.usersMu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// Ping always succeeds for the file-backed backend.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache back to the JSON file.
func (db *JSONDB) Close() error {
	db.usersMu.RLock()
	db.linksMu.RLock()
	db.sessionsMu.RLock()
	defer db.usersMu.RUnlock()
	defer db.linksMu.RUnlock()
	defer db.sessionsMu.RUnlock()

	return db.flush()
}
