// Package sqlitestore implements keyward.CredentialStore on SQLite.
//
// The record lives in the auth_user table of the application database, next
// to the tables whose encrypted columns it protects. The salt is stored as
// hex and timestamps as RFC 3339 text.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/keyward"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_user (
    id TEXT PRIMARY KEY,
    master_password_hash TEXT NOT NULL,
    master_key_salt TEXT NOT NULL,
    created_at TEXT NOT NULL,
    last_login TEXT
);`

// Store is a CredentialStore backed by a SQLite database.
type Store struct {
	db    *sql.DB
	owned bool
	path  string
}

var _ keyward.CredentialStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the
// auth_user table exists. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection, and the
	// store serializes its few writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, owned: true, path: path}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps a database opened by the application. Call Migrate before use.
// Close does not close db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the auth_user table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create auth_user table: %w", err)
	}
	return nil
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Path returns the database path given to Open.
func (s *Store) Path() string {
	return s.path
}

// LoadCredential implements keyward.CredentialStore.
func (s *Store) LoadCredential(ctx context.Context) (*keyward.Credential, error) {
	var (
		c         keyward.Credential
		saltHex   string
		createdAt string
		lastLogin sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, master_password_hash, master_key_salt, created_at, last_login
		FROM auth_user
		ORDER BY created_at
		LIMIT 1
	`).Scan(&c.ID, &c.PasswordHash, &saltHex, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %w", keyward.ErrNotInitialized,
			goerrors.New(keyward.ErrCodeNotInitialized, "auth_user is empty"))
	}
	if err != nil {
		return nil, goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to load credential")
	}

	if c.KeySalt, err = keyward.SaltFromHex(saltHex); err != nil {
		return nil, fmt.Errorf("stored key salt for %s: %w", c.ID, err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("stored created_at for %s: %w", c.ID, err)
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("stored last_login for %s: %w", c.ID, err)
		}
		c.LastLogin = &t
	}
	return &c, nil
}

// SaveCredential implements keyward.CredentialStore. The existence check and
// the insert run in one transaction.
func (s *Store) SaveCredential(ctx context.Context, c *keyward.Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM auth_user`).Scan(&n); err != nil {
		return goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to count credentials")
	}
	if n > 0 {
		return fmt.Errorf("%w: %w", keyward.ErrAlreadyInitialized,
			goerrors.New(keyward.ErrCodeAlreadyInit, "auth_user already holds a credential"))
	}

	var lastLogin sql.NullString
	if c.LastLogin != nil {
		lastLogin = sql.NullString{String: c.LastLogin.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO auth_user (id, master_password_hash, master_key_salt, created_at, last_login)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.PasswordHash, c.KeySalt.Hex(), c.CreatedAt.UTC().Format(time.RFC3339Nano), lastLogin)
	if err != nil {
		return goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to insert credential")
	}

	if err := tx.Commit(); err != nil {
		return goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to commit credential")
	}
	return nil
}

// RecordLogin implements keyward.CredentialStore.
func (s *Store) RecordLogin(ctx context.Context, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE auth_user SET last_login = ?`, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to record login")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, keyward.ErrCodeCredentialStore, "failed to record login")
	}
	if n == 0 {
		return fmt.Errorf("%w: %w", keyward.ErrNotInitialized,
			goerrors.New(keyward.ErrCodeNotInitialized, "auth_user is empty"))
	}
	return nil
}
