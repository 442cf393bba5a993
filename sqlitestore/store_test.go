// store_test.go: Tests for the SQLite credential store.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package sqlitestore_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/agilira/keyward"
	"github.com/agilira/keyward/sqlitestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testCredential(t *testing.T) *keyward.Credential {
	t.Helper()
	salt, err := keyward.GenerateSalt()
	require.NoError(t, err)
	return &keyward.Credential{
		ID:           "6f1c2c8e-2d0a-4d8e-9a57-0c4f8a3b9e11",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		KeySalt:      salt,
		CreatedAt:    time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestLoadEmpty(t *testing.T) {
	s := newStore(t)

	_, err := s.LoadCredential(context.Background())
	assert.ErrorIs(t, err, keyward.ErrNotInitialized)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	want := testCredential(t)

	require.NoError(t, s.SaveCredential(ctx, want))

	got, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.PasswordHash, got.PasswordHash)
	assert.Equal(t, want.KeySalt, got.KeySalt)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.LastLogin)
}

func TestSaveTwice(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveCredential(ctx, testCredential(t)))

	second := testCredential(t)
	second.ID = "0b9e8a4c-51f7-4c57-bb5e-7f2a1d3c6e90"
	err := s.SaveCredential(ctx, second)
	assert.ErrorIs(t, err, keyward.ErrAlreadyInitialized)
}

func TestRecordLogin(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	at := time.Date(2025, 3, 2, 8, 0, 0, 123000000, time.UTC)
	assert.ErrorIs(t, s.RecordLogin(ctx, at), keyward.ErrNotInitialized)

	require.NoError(t, s.SaveCredential(ctx, testCredential(t)))
	require.NoError(t, s.RecordLogin(ctx, at))

	got, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))
}

func TestCorruptSalt(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := sqlitestore.New(db)
	require.NoError(t, s.Migrate(ctx))

	_, err = db.ExecContext(ctx, `INSERT INTO auth_user (id, master_password_hash, master_key_salt, created_at)
		VALUES ('x', 'h', 'not-hex', '2025-03-01T12:30:00Z')`)
	require.NoError(t, err)

	_, err = s.LoadCredential(ctx)
	assert.ErrorIs(t, err, keyward.ErrInvalidSalt)

	// Close leaves a borrowed database open.
	require.NoError(t, s.Close())
	assert.NoError(t, db.PingContext(ctx))
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keyward.db")

	s, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	want := testCredential(t)
	require.NoError(t, s.SaveCredential(ctx, want))
	require.NoError(t, s.Close())

	s, err = sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.KeySalt, got.KeySalt)
}

func TestVaultOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	params := keyward.TestKDFParams()

	v := keyward.NewVault(s, keyward.NewSession(), keyward.WithKDFParams(params))
	require.NoError(t, v.SetMasterPassword(ctx, "CorrectHorse42Battery"))

	field, err := v.EncryptField(keyward.DomainSkills, []byte("Hello, Skill-ED!"))
	require.NoError(t, err)
	v.Logout()

	// A fresh session over the same database re-derives the same keys.
	v2 := keyward.NewVault(s, keyward.NewSession(), keyward.WithKDFParams(params))
	ok, err := v2.Login(ctx, "CorrectHorse42Battery")
	require.NoError(t, err)
	require.True(t, ok)

	plaintext, err := v2.DecryptField(keyward.DomainSkills, field)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Skill-ED!", string(plaintext))

	cred, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cred.LastLogin)
}
