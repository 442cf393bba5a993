// store_test.go: Test cases for the in-memory credential store.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward_test

import (
	"context"
	"testing"
	"time"

	"github.com/agilira/keyward"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := keyward.NewMemoryStore()

	_, err := s.LoadCredential(ctx)
	assert.ErrorIs(t, err, keyward.ErrNotInitialized)
	assert.ErrorIs(t, s.RecordLogin(ctx, time.Now()), keyward.ErrNotInitialized)

	cred := &keyward.Credential{
		ID:           "cred-1",
		PasswordHash: "$argon2id$...",
		KeySalt:      fixedSalt(3),
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveCredential(ctx, cred))
	assert.ErrorIs(t, s.SaveCredential(ctx, cred), keyward.ErrAlreadyInitialized)

	// Later changes to the caller's struct do not reach the store.
	cred.PasswordHash = "changed"
	got, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$...", got.PasswordHash)
	assert.Equal(t, fixedSalt(3), got.KeySalt)
	assert.Nil(t, got.LastLogin)

	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordLogin(ctx, at))

	got, err = s.LoadCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, at, *got.LastLogin)

	// Returned records are copies.
	*got.LastLogin = time.Time{}
	again, err := s.LoadCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, at, *again.LastLogin)
}
