// vault_idle_test.go: Test cases for the vault idle timeout.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVault_IdleTimeout(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestSession()
	var logs bytes.Buffer
	v := NewVault(NewMemoryStore(), s,
		WithKDFParams(TestKDFParams()),
		WithIdleTimeout(15*time.Minute),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, v.SetMasterPassword(ctx, "CorrectHorse42Battery"))

	field, err := v.EncryptField(DomainSkills, []byte("scales"))
	require.NoError(t, err)

	// Each use resets the idle clock.
	clock.Advance(10 * time.Minute)
	_, err = v.DecryptField(DomainSkills, field)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = v.ExportTo(io.Discard, bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)
	_, err = v.DecryptField(DomainSkills, field)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.False(t, s.IsAuthenticated())
	assert.Contains(t, logs.String(), "session expired after idle timeout")

	ok, err := v.Login(ctx, "CorrectHorse42Battery")
	require.NoError(t, err)
	require.True(t, ok)
	got, err := v.DecryptField(DomainSkills, field)
	require.NoError(t, err)
	assert.Equal(t, "scales", string(got))

	t.Run("import", func(t *testing.T) {
		clock.Advance(time.Hour)
		_, err := v.ImportFrom(io.Discard, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestVault_NoIdleTimeout(t *testing.T) {
	s, clock := newTestSession()
	v := NewVault(NewMemoryStore(), s, WithKDFParams(TestKDFParams()), WithIdleTimeout(0))
	require.NoError(t, v.SetMasterPassword(context.Background(), "CorrectHorse42Battery"))

	clock.Advance(30 * 24 * time.Hour)
	_, err := v.EncryptField(DomainHabits, []byte("run"))
	assert.NoError(t, err)
}

func TestConfig_VaultOptionsIdleTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 5 * time.Minute

	v := NewVault(NewMemoryStore(), NewSession(), cfg.VaultOptions()...)
	assert.Equal(t, 5*time.Minute, v.idleTimeout)

	cfg.IdleTimeout = 0
	v = NewVault(NewMemoryStore(), NewSession(), cfg.VaultOptions()...)
	assert.Zero(t, v.idleTimeout)
}
