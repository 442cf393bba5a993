// store.go: Credential record and the persistence contract behind the vault.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
)

// Credential is the single stored login record. It holds only the verifier
// hash and the key salt; neither the password nor the master key is stored.
//
// KeySalt is generated once when the password is set and never changes:
// every domain key derives from it, so a new salt would orphan every
// encrypted field.
type Credential struct {
	ID           string     `json:"id"`
	PasswordHash string     `json:"password_hash"`
	KeySalt      Salt       `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// CredentialStore persists the credential record. Implementations must be
// safe for concurrent use.
type CredentialStore interface {
	// LoadCredential returns the record, or an error matching
	// ErrNotInitialized when none has been saved.
	LoadCredential(ctx context.Context) (*Credential, error)

	// SaveCredential stores a new record. It fails with an error matching
	// ErrAlreadyInitialized when one already exists.
	SaveCredential(ctx context.Context, c *Credential) error

	// RecordLogin updates the last login time.
	RecordLogin(ctx context.Context, at time.Time) error
}

// MemoryStore is an in-process CredentialStore.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadCredential implements CredentialStore. The returned record is a copy.
func (m *MemoryStore) LoadCredential(_ context.Context) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return nil, withCode(ErrNotInitialized, goerrors.New(ErrCodeNotInitialized, "no credential stored"))
	}
	c := *m.cred
	if m.cred.LastLogin != nil {
		t := *m.cred.LastLogin
		c.LastLogin = &t
	}
	return &c, nil
}

// SaveCredential implements CredentialStore.
func (m *MemoryStore) SaveCredential(_ context.Context, c *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred != nil {
		return withCode(ErrAlreadyInitialized, goerrors.New(ErrCodeAlreadyInit, "credential already stored"))
	}
	stored := *c
	m.cred = &stored
	return nil
}

// RecordLogin implements CredentialStore.
func (m *MemoryStore) RecordLogin(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return withCode(ErrNotInitialized, goerrors.New(ErrCodeNotInitialized, "no credential stored"))
	}
	m.cred.LastLogin = &at
	return nil
}
