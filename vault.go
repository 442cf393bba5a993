// vault.go: Login, logout and field access wired over a CredentialStore and a Session.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// Vault ties the credential record to the session.
//
// Setting the master password stores a verifier hash and a key salt. Login
// verifies the password against the hash, re-derives the master key from the
// same password and the stored salt, and hands it to the session. Encrypted
// fields are then read and written through domain keys derived from it.
//
// Example:
//
//	session := keyward.NewSession()
//	v := keyward.NewVault(store, session)
//	ok, err := v.Login(ctx, password)
//	if err != nil || !ok {
//		return err
//	}
//	field, err := v.EncryptField(keyward.DomainSkills, []byte("notes"))
type Vault struct {
	store       CredentialStore
	session     *Session
	params      *KDFParams
	policy      PasswordPolicy
	idleTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Vault.
type Option func(*Vault)

// WithKDFParams sets the Argon2id parameters used when the master password is
// set. They are recorded in the stored hash, and Login derives the master key
// with the recorded parameters, so changing them later only affects new
// installations.
func WithKDFParams(p *KDFParams) Option {
	return func(v *Vault) {
		if p != nil {
			v.params = p
		}
	}
}

// WithPasswordPolicy sets the policy applied by SetMasterPassword.
func WithPasswordPolicy(p PasswordPolicy) Option {
	return func(v *Vault) {
		v.policy = p
	}
}

// WithIdleTimeout clears the session before a field or export operation when
// the master key has been idle for longer than d. Zero disables the check.
func WithIdleTimeout(d time.Duration) Option {
	return func(v *Vault) {
		if d > 0 {
			v.idleTimeout = d
		}
	}
}

// WithLogger sets the logger. Keys and passwords are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewVault returns a vault over store and session.
func NewVault(store CredentialStore, session *Session, opts ...Option) *Vault {
	v := &Vault{
		store:   store,
		session: session,
		params:  DefaultKDFParams(),
		policy:  DefaultPasswordPolicy(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Session returns the session the vault populates.
func (v *Vault) Session() *Session {
	return v.session
}

// Initialized reports whether a master password has been set.
func (v *Vault) Initialized(ctx context.Context) (bool, error) {
	_, err := v.store.LoadCredential(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotInitialized):
		return false, nil
	default:
		return false, err
	}
}

// SetMasterPassword creates the credential record and logs the session in.
//
// It fails with ErrValidation when password breaks the policy and with
// ErrAlreadyInitialized when a password is already set.
func (v *Vault) SetMasterPassword(ctx context.Context, password string) error {
	if err := v.policy.Validate(password); err != nil {
		return err
	}

	initialized, err := v.Initialized(ctx)
	if err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	if initialized {
		return withCode(ErrAlreadyInitialized, goerrors.New(ErrCodeAlreadyInit, "master password already set"))
	}

	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := HashPasswordWithParams(password, v.params)
	if err != nil {
		return err
	}
	master, err := DeriveMasterKeyWithParams(password, salt, v.params)
	if err != nil {
		return err
	}
	defer master.Zeroize()

	cred := &Credential{
		ID:           uuid.NewString(),
		PasswordHash: hash,
		KeySalt:      salt,
		CreatedAt:    timecache.CachedTime().UTC(),
	}
	if err := v.store.SaveCredential(ctx, cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	v.session.SetMasterKey(master)
	v.logger.InfoContext(ctx, "vault initialized", "credential_id", cred.ID)
	return nil
}

// Login verifies password and, on success, derives the master key into the
// session.
//
// A wrong password returns (false, nil) and leaves the session as it was.
// ErrNotInitialized means no password has been set; ErrMalformedHash means
// the stored record is corrupt. Login never retries.
func (v *Vault) Login(ctx context.Context, password string) (bool, error) {
	cred, err := v.store.LoadCredential(ctx)
	if err != nil {
		return false, err
	}

	ok, err := VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		v.logger.ErrorContext(ctx, "stored password hash is unreadable", "credential_id", cred.ID, "error", err)
		return false, err
	}
	if !ok {
		v.logger.WarnContext(ctx, "login rejected", "credential_id", cred.ID)
		return false, nil
	}

	// The key follows the parameters the password was set with, not the
	// current configuration.
	params, err := hashParams(cred.PasswordHash)
	if err != nil {
		return false, err
	}
	if *params != *v.params {
		v.logger.DebugContext(ctx, "stored key parameters differ from configuration",
			"memory_kib", params.Memory, "time", params.Time, "threads", params.Threads)
	}
	master, err := DeriveMasterKeyWithParams(password, cred.KeySalt, params)
	if err != nil {
		return false, err
	}
	defer master.Zeroize()
	v.session.SetMasterKey(master)

	if err := v.store.RecordLogin(ctx, timecache.CachedTime().UTC()); err != nil {
		// The session is valid; only the bookkeeping failed.
		v.logger.WarnContext(ctx, "failed to record login time", "error", err)
	}
	v.logger.InfoContext(ctx, "login succeeded", "credential_id", cred.ID)
	return true, nil
}

// Logout clears the session. Logging out twice is harmless.
func (v *Vault) Logout() {
	wasIn := v.session.IsAuthenticated()
	v.session.ClearMasterKey()
	if wasIn {
		v.logger.Info("logged out")
	}
}

// domainKey applies the idle timeout, then derives the key for domain.
func (v *Vault) domainKey(domain string) (Key, error) {
	if v.idleTimeout > 0 && v.session.ExpireIdle(v.idleTimeout) {
		v.logger.Info("session expired after idle timeout", "idle_timeout", v.idleTimeout)
	}
	return v.session.DomainKey(domain)
}

// EncryptField encrypts plaintext under the key for domain.
func (v *Vault) EncryptField(domain string, plaintext []byte) (EncryptedField, error) {
	key, err := v.domainKey(domain)
	if err != nil {
		return EncryptedField{}, err
	}
	defer key.Zeroize()
	return EncryptField(key, plaintext)
}

// DecryptField decrypts a field encrypted under the key for domain.
func (v *Vault) DecryptField(domain string, field EncryptedField) ([]byte, error) {
	key, err := v.domainKey(domain)
	if err != nil {
		return nil, err
	}
	defer key.Zeroize()
	return DecryptField(key, field)
}

// ExportTo encrypts everything read from src into dst under the exports key.
func (v *Vault) ExportTo(dst io.Writer, src io.Reader) (int64, error) {
	key, err := v.domainKey(DomainExports)
	if err != nil {
		return 0, err
	}
	defer key.Zeroize()

	w, err := NewExportWriter(dst, key)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, src)
	if err != nil {
		return n, fmt.Errorf("export failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("export failed: %w", err)
	}
	return n, nil
}

// ImportFrom decrypts an export produced by ExportTo from src into dst.
// Nothing is trusted until the final chunk authenticates; on error the bytes
// already written to dst must be discarded.
func (v *Vault) ImportFrom(dst io.Writer, src io.Reader) (int64, error) {
	key, err := v.domainKey(DomainExports)
	if err != nil {
		return 0, err
	}
	defer key.Zeroize()

	r, err := NewExportReader(src, key)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, r)
	if err != nil {
		return n, fmt.Errorf("import failed: %w", err)
	}
	return n, nil
}
