// errors.go: Error taxonomy shared by the hasher, key derivation, field cipher and vault.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"errors"
	"fmt"
)

// ErrCrypto is the umbrella for every derivation, hashing, encryption and
// decryption failure. All crypto sentinels below match it with errors.Is.
var ErrCrypto = errors.New("keyward: crypto error")

// Crypto sentinels. Each wraps ErrCrypto.
var (
	// ErrInvalidKeySize is returned when key material is not exactly KeySize bytes.
	ErrInvalidKeySize = fmt.Errorf("%w: invalid key size", ErrCrypto)

	// ErrInvalidNonce is returned when a nonce is not valid hex or not NonceSize bytes.
	ErrInvalidNonce = fmt.Errorf("%w: invalid nonce", ErrCrypto)

	// ErrInvalidSalt is returned when a salt is not valid hex or not SaltSize bytes.
	ErrInvalidSalt = fmt.Errorf("%w: invalid salt", ErrCrypto)

	// ErrMalformedCiphertext is returned when a ciphertext cannot be decoded.
	ErrMalformedCiphertext = fmt.Errorf("%w: malformed ciphertext", ErrCrypto)

	// ErrDecrypt is returned for every authentication failure. It never says
	// whether the key was wrong or the data was modified.
	ErrDecrypt = fmt.Errorf("%w: decryption failed", ErrCrypto)

	// ErrMalformedHash is returned when a stored password hash cannot be parsed.
	ErrMalformedHash = fmt.Errorf("%w: malformed password hash", ErrCrypto)

	// ErrKDFParams is returned when Argon2id parameters are out of range.
	ErrKDFParams = fmt.Errorf("%w: invalid key derivation parameters", ErrCrypto)

	// ErrStream is returned when an export stream cannot be written or read,
	// or is misconfigured.
	ErrStream = fmt.Errorf("%w: export stream error", ErrCrypto)

	// ErrRandom is returned when the system random source fails.
	ErrRandom = fmt.Errorf("%w: random source failure", ErrCrypto)
)

// Non-crypto sentinels.
var (
	// ErrValidation is returned when caller input fails a precondition,
	// such as a password that does not meet the policy.
	ErrValidation = errors.New("keyward: validation error")

	// ErrNotAuthenticated is returned when an operation needs the master key
	// and the session is logged out. Callers must re-authenticate.
	ErrNotAuthenticated = errors.New("keyward: not authenticated")

	// ErrNotInitialized is returned when no credential record exists yet.
	ErrNotInitialized = errors.New("keyward: master password not set")

	// ErrAlreadyInitialized is returned when setting a master password twice.
	ErrAlreadyInitialized = errors.New("keyward: master password already set")
)

// Error codes for rich error handling
const (
	ErrCodeInvalidKey      = "KEYWARD_INVALID_KEY"
	ErrCodeInvalidNonce    = "KEYWARD_INVALID_NONCE"
	ErrCodeInvalidSalt     = "KEYWARD_INVALID_SALT"
	ErrCodeCiphertext      = "KEYWARD_MALFORMED_CIPHERTEXT"
	ErrCodeDecrypt         = "KEYWARD_DECRYPT"
	ErrCodeMalformedHash   = "KEYWARD_MALFORMED_HASH"
	ErrCodeKDFParams       = "KEYWARD_KDF_PARAMS"
	ErrCodeRandom          = "KEYWARD_RANDOM"
	ErrCodeValidation      = "KEYWARD_VALIDATION"
	ErrCodeNotAuth         = "KEYWARD_NOT_AUTHENTICATED"
	ErrCodeNotInitialized  = "KEYWARD_NOT_INITIALIZED"
	ErrCodeAlreadyInit     = "KEYWARD_ALREADY_INITIALIZED"
	ErrCodeStream          = "KEYWARD_STREAM"
	ErrCodeCredentialStore = "KEYWARD_CREDENTIAL_STORE"
)

// withCode joins a sentinel with a coded rich error from go-errors so that
// callers can match the sentinel with errors.Is and still log the code.
func withCode(sentinel, richErr error) error {
	return fmt.Errorf("%w: %w", sentinel, richErr)
}
