// keys.go: Fixed-size secret types, hex codecs, randomness and zeroization.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// Sizes of the fixed-length secrets handled by this package.
const (
	// KeySize is the size of master and domain keys (256 bits).
	KeySize = 32

	// NonceSize is the ChaCha20-Poly1305 nonce size (96 bits).
	NonceSize = 12

	// SaltSize is the size of the master key derivation salt (128 bits).
	SaltSize = 16
)

// Key is a 256-bit master or domain key.
//
// Printing a Key with the fmt package yields a redacted placeholder. Use
// KeyToHex only where the raw material must leave the process, which the
// vault never does.
type Key [KeySize]byte

// Nonce is a 96-bit AEAD nonce. A nonce is used at most once per key.
type Nonce [NonceSize]byte

// Salt is the 128-bit random salt stored beside the credential record.
type Salt [SaltSize]byte

// NewKey copies b into a Key. It fails with ErrInvalidKeySize unless b is
// exactly KeySize bytes long.
func NewKey(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, withCode(ErrInvalidKeySize, goerrors.New(ErrCodeInvalidKey,
			fmt.Sprintf("key must be %d bytes, got %d", KeySize, len(b))))
	}
	copy(k[:], b)
	return k, nil
}

// KeyFromHex decodes a hexadecimal key.
func KeyFromHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, withCode(ErrInvalidKeySize, goerrors.Wrap(err, ErrCodeInvalidKey, "failed to decode hex key"))
	}
	defer Zeroize(b)
	return NewKey(b)
}

// KeyToHex encodes a key as lowercase hex.
func KeyToHex(k Key) string {
	return hex.EncodeToString(k[:])
}

// GenerateKey returns a random key from crypto/rand.
func GenerateKey() (Key, error) {
	var k Key
	if err := readRandom(k[:]); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Zeroize overwrites the key in place.
func (k *Key) Zeroize() {
	Zeroize(k[:])
}

// IsZero reports whether every byte of the key is zero.
func (k Key) IsZero() bool {
	var acc byte
	for _, b := range k {
		acc |= b
	}
	return acc == 0
}

// Fingerprint returns the first 8 bytes of SHA-256 over the key as hex. It is
// safe to log and identifies a key without exposing it.
func (k Key) Fingerprint() string {
	sum := sha256.Sum256(k[:])
	return fmt.Sprintf("%016x", sum[:8])
}

// String implements fmt.Stringer with a redacted value.
func (k Key) String() string {
	return "Key(REDACTED)"
}

// GoString implements fmt.GoStringer with a redacted value so %#v does not
// print key bytes either.
func (k Key) GoString() string {
	return k.String()
}

// NewSalt copies b into a Salt, failing with ErrInvalidSalt on a wrong length.
func NewSalt(b []byte) (Salt, error) {
	var s Salt
	if len(b) != SaltSize {
		return s, withCode(ErrInvalidSalt, goerrors.New(ErrCodeInvalidSalt,
			fmt.Sprintf("salt must be %d bytes, got %d", SaltSize, len(b))))
	}
	copy(s[:], b)
	return s, nil
}

// SaltFromHex decodes a salt as stored by the persistence layer.
func SaltFromHex(s string) (Salt, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Salt{}, withCode(ErrInvalidSalt, goerrors.Wrap(err, ErrCodeInvalidSalt, "failed to decode hex salt"))
	}
	return NewSalt(b)
}

// Hex encodes the salt for storage.
func (s Salt) Hex() string {
	return hex.EncodeToString(s[:])
}

// GenerateSalt returns a fresh random salt. It is called once, when the
// master password is set.
func GenerateSalt() (Salt, error) {
	var s Salt
	if err := readRandom(s[:]); err != nil {
		return Salt{}, err
	}
	return s, nil
}

// NonceFromHex decodes a stored nonce, failing with ErrInvalidNonce unless it
// is valid hex of exactly NonceSize bytes.
func NonceFromHex(s string) (Nonce, error) {
	var n Nonce
	b, err := hex.DecodeString(s)
	if err != nil {
		return n, withCode(ErrInvalidNonce, goerrors.Wrap(err, ErrCodeInvalidNonce, "failed to decode hex nonce"))
	}
	if len(b) != NonceSize {
		return n, withCode(ErrInvalidNonce, goerrors.New(ErrCodeInvalidNonce,
			fmt.Sprintf("nonce must be %d bytes, got %d", NonceSize, len(b))))
	}
	copy(n[:], b)
	return n, nil
}

// Hex encodes the nonce for storage.
func (n Nonce) Hex() string {
	return hex.EncodeToString(n[:])
}

// GenerateNonce returns a fresh random nonce.
func GenerateNonce() (Nonce, error) {
	var n Nonce
	if err := readRandom(n[:]); err != nil {
		return Nonce{}, err
	}
	return n, nil
}

// Zeroize securely wipes a byte slice in place.
func Zeroize(b []byte) {
	clearBuffer(b)
}

// randReader is swapped in tests to exercise random source failures.
var randReader io.Reader = rand.Reader

func readRandom(b []byte) error {
	if _, err := io.ReadFull(randReader, b); err != nil {
		return withCode(ErrRandom, goerrors.Wrap(err, ErrCodeRandom, "failed to read random bytes"))
	}
	return nil
}
