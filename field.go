// field.go: Authenticated field encryption with ChaCha20-Poly1305.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"crypto/cipher"
	"encoding/hex"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// TagSize is the Poly1305 authentication tag appended to every ciphertext.
const TagSize = chacha20poly1305.Overhead

// EncryptedField is the persisted form of one encrypted value: two independent
// hex strings stored beside the record's cleartext metadata.
type EncryptedField struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// IsZero reports whether the field holds nothing, i.e. the column is NULL.
func (f EncryptedField) IsZero() bool {
	return f.Nonce == "" && f.Ciphertext == ""
}

func newAEAD(key *Key) (cipher.AEAD, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, withCode(ErrInvalidKeySize, goerrors.Wrap(err, ErrCodeInvalidKey, "failed to initialize cipher"))
	}
	return aead, nil
}

// Encrypt encrypts plaintext under key with a fresh random nonce and returns
// the nonce and the ciphertext (with its 16-byte tag) as hex.
//
// Example:
//
//	key := keyward.DeriveKey(master, keyward.DomainSkills)
//	nonceHex, ctHex, err := keyward.Encrypt(key, []byte("practice scales daily"))
//
// Empty plaintext is supported; the ciphertext is then the tag alone.
func Encrypt(key Key, plaintext []byte) (nonceHex, ciphertextHex string, err error) {
	return EncryptWithAAD(key, plaintext, nil)
}

// EncryptWithAAD is Encrypt with additional authenticated data. The aad is
// not stored; the same bytes must be passed to DecryptWithAAD. Binding a
// record ID this way stops a ciphertext from being copied to another record.
func EncryptWithAAD(key Key, plaintext, aad []byte) (nonceHex, ciphertextHex string, err error) {
	aead, err := newAEAD(&key)
	if err != nil {
		return "", "", err
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return "", "", err
	}

	ciphertext := aead.Seal(nil, nonce[:], plaintext, aad) // #nosec G407 -- nonce is generated from crypto/rand
	return nonce.Hex(), hex.EncodeToString(ciphertext), nil
}

// Decrypt authenticates and decrypts a field produced by Encrypt.
//
// It fails with ErrInvalidNonce when nonceHex is not 12 bytes of hex, with
// ErrMalformedCiphertext when ciphertextHex is not hex, and with ErrDecrypt
// when authentication fails or the ciphertext is shorter than the tag. ErrDecrypt carries the
// same message whether the key was wrong, the ciphertext was altered or the
// nonce did not match.
func Decrypt(key Key, nonceHex, ciphertextHex string) ([]byte, error) {
	return DecryptWithAAD(key, nonceHex, ciphertextHex, nil)
}

// DecryptWithAAD is Decrypt for fields sealed with EncryptWithAAD.
func DecryptWithAAD(key Key, nonceHex, ciphertextHex string, aad []byte) ([]byte, error) {
	aead, err := newAEAD(&key)
	if err != nil {
		return nil, err
	}

	nonce, err := NonceFromHex(nonceHex)
	if err != nil {
		return nil, err
	}

	if len(ciphertextHex)%2 != 0 {
		return nil, withCode(ErrMalformedCiphertext, goerrors.New(ErrCodeCiphertext, "ciphertext hex has odd length"))
	}
	buf := getBuffer(len(ciphertextHex) / 2)
	defer putBuffer(buf)

	n, err := hex.Decode(*buf, []byte(ciphertextHex))
	if err != nil {
		return nil, withCode(ErrMalformedCiphertext, goerrors.Wrap(err, ErrCodeCiphertext, "failed to decode hex ciphertext"))
	}
	ciphertext := (*buf)[:n]
	// A ciphertext too short to hold a tag fails like any other forgery.
	if len(ciphertext) < TagSize {
		return nil, errAuthFailed()
	}

	plaintext, err := aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return nil, errAuthFailed()
	}
	return plaintext, nil
}

// errAuthFailed is the one error for every authentication failure.
func errAuthFailed() error {
	return withCode(ErrDecrypt, goerrors.New(ErrCodeDecrypt, "message authentication failed"))
}

// EncryptField is Encrypt returning the struct form.
func EncryptField(key Key, plaintext []byte) (EncryptedField, error) {
	nonceHex, ctHex, err := Encrypt(key, plaintext)
	if err != nil {
		return EncryptedField{}, err
	}
	return EncryptedField{Nonce: nonceHex, Ciphertext: ctHex}, nil
}

// DecryptField is Decrypt taking the struct form.
func DecryptField(key Key, field EncryptedField) ([]byte, error) {
	return Decrypt(key, field.Nonce, field.Ciphertext)
}

// EncryptString is a convenience wrapper around EncryptField for text fields.
func EncryptString(key Key, plaintext string) (EncryptedField, error) {
	return EncryptField(key, []byte(plaintext))
}

// DecryptString is a convenience wrapper around DecryptField for text fields.
func DecryptString(key Key, field EncryptedField) (string, error) {
	plaintext, err := DecryptField(key, field)
	if err != nil {
		return "", err
	}
	defer Zeroize(plaintext)
	return string(plaintext), nil
}
