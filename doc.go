// Package keyward provides zero-knowledge key management and field encryption
// for local-first applications that keep sensitive fields in an otherwise
// unencrypted single-user database.
//
// The package offers:
//   - Argon2id password hashing (PHC strings) to verify the login password
//   - Argon2id master key derivation from the password and a stored salt
//   - SHA-256 domain key derivation, one independent key per purpose
//   - ChaCha20-Poly1305 field encryption with hex-encoded nonce and ciphertext
//   - A lock-guarded Session that holds the master key only while logged in
//   - A Vault wiring login and logout over a pluggable CredentialStore
//   - Chunked authenticated encryption for exports
//
// Nothing secret is persisted: the store keeps a verifier hash and a random
// salt. The master key is re-derived at every login and wiped on logout.
//
// # Quick Start
//
//	session := keyward.NewSession()
//	vault := keyward.NewVault(keyward.NewMemoryStore(), session)
//
//	// First run
//	if err := vault.SetMasterPassword(ctx, "CorrectHorse42Battery"); err != nil {
//		log.Fatal(err)
//	}
//
//	// Every later run
//	ok, err := vault.Login(ctx, "CorrectHorse42Battery")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !ok {
//		log.Fatal("wrong password")
//	}
//
//	field, err := vault.EncryptField(keyward.DomainSkills, []byte("practice scales daily"))
//	// store field.Nonce and field.Ciphertext beside the skill row
//
//	notes, err := vault.DecryptField(keyward.DomainSkills, field)
//
//	vault.Logout()
//
// # Primitives
//
// The building blocks are usable without a Vault:
//
//	hash, _ := keyward.HashPassword(password)
//	ok, _ := keyward.VerifyPassword(password, hash)
//
//	salt, _ := keyward.GenerateSalt()
//	master, _ := keyward.DeriveMasterKey(password, salt)
//	defer master.Zeroize()
//
//	key := keyward.DeriveKey(master, keyward.DomainSettings)
//	nonceHex, ctHex, _ := keyward.Encrypt(key, []byte(`{"theme":"dark"}`))
//	plaintext, err := keyward.Decrypt(key, nonceHex, ctHex)
//
// # Error Handling
//
// Every failure is returned, never replaced by a default. All crypto failures
// match ErrCrypto; more specific sentinels (ErrInvalidKeySize, ErrInvalidNonce,
// ErrMalformedCiphertext, ErrDecrypt, ErrMalformedHash, ErrKDFParams) narrow
// the cause. Errors also carry a code from github.com/agilira/go-errors.
//
//	plaintext, err := keyward.Decrypt(key, nonceHex, ctHex)
//	if errors.Is(err, keyward.ErrDecrypt) {
//		// wrong key or tampered data; the error does not say which
//	}
//
// # Concurrency
//
// Hashing, derivation and encryption are synchronous and safe for concurrent
// use. Session is the only shared mutable state and is guarded by one mutex.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package keyward
