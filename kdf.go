// kdf.go: Master key derivation (Argon2id) and domain key derivation (SHA-256).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"crypto/sha256"
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/argon2"
)

// Default Argon2id parameters, tuned for interactive login latency on
// commodity hardware.
const (
	// DefaultTime is the number of Argon2id passes.
	DefaultTime = 2

	// DefaultMemory is the Argon2id memory cost in KiB (19 MiB).
	DefaultMemory = 19 * 1024

	// DefaultThreads is the Argon2id lane count.
	DefaultThreads = 1
)

// Upper bounds accepted by KDFParams.Validate. Parameters come from stored
// hash strings, so they are bounded to keep a corrupt record from asking for
// gigabytes of memory.
const (
	maxTime    = 64
	maxMemory  = 1024 * 1024 // 1 GiB in KiB
	maxThreads = 64
)

// Well-known domain labels. Each labels an independent key derived from the
// master key.
const (
	DomainSkills   = "skills"
	DomainHabits   = "habits"
	DomainSettings = "settings"
	DomainExports  = "exports"
)

// KDFParams defines the Argon2id cost parameters.
//
// Example:
//
//	params := keyward.DefaultKDFParams()
//	params.Time = 3
//	key, err := keyward.DeriveMasterKeyWithParams(password, salt, params)
type KDFParams struct {
	// Time is the number of passes over memory.
	Time uint32 `json:"time" yaml:"time"`

	// Memory is the memory cost in KiB.
	Memory uint32 `json:"memory" yaml:"memory"`

	// Threads is the degree of parallelism.
	Threads uint8 `json:"threads" yaml:"threads"`
}

// DefaultKDFParams returns the interactive-login defaults: 2 passes, 19 MiB, 1 lane.
func DefaultKDFParams() *KDFParams {
	return &KDFParams{
		Time:    DefaultTime,
		Memory:  DefaultMemory,
		Threads: DefaultThreads,
	}
}

// TestKDFParams returns the cheapest parameters Validate accepts. Keys and
// hashes produced with them are only fit for tests.
func TestKDFParams() *KDFParams {
	return &KDFParams{
		Time:    1,
		Memory:  8,
		Threads: 1,
	}
}

// Validate checks the parameters against the Argon2id limits.
func (p *KDFParams) Validate() error {
	if p == nil {
		return withCode(ErrKDFParams, goerrors.New(ErrCodeKDFParams, "parameters cannot be nil"))
	}
	if p.Time == 0 || p.Time > maxTime {
		return withCode(ErrKDFParams, goerrors.New(ErrCodeKDFParams,
			fmt.Sprintf("time must be between 1 and %d, got %d", maxTime, p.Time)))
	}
	if p.Threads == 0 || p.Threads > maxThreads {
		return withCode(ErrKDFParams, goerrors.New(ErrCodeKDFParams,
			fmt.Sprintf("threads must be between 1 and %d, got %d", maxThreads, p.Threads)))
	}
	// Argon2 needs at least 8 KiB per lane.
	if p.Memory < 8*uint32(p.Threads) || p.Memory > maxMemory {
		return withCode(ErrKDFParams, goerrors.New(ErrCodeKDFParams,
			fmt.Sprintf("memory must be between %d and %d KiB, got %d", 8*uint32(p.Threads), maxMemory, p.Memory)))
	}
	return nil
}

// DeriveMasterKey derives the 256-bit master key from the password and the
// stored salt with the default Argon2id parameters.
//
// The derivation is deterministic: the master key is never stored and is
// re-derived at every login. Any password, including the empty one, is
// accepted; validating password strength is the caller's job.
func DeriveMasterKey(password string, salt Salt) (Key, error) {
	return DeriveMasterKeyWithParams(password, salt, DefaultKDFParams())
}

// DeriveMasterKeyWithParams is DeriveMasterKey with explicit parameters. It
// fails with ErrKDFParams when params is nil or out of range.
func DeriveMasterKeyWithParams(password string, salt Salt, params *KDFParams) (Key, error) {
	if err := params.Validate(); err != nil {
		return Key{}, err
	}

	pw := []byte(password)
	defer Zeroize(pw)

	out := argon2.IDKey(pw, salt[:], params.Time, params.Memory, params.Threads, KeySize)
	defer Zeroize(out)

	var k Key
	copy(k[:], out)
	return k, nil
}

// DeriveKey derives the key for one domain as SHA-256(master || domain).
//
// The master key has a fixed length, so two different labels never produce
// the same hash input. The same master key and label always give the same
// key, which is what lets a field encrypted today be decrypted after the next
// login.
func DeriveKey(master Key, domain string) Key {
	buf := getBuffer(KeySize + len(domain))
	defer putBuffer(buf)

	input := *buf
	copy(input, master[:])
	copy(input[KeySize:], domain)

	return Key(sha256.Sum256(input))
}
