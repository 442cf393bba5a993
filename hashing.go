// hashing.go: Argon2id password hashing for login verification.
//
// The verifier hash only gates authentication. It is never used as, or to
// derive, an encryption key: the master key comes from DeriveMasterKey with
// the separate key salt.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/argon2"
)

const (
	hashAlgorithm  = "argon2id"
	hashSaltSize   = 16
	hashOutputSize = 32

	minHashSaltSize   = 8
	minHashOutputSize = 16
	maxHashOutputSize = 64
)

// hashEncoding is the unpadded standard base64 used by PHC strings.
var hashEncoding = base64.RawStdEncoding

// HashPassword hashes password with Argon2id and the default parameters. The
// result is a self-describing PHC string that embeds a fresh random salt:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, DefaultKDFParams())
}

// HashPasswordWithParams is HashPassword with explicit Argon2id parameters.
func HashPasswordWithParams(password string, params *KDFParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	salt := make([]byte, hashSaltSize)
	if err := readRandom(salt); err != nil {
		return "", err
	}

	pw := []byte(password)
	defer Zeroize(pw)

	sum := argon2.IDKey(pw, salt, params.Time, params.Memory, params.Threads, hashOutputSize)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		hashAlgorithm, argon2.Version,
		params.Memory, params.Time, params.Threads,
		hashEncoding.EncodeToString(salt),
		hashEncoding.EncodeToString(sum),
	), nil
}

// VerifyPassword reports whether password matches the PHC string produced by
// HashPassword.
//
// A wrong password yields (false, nil). A string that cannot be parsed yields
// ErrMalformedHash, so callers can tell a failed login from a corrupt record.
// Parameters are read from the string itself.
func VerifyPassword(password, encoded string) (bool, error) {
	ph, err := parsePasswordHash(encoded)
	if err != nil {
		return false, err
	}

	pw := []byte(password)
	defer Zeroize(pw)

	// #nosec G115 -- output length bounded by parsePasswordHash
	sum := argon2.IDKey(pw, ph.salt, ph.params.Time, ph.params.Memory, ph.params.Threads, uint32(len(ph.hash)))
	defer Zeroize(sum)

	return subtle.ConstantTimeCompare(sum, ph.hash) == 1, nil
}

type passwordHash struct {
	params KDFParams
	salt   []byte
	hash   []byte
}

func malformedHash(msg string) error {
	return withCode(ErrMalformedHash, goerrors.New(ErrCodeMalformedHash, msg))
}

// parsePasswordHash splits and validates a PHC string.
func parsePasswordHash(encoded string) (*passwordHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, malformedHash("hash must have the form $argon2id$v=..$m=..,t=..,p=..$salt$hash")
	}
	if parts[1] != hashAlgorithm {
		return nil, malformedHash(fmt.Sprintf("unsupported algorithm %q", parts[1]))
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, malformedHash("missing version field")
	}
	v, err := strconv.Atoi(version)
	if err != nil || v != argon2.Version {
		return nil, malformedHash(fmt.Sprintf("unsupported argon2 version %q", version))
	}

	params, err := parseHashParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := hashEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, withCode(ErrMalformedHash, goerrors.Wrap(err, ErrCodeMalformedHash, "invalid salt encoding"))
	}
	if len(salt) < minHashSaltSize {
		return nil, malformedHash("salt too short")
	}

	hash, err := hashEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, withCode(ErrMalformedHash, goerrors.Wrap(err, ErrCodeMalformedHash, "invalid hash encoding"))
	}
	if len(hash) < minHashOutputSize || len(hash) > maxHashOutputSize {
		return nil, malformedHash(fmt.Sprintf("hash length %d out of range", len(hash)))
	}

	return &passwordHash{params: *params, salt: salt, hash: hash}, nil
}

// hashParams returns the Argon2id parameters recorded in a PHC string.
func hashParams(encoded string) (*KDFParams, error) {
	ph, err := parsePasswordHash(encoded)
	if err != nil {
		return nil, err
	}
	return &ph.params, nil
}

// parseHashParams parses "m=<kib>,t=<passes>,p=<lanes>" in any order.
func parseHashParams(s string) (*KDFParams, error) {
	var (
		params              KDFParams
		seenM, seenT, seenP bool
	)
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return nil, malformedHash("parameters must be m=..,t=..,p=..")
	}
	for _, field := range fields {
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, malformedHash(fmt.Sprintf("invalid parameter %q", field))
		}
		switch name {
		case "m":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || seenM {
				return nil, malformedHash("invalid memory parameter")
			}
			params.Memory, seenM = uint32(n), true
		case "t":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || seenT {
				return nil, malformedHash("invalid time parameter")
			}
			params.Time, seenT = uint32(n), true
		case "p":
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil || seenP {
				return nil, malformedHash("invalid parallelism parameter")
			}
			params.Threads, seenP = uint8(n), true
		default:
			return nil, malformedHash(fmt.Sprintf("unknown parameter %q", name))
		}
	}

	if err := params.Validate(); err != nil {
		return nil, withCode(ErrMalformedHash, goerrors.Wrap(err, ErrCodeMalformedHash, "parameters out of range"))
	}
	return &params, nil
}
