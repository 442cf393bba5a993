// hashing_test.go: Test cases for Argon2id password hashing.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward_test

import (
	"strings"
	"testing"

	"github.com/agilira/keyward"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Format(t *testing.T) {
	hash, err := keyward.HashPassword("CorrectHorse42Battery")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"), hash)
	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6)
	assert.NotContains(t, parts[4], "=", "salt must be unpadded")
	assert.NotContains(t, parts[5], "=", "hash must be unpadded")

	ok, err := keyward.VerifyPassword("CorrectHorse42Battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	params := keyward.TestKDFParams()
	passwords := []string{"", "a", "pässwörd ünïcødé", strings.Repeat("long", 256)}

	for _, pw := range passwords {
		hash, err := keyward.HashPasswordWithParams(pw, params)
		require.NoError(t, err)

		ok, err := keyward.VerifyPassword(pw, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", pw)

		ok, err = keyward.VerifyPassword(pw+"x", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestHashPassword_FreshSalt(t *testing.T) {
	params := keyward.TestKDFParams()

	h1, err := keyward.HashPasswordWithParams("same", params)
	require.NoError(t, err)
	h2, err := keyward.HashPasswordWithParams("same", params)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestHashPassword_InvalidParams(t *testing.T) {
	_, err := keyward.HashPasswordWithParams("pw", &keyward.KDFParams{})
	assert.ErrorIs(t, err, keyward.ErrKDFParams)
}

func TestVerifyPassword_ParamsFromString(t *testing.T) {
	// A hash made with other parameters still verifies.
	hash, err := keyward.HashPasswordWithParams("pw", &keyward.KDFParams{Time: 3, Memory: 32, Threads: 2})
	require.NoError(t, err)
	assert.Contains(t, hash, "$m=32,t=3,p=2$")

	ok, err := keyward.VerifyPassword("pw", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	valid, err := keyward.HashPasswordWithParams("pw", keyward.TestKDFParams())
	require.NoError(t, err)
	parts := strings.Split(valid, "$")
	salt, sum := parts[4], parts[5]

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not phc", "not-a-hash"},
		{"bcrypt", "$2b$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234"},
		{"argon2i", "$argon2i$v=19$m=8,t=1,p=1$" + salt + "$" + sum},
		{"missing version", "$argon2id$m=8,t=1,p=1$" + salt + "$" + sum + "$x"},
		{"old version", "$argon2id$v=16$m=8,t=1,p=1$" + salt + "$" + sum},
		{"bad version", "$argon2id$x=19$m=8,t=1,p=1$" + salt + "$" + sum},
		{"missing param", "$argon2id$v=19$m=8,t=1$" + salt + "$" + sum},
		{"duplicate param", "$argon2id$v=19$m=8,m=8,p=1$" + salt + "$" + sum},
		{"unknown param", "$argon2id$v=19$m=8,t=1,x=1$" + salt + "$" + sum},
		{"non-numeric param", "$argon2id$v=19$m=lots,t=1,p=1$" + salt + "$" + sum},
		{"zero time", "$argon2id$v=19$m=8,t=0,p=1$" + salt + "$" + sum},
		{"huge memory", "$argon2id$v=19$m=4294967295,t=1,p=1$" + salt + "$" + sum},
		{"bad salt base64", "$argon2id$v=19$m=8,t=1,p=1$!!!$" + sum},
		{"short salt", "$argon2id$v=19$m=8,t=1,p=1$YWJj$" + sum},
		{"bad hash base64", "$argon2id$v=19$m=8,t=1,p=1$" + salt + "$!!!"},
		{"short hash", "$argon2id$v=19$m=8,t=1,p=1$" + salt + "$YWJj"},
		{"padded salt", "$argon2id$v=19$m=8,t=1,p=1$" + salt + "==$" + sum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := keyward.VerifyPassword("pw", tt.encoded)
			assert.False(t, ok)
			assert.ErrorIs(t, err, keyward.ErrMalformedHash)
			assert.ErrorIs(t, err, keyward.ErrCrypto)
		})
	}
}
