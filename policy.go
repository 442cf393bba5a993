// policy.go: Master password strength rules.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	goerrors "github.com/agilira/go-errors"
)

// PasswordPolicy describes what a master password must contain. It is applied
// when the password is set, never at login.
type PasswordPolicy struct {
	MinLength    int  `json:"min_length" yaml:"min_length"`
	RequireUpper bool `json:"require_upper" yaml:"require_upper"`
	RequireLower bool `json:"require_lower" yaml:"require_lower"`
	RequireDigit bool `json:"require_digit" yaml:"require_digit"`
}

// DefaultPasswordPolicy requires 12 characters with upper case, lower case
// and a digit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    12,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// Validate returns an ErrValidation error listing every rule password breaks.
// Length is counted in characters, not bytes.
func (p PasswordPolicy) Validate(password string) error {
	if password == "" {
		return withCode(ErrValidation, goerrors.New(ErrCodeValidation, "password cannot be empty"))
	}

	var problems []string
	if n := utf8.RuneCountInString(password); n < p.MinLength {
		problems = append(problems, fmt.Sprintf("at least %d characters (got %d)", p.MinLength, n))
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if p.RequireUpper && !upper {
		problems = append(problems, "an uppercase letter")
	}
	if p.RequireLower && !lower {
		problems = append(problems, "a lowercase letter")
	}
	if p.RequireDigit && !digit {
		problems = append(problems, "a digit")
	}

	if len(problems) > 0 {
		return withCode(ErrValidation, goerrors.New(ErrCodeValidation,
			"password must contain "+strings.Join(problems, ", ")))
	}
	return nil
}
