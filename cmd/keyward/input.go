// input.go: Password input from the terminal or the environment.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordEnv names the variable read when stdin is not a terminal.
const passwordEnv = "KEYWARD_PASSWORD"

var (
	errWrongPassword    = errors.New("wrong master password")
	errPasswordMismatch = errors.New("passwords do not match")
	errNoPassword       = fmt.Errorf("stdin is not a terminal and %s is not set", passwordEnv)
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// readPasswordInput prompts on stderr and reads without echo when stdin is a
// terminal. Otherwise it takes the password from KEYWARD_PASSWORD.
func readPasswordInput(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 -- file descriptors fit in int
	if !isTerminal(fd) {
		pw, ok := os.LookupEnv(passwordEnv)
		if !ok {
			return "", errNoPassword
		}
		return pw, nil
	}

	w := cmd.ErrOrStderr()
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// readNewPassword reads a password twice on a terminal and checks that both
// entries match. From the environment it is read once.
func readNewPassword(cmd *cobra.Command) (string, error) {
	first, err := readPasswordInput(cmd, "New master password: ")
	if err != nil {
		return "", err
	}
	if !isTerminal(int(os.Stdin.Fd())) { // #nosec G115 -- file descriptors fit in int
		return first, nil
	}
	second, err := readPasswordInput(cmd, "Repeat master password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}
