// commands.go: init, login, encrypt, decrypt, export and import.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/agilira/keyward"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Set the master password of a new database",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			v, err := a.openVault(cmd.Context())
			if err != nil {
				return err
			}
			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}
			if err := v.SetMasterPassword(cmd.Context(), password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "master password set for %s\n", a.dbPath)
			return nil
		}),
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the master password",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if _, err := a.unlock(cmd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "login succeeded")
			return nil
		}),
	}
}

func newEncryptCmd(a *app) *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "encrypt [plaintext]",
		Short: "Encrypt a value under a domain key",
		Long: `Encrypt the argument, or stdin when no argument is given, and print the
nonce and ciphertext as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			plaintext, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			defer keyward.Zeroize(plaintext)

			v, err := a.unlock(cmd)
			if err != nil {
				return err
			}
			field, err := v.EncryptField(domain, plaintext)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(field)
		}),
	}
	cmd.Flags().StringVar(&domain, "domain", "", "key domain, e.g. skills, habits, settings")
	_ = cmd.MarkFlagRequired("domain")
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	var domain, nonce, ciphertext string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a value encrypted under a domain key",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			v, err := a.unlock(cmd)
			if err != nil {
				return err
			}
			plaintext, err := v.DecryptField(domain, keyward.EncryptedField{Nonce: nonce, Ciphertext: ciphertext})
			if err != nil {
				return err
			}
			defer keyward.Zeroize(plaintext)

			_, err = cmd.OutOrStdout().Write(plaintext)
			return err
		}),
	}
	cmd.Flags().StringVar(&domain, "domain", "", "key domain the value was encrypted under")
	cmd.Flags().StringVar(&nonce, "nonce", "", "hex nonce")
	cmd.Flags().StringVar(&ciphertext, "ciphertext", "", "hex ciphertext")
	for _, name := range []string{"domain", "nonce", "ciphertext"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Encrypt a file with the exports key",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			v, err := a.unlock(cmd)
			if err != nil {
				return err
			}
			src, err := os.Open(in) // #nosec G304 -- path is chosen by the operator
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 -- path is chosen by the operator
			if err != nil {
				return err
			}
			n, err := v.ExportTo(dst, src)
			if cerr := dst.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}
			a.logger.Debug("export written", "bytes", n, "path", out)
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d bytes to %s\n", n, out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&in, "in", "", "plaintext file to export")
	cmd.Flags().StringVar(&out, "out", "", "encrypted export to write")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Decrypt an export written by the export command",
		Long: `Decrypt an export into a file. The output is removed when the export fails
to authenticate, so a partial plaintext is never left behind.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			v, err := a.unlock(cmd)
			if err != nil {
				return err
			}
			src, err := os.Open(in) // #nosec G304 -- path is chosen by the operator
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 -- path is chosen by the operator
			if err != nil {
				return err
			}
			n, err := v.ImportFrom(dst, src)
			if cerr := dst.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d bytes to %s\n", n, out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&in, "in", "", "encrypted export to read")
	cmd.Flags().StringVar(&out, "out", "", "plaintext file to write")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func argOrStdin(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return b, nil
}
