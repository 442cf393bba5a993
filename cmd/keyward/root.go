// root.go: Root command, global flags and the per-invocation vault.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agilira/keyward"
	"github.com/agilira/keyward/sqlitestore"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	dbPath     string
	configPath string
	verbose    bool

	cfg    keyward.Config
	logger *slog.Logger
	store  *sqlitestore.Store
	vault  *keyward.Vault
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "keyward",
		Short: "Zero-knowledge master password and field encryption",
		Long: `keyward manages the master password of a local database and encrypts
individual fields with keys derived from it.

Nothing secret is written to disk: the database keeps an Argon2id verifier
hash and a random salt, and every command re-derives the master key from the
password it is given.

The password is read from the terminal, or from KEYWARD_PASSWORD when stdin
is not a terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the SQLite database (default from config, then keyward.db)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(a),
		newLoginCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a.cfg = keyward.DefaultConfig()
	if a.configPath != "" {
		cfg, err := keyward.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.dbPath == "" {
		a.dbPath = a.cfg.DatabasePath
	}
	a.logger.Debug("configuration loaded", "database", a.dbPath, "config", a.configPath)
	return nil
}

// openVault opens the database and builds a logged-out vault over it.
func (a *app) openVault(ctx context.Context) (*keyward.Vault, error) {
	if a.vault != nil {
		return a.vault, nil
	}
	store, err := sqlitestore.Open(ctx, a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.dbPath, err)
	}
	a.store = store

	opts := append(a.cfg.VaultOptions(), keyward.WithLogger(a.logger))
	a.vault = keyward.NewVault(store, keyward.NewSession(), opts...)
	return a.vault, nil
}

// unlock opens the vault and logs in with the password from the terminal or
// the environment.
func (a *app) unlock(cmd *cobra.Command) (*keyward.Vault, error) {
	v, err := a.openVault(cmd.Context())
	if err != nil {
		return nil, err
	}
	password, err := readPasswordInput(cmd, "Master password: ")
	if err != nil {
		return nil, err
	}
	ok, err := v.Login(cmd.Context(), password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errWrongPassword
	}
	return v, nil
}

// run wraps a subcommand body so the vault is logged out and the database
// closed whether or not the body fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) close() error {
	if a.vault != nil {
		a.vault.Logout()
	}
	if a.store != nil {
		err := a.store.Close()
		a.store, a.vault = nil, nil
		return err
	}
	return nil
}
