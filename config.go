// config.go: YAML configuration for vault parameters.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"fmt"
	"os"
	"time"

	goerrors "github.com/agilira/go-errors"
	"gopkg.in/yaml.v3"
)

// ErrCodeConfig is the code for configuration errors.
const ErrCodeConfig = "KEYWARD_CONFIG"

// Config collects the tunables of a vault installation.
//
//	database_path: ~/.local/share/skilled/skilled.db
//	idle_timeout: 15m
//	kdf:
//	  time: 2
//	  memory: 19456
//	  threads: 1
//	password_policy:
//	  min_length: 12
//	  require_upper: true
//	  require_lower: true
//	  require_digit: true
//
// Fields missing from the file keep their DefaultConfig value.
type Config struct {
	DatabasePath   string         `yaml:"database_path"`
	IdleTimeout    time.Duration  `yaml:"idle_timeout"`
	KDF            KDFParams      `yaml:"kdf"`
	PasswordPolicy PasswordPolicy `yaml:"password_policy"`
}

// DefaultConfig returns the defaults: Argon2id 19 MiB/2 passes/1 lane, the
// default password policy and no idle timeout.
func DefaultConfig() Config {
	return Config{
		DatabasePath:   "keyward.db",
		KDF:            *DefaultKDFParams(),
		PasswordPolicy: DefaultPasswordPolicy(),
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return cfg, goerrors.Wrap(err, ErrCodeConfig, fmt.Sprintf("failed to read config %s", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, goerrors.Wrap(err, ErrCodeConfig, fmt.Sprintf("failed to parse config %s", path))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the KDF parameters and the policy bounds.
func (c Config) Validate() error {
	if err := c.KDF.Validate(); err != nil {
		return err
	}
	if c.PasswordPolicy.MinLength < 1 {
		return goerrors.New(ErrCodeConfig, "password_policy.min_length must be positive")
	}
	if c.IdleTimeout < 0 {
		return goerrors.New(ErrCodeConfig, "idle_timeout cannot be negative")
	}
	return nil
}

// VaultOptions turns the configuration into vault options.
func (c Config) VaultOptions() []Option {
	kdf := c.KDF
	return []Option{
		WithKDFParams(&kdf),
		WithPasswordPolicy(c.PasswordPolicy),
		WithIdleTimeout(c.IdleTimeout),
	}
}
