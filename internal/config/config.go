// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config reads command defaults from VARCHAIN_* environment
// variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDocuments = "VARCHAIN_DOC"
	EnvDB        = "VARCHAIN_DB"
	EnvAttempt   = "VARCHAIN_ATTEMPT"
	EnvSeed      = "VARCHAIN_SEED"
	EnvNoStdlib  = "VARCHAIN_NO_STDLIB"
	EnvLogLevel  = "VARCHAIN_LOG_LEVEL"
	EnvLogFormat = "VARCHAIN_LOG_FORMAT"
)

// Config holds the defaults of the varchain command.
type Config struct {
	Documents []string // Files or directories, split with filepath.SplitList
	DBPath    string   // Empty keeps attempts in memory
	Attempt   string
	Seed      int64
	NoStdlib  bool
	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Attempt:   "default",
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// Load returns Default overlaid with values from the given .env files and
// then the process environment. The process environment wins, as it does
// with godotenv.Load. Missing files are skipped.
func Load(files ...string) (Config, error) {
	env := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", file, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	})
}

// FromLookup returns Default overlaid with the values lookup finds.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if v, ok := lookup(EnvDocuments); ok && v != "" {
		cfg.Documents = filepath.SplitList(v)
	}
	if v, ok := lookup(EnvDB); ok {
		cfg.DBPath = v
	}
	if v, ok := lookup(EnvAttempt); ok && v != "" {
		cfg.Attempt = v
	}
	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSeed, err)
		}
		cfg.Seed = seed
	}
	if v, ok := lookup(EnvNoStdlib); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvNoStdlib, err)
		}
		cfg.NoStdlib = b
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	return cfg, cfg.Validate()
}

// Validate checks the log settings.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}
