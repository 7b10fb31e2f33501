// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repo wires meta.Meta, actionlog.Log, and kvstore.Store behind the
// Repo handle the engine's external operations accept, replacing the
// teacher's bare flag.String config stub with spf13/viper + spf13/cobra
// (grounded on steveyegge-beads's config stack), and its two near-identical
// config.Run/service/config.Run placeholders with the real background
// committer (committer.go) and process lifecycle (start.go, adapted
// verbatim from dca/internal/start).
package repo

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the engine's configuration surface (spec.md §6: "Configuration
// options recognized by the engine"), bound either programmatically or via
// viper from flags/env/file in cmd/tsmetactl.
type Config struct {
	// MaxTables upper-bounds tid (spec.md §6: "max_tables: u32").
	MaxTables int32 `mapstructure:"max_tables"`

	// TsdbID identifies this repo's shard, attached to every structured log
	// line and passed to ConfigFetcher.FetchConfig (spec.md §6: "tsdb_id").
	TsdbID int32 `mapstructure:"tsdb_id"`

	// RootDir is where the kvstore file lives (spec.md §6: "root_dir: path").
	RootDir string `mapstructure:"root_dir"`

	// CommitIntervalMS paces the background committer's drain loop
	// (SPEC_FULL §3 ambient concern; not named in spec.md's configuration
	// options, which only covers core-engine knobs).
	CommitIntervalMS int `mapstructure:"commit_interval_ms"`
}

// DefaultConfig returns the engine's out-of-the-box tuning.
func DefaultConfig() Config {
	return Config{
		MaxTables:        4096,
		TsdbID:           1,
		RootDir:          ".",
		CommitIntervalMS: 200,
	}
}

// LoadConfig binds v (already populated from flags/env/file by the caller,
// typically cmd/tsmetactl's cobra command) onto a Config seeded with
// DefaultConfig, and validates it.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if v != nil {
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("repo: unmarshal config: %w", err)
		}
	}
	return cfg, Validate(cfg)
}

// Validate rejects a structurally unusable configuration (spec.md §6's
// configuration options are all required to be sane before a repo opens).
func Validate(cfg Config) error {
	if cfg.MaxTables <= 0 {
		return fmt.Errorf("repo: max_tables must be positive, got %d", cfg.MaxTables)
	}
	if cfg.RootDir == "" {
		return fmt.Errorf("repo: root_dir must not be empty")
	}
	if cfg.CommitIntervalMS <= 0 {
		return fmt.Errorf("repo: commit_interval_ms must be positive, got %d", cfg.CommitIntervalMS)
	}
	return nil
}
