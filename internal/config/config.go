// Package config loads the optional .yacbi/config.json file that tunes
// argument normalization and inline-header detection for an indexing run.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	yerrors "github.com/kubinux/yacbi-go/internal/errors"
)

// Config mirrors the keys recognized under .yacbi/config.json (spec §6).
// All fields are optional; the zero value is a valid, empty configuration.
type Config struct {
	// ExtraArgs is appended to every compile command's argv, after the
	// argv the compilation database supplied.
	ExtraArgs []string `json:"extra_args"`

	// BannedArgs are dropped verbatim wherever they occur in a compile
	// command's argv (from the compilation database or from ExtraArgs).
	BannedArgs []string `json:"banned_args"`

	// Overrides is reserved and forwarded verbatim; it has no core
	// semantics (spec §6).
	Overrides map[string]interface{} `json:"overrides"`

	// InlineFiles is an ordered list of shell-style glob patterns,
	// case-sensitive, matched against absolute normalized paths. A
	// header matching one of these patterns is treated as "inline"
	// (§4.4): re-indexed only through a host source, never standalone.
	InlineFiles []string `json:"inline_files"`
}

// Load reads and parses the config file at path. A missing file is not an
// error — it yields the zero-value Config, since .yacbi/config.json is
// optional per spec §6. A present-but-malformed file is a ConfigError
// (fatal, per spec §7).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, yerrors.NewConfigError(path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, yerrors.NewConfigError(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, yerrors.NewConfigError(path, err)
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot be acted on: a banned
// pattern that is also forced via extra_args would be a self-contradicting
// configuration that silently drops the intended flag.
func (c *Config) Validate() error {
	banned := make(map[string]bool, len(c.BannedArgs))
	for _, b := range c.BannedArgs {
		banned[b] = true
	}
	for _, e := range c.ExtraArgs {
		if banned[e] {
			return fmt.Errorf("extra_args entry %q is also listed in banned_args", e)
		}
	}
	return nil
}
