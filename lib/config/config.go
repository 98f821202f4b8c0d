// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production rehearsals against forked state.
	Staging Environment = "staging"
	// Production is for long-running nodes.
	Production Environment = "production"
)

// EnvironmentVariable names the config file for [Load].
const EnvironmentVariable = "UNITROLLER_CONFIG"

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Node configures the execution host service.
	Node NodeConfig `yaml:"node"`

	// Deployment names the deployment file applied when the node
	// starts with no saved state.
	Deployment DeploymentConfig `yaml:"deployment"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Node       *NodeConfig       `yaml:"node,omitempty"`
	Deployment *DeploymentConfig `yaml:"deployment,omitempty"`
	Log        *LogConfig        `yaml:"log,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for node data.
	Root string `yaml:"root"`

	// State is where snapshots are written.
	State string `yaml:"state"`
}

// NodeConfig configures the execution host service.
type NodeConfig struct {
	// SocketPath is the Unix socket the node listens on.
	// Default: ${UNITROLLER_ROOT}/node.sock
	SocketPath string `yaml:"socket_path"`

	// SnapshotFile is the state file restored at startup and written
	// on shutdown when Persist is set.
	// Default: ${UNITROLLER_ROOT}/state/node.snapshot
	SnapshotFile string `yaml:"snapshot_file"`

	// Compression is the snapshot compression: none, lz4, or zstd.
	// Default: zstd
	Compression string `yaml:"compression"`

	// Persist writes a snapshot to SnapshotFile on shutdown.
	// Default: false (development), true (production)
	Persist bool `yaml:"persist"`
}

// DeploymentConfig selects a deployment file and network.
type DeploymentConfig struct {
	// File is the deployment YAML applied to a fresh node. Empty
	// means start with an empty host.
	File string `yaml:"file"`

	// Network selects the address book within File.
	Network string `yaml:"network"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text (development), json (production)
	Format string `yaml:"format"`
}

// Default returns the default configuration. Paths below the root are
// written relative to ${UNITROLLER_ROOT} and expanded by [LoadFile].
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "unitroller")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: "${UNITROLLER_ROOT}/state",
		},
		Node: NodeConfig{
			SocketPath:   "${UNITROLLER_ROOT}/node.sock",
			SnapshotFile: "${UNITROLLER_ROOT}/state/node.snapshot",
			Compression:  "zstd",
			Persist:      false,
		},
		Deployment: DeploymentConfig{
			Network: "local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the UNITROLLER_CONFIG environment
// variable. There are no fallbacks: if it is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your unitroller.yaml config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and similar
// path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: persist state and log for machines.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Node: &NodeConfig{
					Persist: true,
				},
				Log: &LogConfig{
					Format: "json",
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
	}

	if overrides.Node != nil {
		if overrides.Node.SocketPath != "" {
			c.Node.SocketPath = overrides.Node.SocketPath
		}
		if overrides.Node.SnapshotFile != "" {
			c.Node.SnapshotFile = overrides.Node.SnapshotFile
		}
		if overrides.Node.Compression != "" {
			c.Node.Compression = overrides.Node.Compression
		}
		// Persist is a bool, so we always apply it from overrides.
		c.Node.Persist = overrides.Node.Persist
	}

	if overrides.Deployment != nil {
		if overrides.Deployment.File != "" {
			c.Deployment.File = overrides.Deployment.File
		}
		if overrides.Deployment.Network != "" {
			c.Deployment.Network = overrides.Deployment.Network
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"UNITROLLER_ROOT": c.Paths.Root,
		"HOME":            os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["UNITROLLER_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Node.SocketPath = expandVars(c.Node.SocketPath, vars)
	c.Node.SnapshotFile = expandVars(c.Node.SnapshotFile, vars)
	c.Deployment.File = expandVars(c.Deployment.File, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.Node.SocketPath == "" {
		errs = append(errs, fmt.Errorf("node.socket_path is required"))
	}

	compressions := []string{"none", "lz4", "zstd"}
	if !slices.Contains(compressions, c.Node.Compression) {
		errs = append(errs, fmt.Errorf("node.compression must be one of: %v", compressions))
	}

	if c.Node.Persist && c.Node.SnapshotFile == "" {
		errs = append(errs, fmt.Errorf("node.snapshot_file is required when node.persist is set"))
	}

	if c.Deployment.File != "" && c.Deployment.Network == "" {
		errs = append(errs, fmt.Errorf("deployment.network is required when deployment.file is set"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	formats := []string{"text", "json"}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
		filepath.Dir(c.Node.SocketPath),
	}
	if c.Node.SnapshotFile != "" {
		paths = append(paths, filepath.Dir(c.Node.SnapshotFile))
	}

	for _, path := range paths {
		if path == "" || path == "." {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
