// Package daemon manages the agora daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Node       NodeConfig       `toml:"node"`
	API        APIConfig        `toml:"api"`
	Governance GovernanceConfig `toml:"governance"`
	Upgrade    UpgradeConfig    `toml:"upgrade"`
	Breaker    BreakerConfig    `toml:"breaker"`
	Council    CouncilConfig    `toml:"council"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NodeConfig identifies this node.
type NodeConfig struct {
	ID      string `toml:"id"`
	Network string `toml:"network"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// GovernanceConfig controls the proposal registry.
type GovernanceConfig struct {
	MinProposePower      uint64 `toml:"min_propose_power"`
	EnhancedProposePower uint64 `toml:"enhanced_propose_power"`
	ExecutionGraceDays   int    `toml:"execution_grace_days"`
	MaxActiveProposals   int    `toml:"max_active_proposals"`
}

// UpgradeConfig controls the job-aware upgrade scheduler.
// Durations are time.ParseDuration strings ("5s", "1m", "24h").
type UpgradeConfig struct {
	PollInterval      string `toml:"poll_interval"`
	GracePeriod       string `toml:"grace_period"`
	MaxDelay          string `toml:"max_delay"`
	MaxForcedAttempts int    `toml:"max_forced_attempts"`
}

// BreakerConfig controls the emergency circuit breaker.
type BreakerConfig struct {
	FailureThreshold int    `toml:"failure_threshold"`
	RecoveryTimeout  string `toml:"recovery_timeout"`
}

// CouncilConfig lists the emergency council membership.
type CouncilConfig struct {
	Members  []string `toml:"members"`
	Required int      `toml:"required"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := agoraHome()
	return Config{
		Node: NodeConfig{
			Network: "local",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8450,
		},
		Governance: GovernanceConfig{
			MinProposePower:      100,
			EnhancedProposePower: 1000,
			ExecutionGraceDays:   14,
			MaxActiveProposals:   50,
		},
		Upgrade: UpgradeConfig{
			PollInterval:      "5s",
			GracePeriod:       "1m",
			MaxDelay:          "24h",
			MaxForcedAttempts: 3,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  "1h",
		},
		Council: CouncilConfig{
			Required: 2,
		},
		Telemetry: TelemetryConfig{
			Prometheus: false,
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(homeDir, "agora.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
	}
}

// LoadConfig reads config from ~/.agora/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(agoraHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.agora/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(agoraHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// agoraHome returns the agora data directory.
func agoraHome() string {
	if env := os.Getenv("AGORA_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agora")
}

// AgoraHome is exported for use by other packages.
func AgoraHome() string {
	return agoraHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
