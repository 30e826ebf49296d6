// Package config loads the light client's YAML configuration file: the
// NEAR RPC endpoint to drive against, and where cached ConsensusStates
// live on disk (spec 6).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object threaded explicitly through the
// command facade; nothing here is held as a process-wide singleton.
type Config struct {
	NearRPC   NearRPCConfig   `yaml:"near_rpc"`
	StateData StateDataConfig `yaml:"state_data"`
}

// NearRPCConfig configures the RPC collaborator.
type NearRPCConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	MaxRetries  int    `yaml:"max_retries"`
}

// StateDataConfig configures the file-backed Host.
type StateDataConfig struct {
	DataFolder       string `yaml:"data_folder"`
	MaxCachedHeights int    `yaml:"max_cached_heights"`
}

// Default returns a Config with the defaults the command surface falls
// back to when a key is absent from the YAML file.
func Default() Config {
	return Config{
		NearRPC: NearRPCConfig{
			RPCEndpoint: "https://rpc.mainnet.near.org",
			MaxRetries:  5,
		},
		StateData: StateDataConfig{
			DataFolder:       "./data",
			MaxCachedHeights: 100,
		},
	}
}

// Load reads and parses the YAML configuration file at path, applying
// Default for any key left unset.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.NearRPC.RPCEndpoint == "" {
		return fmt.Errorf("config: near_rpc.rpc_endpoint is required")
	}
	if c.NearRPC.MaxRetries < 0 {
		return fmt.Errorf("config: near_rpc.max_retries must not be negative")
	}
	if c.StateData.DataFolder == "" {
		return fmt.Errorf("config: state_data.data_folder is required")
	}
	if c.StateData.MaxCachedHeights < 0 {
		return fmt.Errorf("config: state_data.max_cached_heights must not be negative")
	}
	return nil
}
