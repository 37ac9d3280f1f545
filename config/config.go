// Package config loads the node's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TokenConfig registers one external token on the node, optionally with a
// genesis allocation minted on first start.
type TokenConfig struct {
	Address string            `yaml:"address"`
	Alloc   map[string]uint64 `yaml:"alloc,omitempty"` // pubkey hex -> amount
}

// Config is the betledgerd node configuration.
type Config struct {
	DataDir      string `yaml:"data_dir"`
	RPCPort      int    `yaml:"rpc_port"`
	GatewayPort  int    `yaml:"gateway_port"`
	RPCAuthToken string `yaml:"rpc_auth_token,omitempty"`

	// Owner is the pubkey hex of the ledger's owner principal. Required on
	// first start; on later starts it must match the stored owner.
	Owner string `yaml:"owner"`

	// Custody is the account the ledger holds on external tokens.
	Custody string `yaml:"custody,omitempty"`

	Tokens []TokenConfig `yaml:"tokens,omitempty"`

	// ArchiveURL is a Postgres DSN; empty disables the archive.
	ArchiveURL string `yaml:"archive_url,omitempty"`

	// AMQPURL is the broker address for event notifications; empty disables them.
	AMQPURL      string `yaml:"amqp_url,omitempty"`
	AMQPExchange string `yaml:"amqp_exchange,omitempty"`
}

// Load reads a YAML config file and expands ${VAR} environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads the config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads the config, applies defaults and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.RPCPort == 0 {
		c.RPCPort = 8545
	}
	if c.GatewayPort == 0 {
		c.GatewayPort = 8080
	}
	if c.Custody == "" {
		c.Custody = "betledger"
	}
	if c.AMQPExchange == "" {
		c.AMQPExchange = "betledger.events"
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if c.RPCPort < 1 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port %d out of range", c.RPCPort)
	}
	if c.GatewayPort < 1 || c.GatewayPort > 65535 {
		return fmt.Errorf("gateway_port %d out of range", c.GatewayPort)
	}
	if c.RPCPort == c.GatewayPort {
		return fmt.Errorf("rpc_port and gateway_port must differ")
	}
	seen := make(map[string]bool, len(c.Tokens))
	for _, t := range c.Tokens {
		if t.Address == "" {
			return fmt.Errorf("token with empty address")
		}
		if seen[t.Address] {
			return fmt.Errorf("duplicate token address %s", t.Address)
		}
		seen[t.Address] = true
	}
	return nil
}
