// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/minter/internal/antelope"
)

// DefaultNode is the chain endpoint used when neither config nor the
// node query parameter names one.
const DefaultNode = "https://eos.greymass.com"

// DefaultAppName identifies the app to wallets.
const DefaultAppName = "Minter"

// DefaultExpireSeconds is the transaction expiration window.
const DefaultExpireSeconds = 120

// WalletBridgeConfig says how to launch the bridge process for one wallet.
type WalletBridgeConfig struct {
	Command string   `yaml:"command" description:"Bridge executable (absolute or relative to data dir)"`
	Args    []string `yaml:"args" description:"Extra bridge arguments"`
}

// ResourceProviderConfig configures the resource provider transaction plugin.
type ResourceProviderConfig struct {
	Enabled   bool   `yaml:"enabled" description:"Request resources for transactions" default:"true"`
	Endpoint  string `yaml:"endpoint" description:"Provider URL (defaults to node)"`
	AllowFees bool   `yaml:"allow_fees" description:"Accept provider fees" default:"false"`
	MaxFee    string `yaml:"max_fee" description:"Largest fee accepted, e.g. \"0.0100 EOS\""`
}

// SSHConfig routes chain requests through an SSH tunnel.
type SSHConfig struct {
	Host           string `yaml:"host" description:"SSH host (required)"`
	Port           int    `yaml:"port" description:"SSH port" default:"22"`
	User           string `yaml:"user" description:"SSH user"`
	IdentityFile   string `yaml:"identity_file" description:"SSH private key path (relative to data dir)" default:".ssh/id_ed25519"`
	KnownHostsPath string `yaml:"known_hosts_path" description:"Known hosts file path (relative to data dir)" default:".ssh/known_hosts"`
}

// Config holds minter configuration settings
type Config struct {
	AppName          string                        `yaml:"app_name" description:"Name shown to wallets" default:"Minter"`
	Node             string                        `yaml:"node" description:"Chain API endpoint" default:"https://eos.greymass.com"`
	Chain            string                        `yaml:"chain" description:"Chain (eos, jungle4, wax, telos)" default:"eos"`
	MinimalUI        bool                          `yaml:"minimal_ui" description:"Use line prompts instead of the picker" default:"true"`
	ExpireSeconds    int                           `yaml:"expire_seconds" description:"Transaction expiration window" default:"120"`
	ResourceProvider ResourceProviderConfig        `yaml:"resource_provider"`
	TransactScript   string                        `yaml:"transact_script" description:"JavaScript transaction hook (relative to data dir)"`
	Wallets          map[string]WalletBridgeConfig `yaml:"wallets" description:"Wallet bridge commands keyed by wallet id"`
	SSH              *SSHConfig                    `yaml:"ssh" description:"SSH tunnel to the node (omit for direct connection)"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		AppName:       DefaultAppName,
		Node:          DefaultNode,
		Chain:         "eos",
		MinimalUI:     true,
		ExpireSeconds: DefaultExpireSeconds,
		ResourceProvider: ResourceProviderConfig{
			Enabled: true,
		},
		Wallets: map[string]WalletBridgeConfig{},
	}
}

// ChainDefinition returns the configured chain bound to the configured node.
func (c *Config) ChainDefinition() (antelope.ChainDefinition, error) {
	chain, ok := antelope.ChainByKey(c.Chain)
	if !ok {
		return antelope.ChainDefinition{}, fmt.Errorf("invalid chain '%s' (must be one of %s)", c.Chain, strings.Join(antelope.ChainKeys(), ", "))
	}
	return chain.WithURL(c.Node), nil
}

// DefaultDataDirName is the data directory under the user's home.
const DefaultDataDirName = ".minter"

// GetDataDir returns the data directory.
// Resolution order: -d flag > MINTER_DATA env var > ~/.minter
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("MINTER_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultDataDirName)
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// ResolvePath resolves p relative to dataDir unless it is absolute or empty.
func ResolvePath(p, dataDir string) string {
	if p == "" || filepath.IsAbs(p) || dataDir == "" {
		return p
	}
	return filepath.Join(dataDir, p)
}

// LoadConfig loads config.yaml from the data directory and resolves
// relative paths against it. A missing file yields the defaults.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}

	config.TransactScript = ResolvePath(config.TransactScript, dataDir)
	for id, w := range config.Wallets {
		if strings.ContainsRune(w.Command, filepath.Separator) {
			w.Command = ResolvePath(w.Command, dataDir)
			config.Wallets[id] = w
		}
	}
	if config.SSH != nil {
		config.SSH.IdentityFile = ResolvePath(config.SSH.IdentityFile, dataDir)
		config.SSH.KnownHostsPath = ResolvePath(config.SSH.KnownHostsPath, dataDir)
	}

	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) validate() error {
	defaults := DefaultConfig()
	if c.AppName == "" {
		c.AppName = defaults.AppName
	}
	if c.Node == "" {
		c.Node = defaults.Node
	}
	if c.Chain == "" {
		c.Chain = defaults.Chain
	}
	if _, ok := antelope.ChainByKey(c.Chain); !ok {
		return fmt.Errorf("invalid chain '%s' in config (must be one of %s)", c.Chain, strings.Join(antelope.ChainKeys(), ", "))
	}
	if c.ExpireSeconds == 0 {
		c.ExpireSeconds = defaults.ExpireSeconds
	}
	if c.ExpireSeconds < 0 || c.ExpireSeconds > 3600 {
		return fmt.Errorf("expire_seconds must be between 1 and 3600, got %d", c.ExpireSeconds)
	}
	if c.Wallets == nil {
		c.Wallets = map[string]WalletBridgeConfig{}
	}

	if c.SSH != nil {
		if c.SSH.Host == "" {
			return fmt.Errorf("ssh.host is required when ssh block is present")
		}
		if c.SSH.Port == 0 {
			c.SSH.Port = 22
		}
		if c.SSH.IdentityFile == "" {
			c.SSH.IdentityFile = ".ssh/id_ed25519"
		}
		if c.SSH.KnownHostsPath == "" {
			c.SSH.KnownHostsPath = ".ssh/known_hosts"
		}
	}
	return nil
}

// DisplayConfig prints the current configuration
func DisplayConfig(dataDir string, config Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("=====================")
	fmt.Printf("Data dir:    %s\n", dataDir)
	fmt.Printf("Config file: %s\n", GetConfigPath(dataDir))
	fmt.Printf("App name:    %s\n", config.AppName)
	fmt.Printf("Chain:       %s\n", config.Chain)
	fmt.Printf("Node:        %s\n", config.Node)
	if config.ResourceProvider.Enabled {
		fmt.Printf("Resources:   provider enabled (fees allowed: %v)\n", config.ResourceProvider.AllowFees)
	} else {
		fmt.Printf("Resources:   provider disabled\n")
	}
	if config.SSH != nil {
		fmt.Printf("SSH host:    %s:%d\n", config.SSH.Host, config.SSH.Port)
	}
	for id, w := range config.Wallets {
		fmt.Printf("Wallet:      %s -> %s\n", id, w.Command)
	}
	fmt.Println()
}
