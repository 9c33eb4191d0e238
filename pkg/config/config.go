// Package config loads the pipeline's configuration (spec §6
// "Configuration (pipeline)"), grounded on blinklabs-io/shai's
// internal/config package: a Config struct tagged for both YAML and
// envconfig, a package-level default, and a Load that overlays a YAML
// file and then environment variables on top of defaults — environment
// always wins, matching the teacher's own .env "only set if not already
// set" override ordering (env.go).
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// ExchangeConfig names one upstream exchange to subscribe to, along
// with its minimum-TVL setting. MinTVLFilter is loaded but not read by
// any code in this module; snapshot filtering is done only by the
// stream.Filter predicates passed to stream.New.
type ExchangeConfig struct {
	Tag          string  `yaml:"tag"`
	MinTVLFilter float64 `yaml:"minTvlFilter"`
}

// TokenConfig is one entry of the initial token registry seed (spec §6
// "tokens: map<address, Token>").
type TokenConfig struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Symbol   string `yaml:"symbol"`
	Gas      uint64 `yaml:"gas"`
}

// LoggingConfig controls internal/obs's logger.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
}

// Config implements every field of spec §6's configuration table.
type Config struct {
	Exchanges []ExchangeConfig `yaml:"exchanges"`
	BlockTime uint64           `yaml:"blockTime" envconfig:"BLOCK_TIME"`
	Timeout   uint64           `yaml:"timeout" envconfig:"TIMEOUT"`
	NoState   bool             `yaml:"noState" envconfig:"NO_STATE"`
	AuthKey   string           `yaml:"authKey" envconfig:"AUTH_KEY"`
	NoTLS     bool             `yaml:"noTls" envconfig:"NO_TLS"`
	Tokens    []TokenConfig    `yaml:"tokens"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// defaultConfig seeds fields the pipeline can run with before any file
// or environment overlay is applied.
func defaultConfig() *Config {
	return &Config{
		BlockTime: 12,
		Timeout:   30,
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load overlays an optional YAML file and then the process environment
// on top of defaultConfig. path == "" skips the file overlay.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("ammsim", cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return cfg, nil
}
