// Package config loads the wormhole CLI's YAML configuration file: its
// node list, channel defaults, and forwarding strategy.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chirpotle-go/wormhole/modem"
	"github.com/chirpotle-go/wormhole/sensitivity"
)

// NodeConfig describes one physical transceiver participating in a
// wormhole.
type NodeConfig struct {
	Name  string       `yaml:"name"`
	Role  string       `yaml:"role"` // "entry" or "exit"
	Modem modem.Config `yaml:"modem"`
}

// ChannelConfig is the initial LoRa channel shared by every node.
type ChannelConfig struct {
	Frequency       uint32 `yaml:"frequency"`
	Bandwidth       int    `yaml:"bandwidth"`
	SpreadingFactor int    `yaml:"spreading_factor"`
	SyncWord        uint8  `yaml:"sync_word"`
	CodingRate      int    `yaml:"coding_rate"`

	// TxPower, NoiseFigure and TargetSNR parameterize the link budget
	// reported at startup; they do not configure the transceivers
	// themselves. Defaults are applied by LinkBudget when zero.
	TxPower     float32 `yaml:"tx_power_dbm,omitempty"`
	NoiseFigure float32 `yaml:"noise_figure_db,omitempty"`
	TargetSNR   float32 `yaml:"target_snr_db,omitempty"`
}

// StrategyConfig selects and parameterizes a forwarding strategy.
type StrategyConfig struct {
	// Kind is one of "passthrough", "rx2", "downlink-delayed".
	Kind     string `yaml:"kind"`
	RX1Delay int    `yaml:"rx1_delay_seconds"`
}

// Config is the top-level wormhole CLI configuration.
type Config struct {
	Nodes    []NodeConfig   `yaml:"nodes"`
	Channel  ChannelConfig  `yaml:"channel"`
	Strategy StrategyConfig `yaml:"strategy"`
	LogLevel string         `yaml:"log_level"`
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var entries, exits int
	for _, n := range c.Nodes {
		switch n.Role {
		case "entry":
			entries++
		case "exit":
			exits++
		default:
			return fmt.Errorf("node %q: role must be \"entry\" or \"exit\", got %q", n.Name, n.Role)
		}
	}
	if entries == 0 || exits == 0 {
		return fmt.Errorf("config must declare at least one entry and one exit node")
	}
	switch c.Strategy.Kind {
	case "passthrough", "rx2", "downlink-delayed":
	default:
		return fmt.Errorf("strategy.kind must be one of passthrough, rx2, downlink-delayed, got %q", c.Strategy.Kind)
	}
	return nil
}

// RX1Delay returns the configured RX1 delay, defaulting to one second
// per the LoRaWAN regional parameters' default if unset.
func (c *Config) RX1Delay() time.Duration {
	if c.Strategy.RX1Delay <= 0 {
		return time.Second
	}
	return time.Duration(c.Strategy.RX1Delay) * time.Second
}

// LinkBudget estimates the sensitivity and link budget of the configured
// channel, so an operator can judge whether the wormhole's transceivers
// are likely to hold the link over the intended distance. Unset tuning
// fields fall back to typical SX127x values.
func (c *Config) LinkBudget() (sensitivityDBm, budgetDB float32) {
	txPower := c.Channel.TxPower
	if txPower == 0 {
		txPower = 14
	}
	noiseFigure := c.Channel.NoiseFigure
	if noiseFigure == 0 {
		noiseFigure = 6
	}
	snr := c.Channel.TargetSNR
	if snr == 0 {
		snr = -20
	}

	bandwidthHz := c.Channel.Bandwidth * 1000
	sensitivityDBm = sensitivity.CalculateSensitivity(bandwidthHz, noiseFigure, snr)
	budgetDB = sensitivity.CalculateLinkBudget(bandwidthHz, noiseFigure, snr, txPower)
	return sensitivityDBm, budgetDB
}
