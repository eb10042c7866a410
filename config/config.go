// Package config loads the proxy timing configuration from JSON
package config

import (
	"encoding/json"
	"time"

	"irproxy/core"
	"irproxy/protocol"
	"irproxy/relay"
)

// Config is the JSON form of the proxy configuration. Durations are in
// the unit named by the field.
type Config struct {
	InterByteTimeoutMs int `json:"inter_byte_timeout_ms"`
	ClearanceMs        int `json:"clearance_ms"`
	ResyncAfter        int `json:"resync_after"`
	FrameBufferSize    int `json:"frame_buffer_size"`

	CoarseTickMs         int `json:"coarse_tick_ms"`
	KeepaliveTimeoutS    int `json:"keepalive_timeout_s"`
	InitialKeepaliveS    int `json:"initial_keepalive_s"`
	InactivityTimeoutMin int `json:"inactivity_timeout_min"`
	MinResetMs           int `json:"min_reset_ms"`
	NormalDelayMs        int `json:"normal_delay_ms"`
	ExtendedDelayS       int `json:"extended_delay_s"`
	MaxRetries           int `json:"max_retries"`

	Relay RelayConfig `json:"relay"`

	Debug bool `json:"debug"`
}

// RelayConfig configures the MQTT relay on the wireless module side
type RelayConfig struct {
	Broker          string `json:"broker"`
	Topic           string `json:"topic"`
	KeepaliveS      int    `json:"keepalive_s"`
	ConnectAttempts int    `json:"connect_attempts"`
	RetryDelayMs    int    `json:"retry_delay_ms"`
}

// LoadConfig parses a JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

// DefaultConfig returns the stock configuration
func DefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	// Receiver timing
	if config.InterByteTimeoutMs <= 0 {
		config.InterByteTimeoutMs = 10
	}
	if config.ClearanceMs <= 0 {
		config.ClearanceMs = 100
	}
	if config.ResyncAfter <= 0 {
		config.ResyncAfter = 1
	}
	if config.FrameBufferSize < protocol.CompactFrameSize {
		config.FrameBufferSize = protocol.MaxFrameSize
	}

	// Supervisor deadlines
	if config.CoarseTickMs <= 0 {
		config.CoarseTickMs = 1000
	}
	if config.KeepaliveTimeoutS <= 0 {
		config.KeepaliveTimeoutS = 30
	}
	if config.InitialKeepaliveS < config.KeepaliveTimeoutS {
		config.InitialKeepaliveS = 90
		if config.InitialKeepaliveS < config.KeepaliveTimeoutS {
			config.InitialKeepaliveS = config.KeepaliveTimeoutS
		}
	}
	if config.InactivityTimeoutMin <= 0 {
		config.InactivityTimeoutMin = 6 * 60
	}
	if config.MinResetMs <= 0 {
		config.MinResetMs = 1000
	}
	if config.NormalDelayMs <= 0 {
		config.NormalDelayMs = 1000
	}
	if config.ExtendedDelayS <= 0 {
		config.ExtendedDelayS = 10 * 60
	}
	if config.MaxRetries <= 0 || config.MaxRetries > 254 {
		config.MaxRetries = 10
	}

	// Relay
	if config.Relay.Broker == "" {
		config.Relay.Broker = "mqtt://localhost:1883"
	}
	if config.Relay.Topic == "" {
		config.Relay.Topic = relay.DefaultTopic
	}
	if config.Relay.KeepaliveS <= 0 || config.Relay.KeepaliveS >= config.KeepaliveTimeoutS {
		config.Relay.KeepaliveS = config.KeepaliveTimeoutS * 2 / 5
	}
	if config.Relay.ConnectAttempts <= 0 {
		config.Relay.ConnectAttempts = 5
	}
	if config.Relay.RetryDelayMs <= 0 {
		config.Relay.RetryDelayMs = 2000
	}
}

// Receiver returns the receiver settings
func (c *Config) Receiver() protocol.ReceiverConfig {
	return protocol.ReceiverConfig{
		InterByteTimeout: time.Duration(c.InterByteTimeoutMs) * time.Millisecond,
		ClearanceTime:    time.Duration(c.ClearanceMs) * time.Millisecond,
		ResyncAfter:      c.ResyncAfter,
		BufferSize:       c.FrameBufferSize,
	}
}

// Supervisor returns the supervisor settings
func (c *Config) Supervisor() core.SupervisorConfig {
	return core.SupervisorConfig{
		CoarseTick:              time.Duration(c.CoarseTickMs) * time.Millisecond,
		KeepaliveTimeout:        time.Duration(c.KeepaliveTimeoutS) * time.Second,
		InitialKeepaliveTimeout: time.Duration(c.InitialKeepaliveS) * time.Second,
		InactivityTimeout:       time.Duration(c.InactivityTimeoutMin) * time.Minute,
		MinResetWidth:           time.Duration(c.MinResetMs) * time.Millisecond,
		NormalDelay:             time.Duration(c.NormalDelayMs) * time.Millisecond,
		ExtendedDelay:           time.Duration(c.ExtendedDelayS) * time.Second,
		MaxRetries:              uint8(c.MaxRetries),
	}
}

// Proxy returns the combined proxy settings
func (c *Config) Proxy() core.ProxyConfig {
	return core.ProxyConfig{
		Receiver:   c.Receiver(),
		Supervisor: c.Supervisor(),
	}
}

// RelaySettings returns the relay settings
func (c *Config) RelaySettings() relay.Config {
	cfg := relay.DefaultConfig()
	cfg.Topic = c.Relay.Topic
	cfg.KeepalivePeriod = time.Duration(c.Relay.KeepaliveS) * time.Second
	cfg.ConnectAttempts = c.Relay.ConnectAttempts
	cfg.RetryDelay = time.Duration(c.Relay.RetryDelayMs) * time.Millisecond
	return cfg
}
