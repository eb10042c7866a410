package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"irproxy/protocol"
	"irproxy/relay"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	require.NoError(t, err)

	rc := cfg.Receiver()
	require.Equal(t, 10*time.Millisecond, rc.InterByteTimeout)
	require.Equal(t, 100*time.Millisecond, rc.ClearanceTime)
	require.Equal(t, 1, rc.ResyncAfter)
	require.Equal(t, protocol.MaxFrameSize, rc.BufferSize)

	sc := cfg.Supervisor()
	require.Equal(t, time.Second, sc.CoarseTick)
	require.Equal(t, 30*time.Second, sc.KeepaliveTimeout)
	require.Equal(t, 90*time.Second, sc.InitialKeepaliveTimeout)
	require.Equal(t, 6*time.Hour, sc.InactivityTimeout)
	require.Equal(t, 10*time.Minute, sc.ExtendedDelay)
	require.Equal(t, uint8(10), sc.MaxRetries)
	require.False(t, cfg.Debug)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"inter_byte_timeout_ms": 25,
		"resync_after": 3,
		"frame_buffer_size": 46,
		"keepalive_timeout_s": 120,
		"max_retries": 4,
		"debug": true
	}`))
	require.NoError(t, err)

	require.Equal(t, 25*time.Millisecond, cfg.Receiver().InterByteTimeout)
	require.Equal(t, 3, cfg.Receiver().ResyncAfter)
	require.Equal(t, protocol.CompactFrameSize, cfg.Receiver().BufferSize)

	// The boot deadline is never shorter than the steady one
	require.Equal(t, 120*time.Second, cfg.Supervisor().KeepaliveTimeout)
	require.Equal(t, 120*time.Second, cfg.Supervisor().InitialKeepaliveTimeout)
	require.Equal(t, uint8(4), cfg.Proxy().Supervisor.MaxRetries)
	require.True(t, cfg.Debug)
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	_, err := LoadConfig([]byte(`{"clearance_ms": "soon"}`))
	require.Error(t, err)
}

func TestLoadConfigTooSmallBuffer(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"frame_buffer_size": 8}`))
	require.NoError(t, err)
	require.Equal(t, protocol.MaxFrameSize, cfg.FrameBufferSize)
}

func TestRelaySettings(t *testing.T) {
	cfg := DefaultConfig()
	rs := cfg.RelaySettings()
	require.Equal(t, relay.DefaultTopic, rs.Topic)
	require.Equal(t, 12*time.Second, rs.KeepalivePeriod)
	require.Equal(t, 5, rs.ConnectAttempts)
	require.Equal(t, "mqtt://localhost:1883", cfg.Relay.Broker)

	// A keepalive period at or above the proxy timeout is replaced
	cfg, err := LoadConfig([]byte(`{"keepalive_timeout_s": 60, "relay": {"keepalive_s": 60, "topic": "ir/living"}}`))
	require.NoError(t, err)
	require.Equal(t, 24*time.Second, cfg.RelaySettings().KeepalivePeriod)
	require.Equal(t, "ir/living", cfg.RelaySettings().Topic)
}
