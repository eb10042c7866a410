// Package relay forwards hex-encoded IR frames from an MQTT topic to the
// proxy over its serial link and keeps the proxy's keepalive timer fed.
package relay

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"irproxy/protocol"
)

const DefaultTopic = "ir_proxy/deco_tv"

var ErrInvalidPayload = errors.New("invalid payload")

// Config holds relay timing and broker settings
type Config struct {
	Topic string

	// KeepalivePeriod is the silence after which a keepalive is written.
	// It must stay well below the proxy's keepalive timeout.
	KeepalivePeriod time.Duration

	ConnectAttempts int
	RetryDelay      time.Duration

	// ResetRequestDelay is waited before asking the proxy to reset the
	// module after the broker could not be reached
	ResetRequestDelay time.Duration
}

// DefaultConfig returns the relay defaults
func DefaultConfig() Config {
	return Config{
		Topic:             DefaultTopic,
		KeepalivePeriod:   12 * time.Second,
		ConnectAttempts:   5,
		RetryDelay:        2 * time.Second,
		ResetRequestDelay: 2 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Topic == "" {
		c.Topic = d.Topic
	}
	if c.KeepalivePeriod <= 0 {
		c.KeepalivePeriod = d.KeepalivePeriod
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = d.ConnectAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.ResetRequestDelay <= 0 {
		c.ResetRequestDelay = d.ResetRequestDelay
	}
}

// Stats counts relay activity
type Stats struct {
	Forwarded  uint32
	Invalid    uint32
	Keepalives uint32
}

// Relay moves frames from the broker to the proxy link
type Relay struct {
	cfg    Config
	broker Broker
	out    io.Writer

	mu        sync.Mutex // serializes writes to out and guards fb
	fb        *protocol.FrameBuffer
	lastWrite time.Time

	forwarded  uint32
	invalid    uint32
	keepalives uint32
}

// New creates a relay writing to out
func New(cfg Config, broker Broker, out io.Writer) *Relay {
	cfg.applyDefaults()
	return &Relay{
		cfg:       cfg,
		broker:    broker,
		out:       out,
		fb:        protocol.NewFrameBuffer(protocol.MaxFrameSize),
		lastWrite: time.Now(),
	}
}

// Stats returns a snapshot of the counters
func (r *Relay) Stats() Stats {
	return Stats{
		Forwarded:  atomic.LoadUint32(&r.forwarded),
		Invalid:    atomic.LoadUint32(&r.invalid),
		Keepalives: atomic.LoadUint32(&r.keepalives),
	}
}

// HandlePayload decodes one broker message and writes the frame to the
// proxy. Frames the proxy would reject are dropped here.
func (r *Relay) HandlePayload(payload []byte) error {
	payload = bytes.TrimSpace(payload)
	data := make([]byte, hex.DecodedLen(len(payload)))
	if _, err := hex.Decode(data, payload); err != nil {
		atomic.AddUint32(&r.invalid, 1)
		glog.Warningf("drop message: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	frame, err := protocol.ParseFrame(data, r.fb)
	if err != nil {
		atomic.AddUint32(&r.invalid, 1)
		glog.Warningf("drop message: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := r.write(data); err != nil {
		return err
	}
	atomic.AddUint32(&r.forwarded, 1)
	glog.V(1).Infof("forwarded %s frame, %d bytes", frame.Kind, len(data))
	return nil
}

// SendKeepalive writes a keepalive frame
func (r *Relay) SendKeepalive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.write(protocol.KeepaliveCode); err != nil {
		return err
	}
	atomic.AddUint32(&r.keepalives, 1)
	glog.V(2).Info("keepalive")
	return nil
}

// SendResetRequest asks the proxy to reset the network module
func (r *Relay) SendResetRequest() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	glog.Warning("requesting module reset")
	return r.write(protocol.ResetRequestCode)
}

func (r *Relay) write(data []byte) error {
	if _, err := r.out.Write(data); err != nil {
		return fmt.Errorf("link write: %w", err)
	}
	r.lastWrite = time.Now()
	return nil
}

// Start connects to the broker and subscribes. Each step is retried per
// the config; the broker is disconnected when subscribing gives up.
func (r *Relay) Start(ctx context.Context) error {
	if err := r.retry(ctx, "connect", r.broker.Connect); err != nil {
		return err
	}
	err := r.retry(ctx, "subscribe", func() error {
		return r.broker.Subscribe(r.cfg.Topic, func(payload []byte) {
			r.HandlePayload(payload)
		})
	})
	if err != nil {
		r.broker.Disconnect()
		return err
	}
	return nil
}

func (r *Relay) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.cfg.ConnectAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		glog.Warningf("%s attempt %d/%d: %v", what, attempt, r.cfg.ConnectAttempts, err)
		if attempt == r.cfg.ConnectAttempts {
			break
		}
		if !sleep(ctx, r.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
	return err
}

// Run starts the relay and writes keepalives until ctx is done. When the
// broker cannot be reached a reset request is sent before returning.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sleep(ctx, r.cfg.ResetRequestDelay) {
			if rerr := r.SendResetRequest(); rerr != nil {
				glog.Errorf("reset request: %v", rerr)
			}
		}
		return fmt.Errorf("broker unavailable: %w", err)
	}
	defer r.broker.Disconnect()

	check := r.cfg.KeepalivePeriod / 4
	if check > 100*time.Millisecond {
		check = 100 * time.Millisecond
	}
	ticker := time.NewTicker(check)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		r.mu.Lock()
		due := time.Since(r.lastWrite) >= r.cfg.KeepalivePeriod
		r.mu.Unlock()
		if due {
			if err := r.SendKeepalive(); err != nil {
				return err
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
