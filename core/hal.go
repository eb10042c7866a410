package core

import "errors"

var ErrMissingDriver = errors.New("board driver not configured")

// PulseOutput is the modulated IR output and its carrier-cycle tick.
// Platform-specific implementations handle actual hardware control.
type PulseOutput interface {
	// Configure programs the carrier. period and high are in oscillator cycles.
	Configure(period, high uint16) error

	// Connect routes the modulated carrier to the emitter
	Connect()

	// Disconnect forces the emitter to its idle level
	Disconnect()

	// Stop turns the carrier off
	Stop()

	// EnableTick calls tick once per elapsed carrier cycle, in interrupt context
	EnableTick(tick func())

	// DisableTick stops tick delivery
	DisableTick()
}

// ResetLine drives the wireless module's reset input
type ResetLine interface {
	// Assert holds the module in reset
	Assert()

	// Release lets the module run
	Release()
}

// Restarter performs a full system reset. On hardware Restart never returns.
type Restarter interface {
	Restart()
}

// RetryStore keeps the retry state across warm resets
type RetryStore interface {
	Load() RetryState
	Store(RetryState)
}

// Status is what the indicator shows
type Status uint8

const (
	StatusBooting Status = iota
	StatusCooldown
	StatusReady
	StatusTransmitting
	StatusQuarantine
	StatusResetting
)

func (s Status) String() string {
	switch s {
	case StatusBooting:
		return "booting"
	case StatusCooldown:
		return "cooldown"
	case StatusReady:
		return "ready"
	case StatusTransmitting:
		return "transmitting"
	case StatusQuarantine:
		return "quarantine"
	case StatusResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// Indicator shows the proxy status, typically on an LED
type Indicator interface {
	Show(Status)
}

// Board bundles the platform drivers the proxy runs on.
// Indicator is optional.
type Board struct {
	Output    PulseOutput
	Reset     ResetLine
	Restarter Restarter
	Store     RetryStore
	Indicator Indicator
}

// Validate checks that every required driver is present
func (b *Board) Validate() error {
	if b.Output == nil || b.Reset == nil || b.Restarter == nil || b.Store == nil {
		return ErrMissingDriver
	}
	return nil
}

type noIndicator struct{}

func (noIndicator) Show(Status) {}
