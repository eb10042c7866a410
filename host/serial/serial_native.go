//go:build !wasm

package serial

import (
	"fmt"

	"github.com/tarm/serial"
)

// uart is a Port on a local serial device
type uart struct {
	*serial.Port
}

// Open opens the UART described by cfg. A nil cfg uses DefaultConfig with
// no device and fails validation.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		cfg = DefaultConfig("")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open link %s at %d baud: %w", cfg.Device, cfg.Baud, err)
	}
	return uart{p}, nil
}
