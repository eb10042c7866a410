// Package serial connects host tools to the proxy or the wireless module
// over a serial port.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrNoDevice = errors.New("no serial device given")
	ErrBaudRate = errors.New("baud rate must be positive")
)

// LinkBaud is the UART rate the wireless module talks to the proxy at
const LinkBaud = 115200

// Port is the byte stream between a host tool and the proxy side of the
// link. Reads return (0, nil) when nothing arrived within the read timeout.
type Port interface {
	io.ReadWriteCloser

	// Flush drops bytes received but not yet read, used to realign on a
	// frame boundary after a rejected frame
	Flush() error
}

// Config selects the UART that carries proxy frames
type Config struct {
	Device      string // e.g. /dev/ttyUSB0 or COM3
	Baud        int
	ReadTimeout time.Duration // short so Link.Close is not held up
}

// DefaultConfig returns the link settings for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        LinkBaud,
		ReadTimeout: 50 * time.Millisecond,
	}
}

// Validate reports a config Open cannot use
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return fmt.Errorf("%w: %d", ErrBaudRate, c.Baud)
	}
	return nil
}
