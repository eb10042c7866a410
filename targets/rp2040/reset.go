//go:build rp2040

package main

import (
	"machine"
	"time"
)

// moduleReset drives the wireless module's active-low reset input
type moduleReset struct {
	pin machine.Pin
}

func newModuleReset(pin machine.Pin) *moduleReset {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &moduleReset{pin: pin}
}

func (r *moduleReset) Assert()  { r.pin.Low() }
func (r *moduleReset) Release() { r.pin.High() }

// watchdogRestarter resets the chip through the watchdog. The scratch
// registers survive, a core reset request would not reset the peripherals.
type watchdogRestarter struct{}

func (watchdogRestarter) Restart() {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
		return
	}
	if err := machine.Watchdog.Start(); err != nil {
		return
	}
	// Wait for reset (should happen in ~1ms)
	for {
		time.Sleep(1 * time.Millisecond)
	}
}
