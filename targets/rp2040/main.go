//go:build rp2040

package main

import (
	"machine"
	"time"

	"irproxy/core"
	"irproxy/protocol"
)

// Board wiring
const (
	pinIR        = machine.GPIO16 // PWM slice 0 A, to the emitter driver
	pinModuleRST = machine.GPIO15 // wireless module reset, active low
	pinSPISCK    = machine.GPIO10
	pinSPIMOSI   = machine.GPIO11
	pinPixel     = machine.GPIO25
)

var panics uint32

func main() {
	// Disable a watchdog left running by a previous restart
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	if initDebugUART() {
		core.SetDebugWriter(debugPrintln)
		core.SetDebugEnabled(true)
	}
	core.DebugPrintln("[BOOT] irproxy " + protocol.Version)

	reset := newModuleReset(pinModuleRST)
	reset.Assert()

	link, err := newPIOLink(0, 0, pinSPISCK, pinSPIMOSI)
	if err != nil {
		core.DebugPrintln("[BOOT] link: " + err.Error())
		watchdogRestarter{}.Restart()
	}

	board := core.Board{
		Output:    newCarrierOutput(pinIR),
		Reset:     reset,
		Restarter: watchdogRestarter{},
		Store:     scratchStore{},
		Indicator: newPixelIndicator(pinPixel),
	}
	cfg := core.ProxyConfig{
		Receiver:   protocol.DefaultReceiverConfig(),
		Supervisor: core.DefaultSupervisorConfig(),
	}

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					panics++
					core.DebugPrintln("[PROXY] panic, restarting loop")
					link.Reset()
				}
			}()

			proxy, err := core.NewProxy(link, hardwareClock{}, board, cfg)
			if err != nil {
				core.DebugPrintln("[BOOT] " + err.Error())
				return
			}
			// Only returns when the watchdog did not take the chip down
			err = proxy.Run()
			core.DebugPrintln("[PROXY] stopped: " + err.Error())
		}()

		time.Sleep(10 * time.Millisecond)
	}
}
