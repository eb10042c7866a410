//go:build rp2040

package main

import (
	"machine"
)

var debugUART *machine.UART

// initDebugUART starts UART0 on GPIO0 (TX) and GPIO1 (RX), 115200 baud
func initDebugUART() bool {
	debugUART = machine.UART0
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO0,
		RX:       machine.GPIO1,
	})
	if err != nil {
		debugUART = nil
		return false
	}
	return true
}

// debugPrintln writes a line to the debug UART
func debugPrintln(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
