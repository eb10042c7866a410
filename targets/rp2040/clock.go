//go:build rp2040

package main

import (
	"runtime/volatile"
	"time"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hardwareClock reads the 1MHz system timer. It keeps running while
// interrupts are masked, which the reset pulse relies on.
type hardwareClock struct{}

// Now returns the time since boot
func (hardwareClock) Now() time.Duration {
	return time.Duration(hardwareUptime()) * time.Microsecond
}

// hardwareUptime reads the full 64-bit microsecond counter
func hardwareUptime() uint64 {
	// High, low, high again to detect a rollover between the reads
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}
