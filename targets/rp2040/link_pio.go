//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// spiSlaveProgram samples MOSI on each rising SCK edge, mode 0, MSB first.
// Autopush hands every 8 bits to the RX FIFO.
//
//	.wrap_target
//	wait 0 gpio SCK
//	wait 1 gpio SCK
//	in pins, 1
//	.wrap
func spiSlaveProgram(sck machine.Pin) []uint16 {
	const (
		waitGPIO0 = 0x2000 // wait 0 gpio <index>
		waitGPIO1 = 0x2080 // wait 1 gpio <index>
		inPins1   = 0x4001 // in pins, 1
	)
	return []uint16{
		waitGPIO0 | uint16(sck),
		waitGPIO1 | uint16(sck),
		inPins1,
	}
}

// pioLink receives the wireless module's bytes on a receive-only SPI slave
// built from one PIO state machine
type pioLink struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	sck    machine.Pin
	mosi   machine.Pin
	offset uint8
}

// newPIOLink loads the program and starts the state machine
func newPIOLink(pioNum, smNum uint8, sck, mosi machine.Pin) (*pioLink, error) {
	hw := rp2pio.PIO0
	if pioNum != 0 {
		hw = rp2pio.PIO1
	}
	l := &pioLink{
		pio:  hw,
		sm:   hw.StateMachine(smNum),
		sck:  sck,
		mosi: mosi,
	}
	l.sm.TryClaim()

	program := spiSlaveProgram(sck)
	offset, err := l.pio.AddProgram(program, -1)
	if err != nil {
		return nil, err
	}
	l.offset = offset

	sck.Configure(machine.PinConfig{Mode: l.pio.PinMode()})
	mosi.Configure(machine.PinConfig{Mode: l.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(mosi, 1)
	// Shift left so the first bit lands in the MSB, autopush at 8 bits
	cfg.SetInShift(false, true, 8)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	l.sm.Init(offset, cfg)
	l.sm.SetPindirsConsecutive(sck, 1, false)
	l.sm.SetPindirsConsecutive(mosi, 1, false)
	l.sm.SetEnabled(true)
	return l, nil
}

// Poll returns the next received byte without blocking
func (l *pioLink) Poll() (byte, bool) {
	if l.sm.IsRxFIFOEmpty() {
		return 0, false
	}
	return byte(l.sm.RxGet()), true
}

// Reset drops buffered bytes and realigns the bit counter to a byte
// boundary
func (l *pioLink) Reset() error {
	l.sm.SetEnabled(false)
	l.sm.ClearFIFOs()
	l.sm.Restart()
	l.sm.ClkDivRestart()
	l.sm.Exec(uint16(l.offset)) // jmp offset
	l.sm.SetEnabled(true)
	return nil
}
