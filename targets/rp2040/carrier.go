//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	"irproxy/protocol"
)

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// carrierOutput generates the IR carrier on a PWM slice. Each wrap of the
// slice counter is one carrier cycle and raises the tick interrupt.
//
// The emitter is driven through an inverting stage: the pin is low while
// the LED is lit and idles high.
type carrierOutput struct {
	pin     machine.Pin
	slice   uint8
	pwm     pwmPeripheral
	channel uint8
	duty    uint32

	tick func()
	irq  interrupt.Interrupt
}

var carrier *carrierOutput

// newCarrierOutput claims the PWM slice behind pin
func newCarrierOutput(pin machine.Pin) *carrierOutput {
	// GPIO N maps to slice (N >> 1) & 7, channel N & 1
	slice := uint8((uint32(pin) >> 1) & 0x7)
	c := &carrierOutput{
		pin:   pin,
		slice: slice,
		pwm:   pwmSlice(slice),
	}
	carrier = c
	c.irq = interrupt.New(rp.IRQ_PWM_IRQ_WRAP, carrierWrap)
	c.Disconnect()
	return c
}

// Configure programs period and high time in protocol.CarrierClockHz cycles
func (c *carrierOutput) Configure(period, high uint16) error {
	ns := protocol.CyclesToNanos(period)
	if err := c.pwm.Configure(machine.PWMConfig{Period: ns}); err != nil {
		return err
	}
	top := c.pwm.Top()
	// Inverted output: compare on the low part of the cycle
	c.duty = uint32(uint64(period-high) * uint64(top) / uint64(period))
	return nil
}

// Connect routes the PWM slice to the pin
func (c *carrierOutput) Connect() {
	ch, err := c.pwm.Channel(c.pin)
	if err != nil {
		return
	}
	c.channel = ch
	c.pwm.Set(ch, c.duty)
}

// Disconnect takes the pin from the PWM and holds it at the idle level
func (c *carrierOutput) Disconnect() {
	c.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	c.pin.High()
}

// Stop turns the emitter off. The slice keeps counting but is no longer
// routed to the pin.
func (c *carrierOutput) Stop() {
	c.Disconnect()
}

// EnableTick unmasks the slice wrap interrupt
func (c *carrierOutput) EnableTick(tick func()) {
	c.tick = tick
	mask := uint32(1) << c.slice
	rp.PWM.INTR.Set(mask)
	rp.PWM.INTE.SetBits(mask)
	c.irq.SetPriority(0x40)
	c.irq.Enable()
}

// DisableTick masks the slice wrap interrupt
func (c *carrierOutput) DisableTick() {
	mask := uint32(1) << c.slice
	rp.PWM.INTE.ClearBits(mask)
	rp.PWM.INTR.Set(mask)
}

func carrierWrap(interrupt.Interrupt) {
	c := carrier
	mask := uint32(1) << c.slice
	if !rp.PWM.INTS.HasBits(mask) {
		return
	}
	rp.PWM.INTR.Set(mask)
	if c.tick != nil {
		c.tick()
	}
}

// pwmSlice returns the PWM peripheral for a slice number
func pwmSlice(slice uint8) pwmPeripheral {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
