package core

import (
	"errors"
	"runtime"
	"sync/atomic"

	"irproxy/protocol"
)

var (
	ErrTooManyPulses = errors.New("pulse count exceeds maximum")
	ErrGeneratorBusy = errors.New("waveform generation in progress")
	ErrTimingData    = errors.New("pattern timing data ended early")
)

// GeneratorState is the waveform generator's state
type GeneratorState uint32

const (
	GenIdle GeneratorState = iota
	GenArmed
	GenRunning
)

// Generator plays an IR pattern on a PulseOutput. The output's carrier
// tick drives Tick; segment fields are owned by Tick while running and the
// main flow only reads the atomic flags.
//
// Segment 2k is pulse k's high time with the carrier connected, segment
// 2k+1 its low time with the output forced idle.
type Generator struct {
	out PulseOutput

	pattern   *protocol.IRPattern
	segment   uint32
	segments  uint32
	remaining uint16

	state   uint32 // GeneratorState
	running uint32 // 1 while the tick is enabled
	failed  uint32 // timing decode failed during the last run

	ticks  uint32
	played uint32
}

// NewGenerator creates a generator driving out
func NewGenerator(out PulseOutput) *Generator {
	return &Generator{out: out}
}

// State returns the current state
func (g *Generator) State() GeneratorState {
	return GeneratorState(atomic.LoadUint32(&g.state))
}

// HasEnded reports whether no generation is in progress
func (g *Generator) HasEnded() bool {
	return atomic.LoadUint32(&g.running) == 0
}

// Arm starts playing p and returns without waiting. A pattern without
// pulses completes immediately and leaves the output untouched.
func (g *Generator) Arm(p *protocol.IRPattern) error {
	if !g.HasEnded() {
		return ErrGeneratorBusy
	}
	if p.PulseCount > protocol.MaxPulses {
		return ErrTooManyPulses
	}
	atomic.StoreUint32(&g.failed, 0)
	if p.PulseCount == 0 {
		return nil
	}

	atomic.StoreUint32(&g.state, uint32(GenArmed))
	p.Rewind()
	first, err := p.NextDuration()
	if err != nil {
		atomic.StoreUint32(&g.state, uint32(GenIdle))
		return ErrTimingData
	}
	if err := g.out.Configure(p.CarrierPeriod, p.CarrierHigh); err != nil {
		atomic.StoreUint32(&g.state, uint32(GenIdle))
		return err
	}

	g.pattern = p
	g.segment = 0
	g.segments = uint32(p.PulseCount) * 2
	g.remaining = first
	g.ticks = 0

	g.out.Connect()
	atomic.StoreUint32(&g.state, uint32(GenRunning))
	atomic.StoreUint32(&g.running, 1)
	g.out.EnableTick(g.Tick)
	return nil
}

// Transmit plays p and waits until the last segment has elapsed
func (g *Generator) Transmit(p *protocol.IRPattern) error {
	if err := g.Arm(p); err != nil {
		return err
	}
	for !g.HasEnded() {
		runtime.Gosched()
	}
	if atomic.LoadUint32(&g.failed) != 0 {
		return ErrTimingData
	}
	atomic.AddUint32(&g.played, 1)
	return nil
}

// Tick advances the current segment by one carrier cycle.
// Called from interrupt context.
func (g *Generator) Tick() {
	if atomic.LoadUint32(&g.running) == 0 {
		return
	}
	g.ticks++
	if g.remaining > 0 {
		g.remaining--
	}
	if g.remaining > 0 {
		return
	}

	g.segment++
	if g.segment >= g.segments {
		g.finish()
		return
	}
	if g.segment&1 == 1 {
		g.out.Disconnect()
	} else {
		g.out.Connect()
	}

	next, err := g.pattern.NextDuration()
	if err != nil {
		atomic.StoreUint32(&g.failed, 1)
		g.finish()
		return
	}
	g.remaining = next
}

func (g *Generator) finish() {
	g.out.Stop()
	g.out.DisableTick()
	g.pattern = nil
	atomic.StoreUint32(&g.state, uint32(GenIdle))
	atomic.StoreUint32(&g.running, 0)
}

// Ticks returns the ticks consumed by the current or last pattern
func (g *Generator) Ticks() uint32 {
	return g.ticks
}

// Played returns the number of patterns transmitted completely
func (g *Generator) Played() uint32 {
	return atomic.LoadUint32(&g.played)
}
