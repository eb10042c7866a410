package core

import (
	"errors"
	"time"

	"irproxy/protocol"
)

// ProxyConfig wires the component configurations together
type ProxyConfig struct {
	Receiver   protocol.ReceiverConfig
	Supervisor SupervisorConfig
}

// ProxyStats counts main loop outcomes
type ProxyStats struct {
	Patterns   uint32
	Keepalives uint32
	Requests   uint32
	Rejected   uint32
	TxFailures uint32
}

// Proxy is the main loop: boot backoff, then receive and dispatch frames
// until the supervisor restarts the system.
type Proxy struct {
	clock      protocol.Clock
	receiver   *protocol.Receiver
	generator  *Generator
	supervisor *Supervisor
	indicator  Indicator

	// sleep waits out the startup delay. Replaceable for tests.
	sleep func(time.Duration)

	stats ProxyStats
}

// NewProxy builds the proxy from a link, a clock and the board drivers
func NewProxy(link protocol.Link, clock protocol.Clock, board Board, cfg ProxyConfig) (*Proxy, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrMissingDriver
	}
	indicator := board.Indicator
	if indicator == nil {
		indicator = noIndicator{}
	}

	p := &Proxy{
		clock:      clock,
		receiver:   protocol.NewReceiver(link, clock, cfg.Receiver),
		generator:  NewGenerator(board.Output),
		supervisor: NewSupervisor(clock, board, cfg.Supervisor),
		indicator:  indicator,
		sleep:      time.Sleep,
	}
	p.receiver.SetIdleFunc(p.supervisor.Poll)
	p.receiver.SetQuarantineFunc(func(active bool) {
		if active {
			p.indicator.Show(StatusQuarantine)
			return
		}
		p.indicator.Show(StatusReady)
	})
	return p, nil
}

// SetSleep replaces the function used to wait out the startup delay
func (p *Proxy) SetSleep(fn func(time.Duration)) {
	p.sleep = fn
}

// Receiver returns the frame receiver
func (p *Proxy) Receiver() *protocol.Receiver { return p.receiver }

// Generator returns the waveform generator
func (p *Proxy) Generator() *Generator { return p.generator }

// Supervisor returns the module supervisor
func (p *Proxy) Supervisor() *Supervisor { return p.supervisor }

// Stats returns a copy of the counters
func (p *Proxy) Stats() ProxyStats { return p.stats }

// Boot holds the module in reset for the startup delay, then releases it
// and arms the supervisor
func (p *Proxy) Boot() error {
	p.indicator.Show(StatusBooting)
	p.supervisor.HoldModule()

	delay := p.supervisor.StartupDelay()
	if delay > p.supervisor.cfg.NormalDelay {
		p.indicator.Show(StatusCooldown)
	}
	DebugPrintln("[PROXY] startup delay " + msec(delay))
	p.sleep(delay)

	p.supervisor.Start()
	RecordEvent(EvtBoot, 0, millis(p.clock.Now()), uint32(delay/time.Millisecond), 0)
	p.indicator.Show(StatusReady)
	return nil
}

// Step receives one frame and acts on it. Rejected frames are absorbed;
// any returned error ends the main loop.
func (p *Proxy) Step() error {
	frame, err := p.receiver.Receive()
	if err != nil {
		if errors.Is(err, protocol.ErrRejected) {
			p.stats.Rejected++
			RecordEvent(EvtReject, 0, millis(p.clock.Now()), p.stats.Rejected, 0)
			DebugPrintln("[PROXY] " + err.Error())
			return nil
		}
		return err
	}
	RecordEvent(EvtFrame, uint8(frame.Kind), millis(p.clock.Now()), 0, 0)

	switch frame.Kind {
	case protocol.KindIRPattern:
		p.indicator.Show(StatusTransmitting)
		err := p.generator.Transmit(frame.Pattern)
		p.indicator.Show(StatusReady)
		if err != nil {
			p.stats.TxFailures++
			RecordEvent(EvtTxFailure, uint8(frame.Kind), millis(p.clock.Now()), uint32(frame.Pattern.PulseCount), 0)
			DebugPrintln("[PROXY] transmit failed: " + err.Error())
			p.supervisor.Rearm(TimerKeepalive)
			return nil
		}
		p.stats.Patterns++
		RecordEvent(EvtTransmit, uint8(frame.Kind), millis(p.clock.Now()),
			uint32(frame.Pattern.PulseCount), p.generator.Ticks())
		p.supervisor.PatternSent()

	case protocol.KindKeepalive:
		p.stats.Keepalives++
		p.indicator.Show(StatusReady)
		p.supervisor.Rearm(TimerKeepalive)

	case protocol.KindResetRequest:
		p.stats.Requests++
		return p.supervisor.HandleResetRequest()

	default:
		DebugPrintln("[PROXY] unexpected frame kind " + frame.Kind.String())
		return p.supervisor.Restart()
	}
	return nil
}

// Run boots and then steps until the supervisor restarts the system
func (p *Proxy) Run() error {
	if err := p.Boot(); err != nil {
		return err
	}
	for {
		if err := p.Step(); err != nil {
			return err
		}
	}
}
