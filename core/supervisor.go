package core

import (
	"errors"
	"time"

	"irproxy/protocol"
)

// ErrRestart is returned once the system restart has been carried out on a
// platform where Restarter.Restart returns
var ErrRestart = errors.New("system restart")

// RetryTag marks a RetryState that survived a warm reset
const RetryTag = 0x91

// RetryState counts module-initiated resets across warm resets
type RetryState struct {
	Tag   byte
	Count byte
}

// Valid reports whether the tag proves the state was written by us
func (r RetryState) Valid() bool {
	return r.Tag == RetryTag
}

// MemoryRetryStore keeps the retry state in RAM. It survives restarts of
// the main loop on hosts but not a power cycle.
type MemoryRetryStore struct {
	state RetryState
}

func (m *MemoryRetryStore) Load() RetryState   { return m.state }
func (m *MemoryRetryStore) Store(s RetryState) { m.state = s }

// TimerKind selects which supervisor timers a rearm clears
type TimerKind uint8

const (
	// TimerKeepalive clears the traffic deadline
	TimerKeepalive TimerKind = iota
	// TimerInactivity clears the traffic and the IR pattern deadlines
	TimerInactivity
)

// SupervisorConfig holds the supervisor deadlines
type SupervisorConfig struct {
	CoarseTick              time.Duration
	KeepaliveTimeout        time.Duration
	InitialKeepaliveTimeout time.Duration
	InactivityTimeout       time.Duration
	MinResetWidth           time.Duration
	NormalDelay             time.Duration
	ExtendedDelay           time.Duration
	MaxRetries              uint8
}

// DefaultSupervisorConfig returns the stock deadlines
func DefaultSupervisorConfig() SupervisorConfig {
	cfg := SupervisorConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields with the stock values
func (c *SupervisorConfig) ApplyDefaults() {
	if c.CoarseTick <= 0 {
		c.CoarseTick = time.Second
	}
	if c.KeepaliveTimeout <= 0 {
		c.KeepaliveTimeout = 30 * time.Second
	}
	if c.InitialKeepaliveTimeout < c.KeepaliveTimeout {
		c.InitialKeepaliveTimeout = 3 * c.KeepaliveTimeout
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 6 * time.Hour
	}
	if c.MinResetWidth <= 0 {
		c.MinResetWidth = time.Second
	}
	if c.NormalDelay <= 0 {
		c.NormalDelay = time.Second
	}
	if c.ExtendedDelay <= 0 {
		c.ExtendedDelay = 10 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 10
	}
}

// Supervisor decides when the wireless module must be power-cycled. It
// owns the liveness timers and the persisted retry counter.
type Supervisor struct {
	cfg       SupervisorConfig
	clock     protocol.Clock
	line      ResetLine
	restarter Restarter
	store     RetryStore
	indicator Indicator

	keepalive  int32 // coarse ticks, negative during the boot grace period
	inactivity uint32
	lastTick   time.Duration
	started    bool

	keepaliveLimit  int32
	inactivityLimit uint32

	restarts uint32
}

// NewSupervisor creates a supervisor. Start must be called before Poll
// does anything.
func NewSupervisor(clock protocol.Clock, board Board, cfg SupervisorConfig) *Supervisor {
	cfg.ApplyDefaults()
	indicator := board.Indicator
	if indicator == nil {
		indicator = noIndicator{}
	}
	return &Supervisor{
		cfg:             cfg,
		clock:           clock,
		line:            board.Reset,
		restarter:       board.Restarter,
		store:           board.Store,
		indicator:       indicator,
		keepaliveLimit:  int32(cfg.KeepaliveTimeout / cfg.CoarseTick),
		inactivityLimit: uint32(cfg.InactivityTimeout / cfg.CoarseTick),
	}
}

// StartupDelay returns how long the module must be held in reset before
// normal startup. A warm boot after too many module resets gets the
// extended cooldown. An untagged state is reinitialized.
func (s *Supervisor) StartupDelay() time.Duration {
	st := s.store.Load()
	if !st.Valid() {
		s.store.Store(RetryState{Tag: RetryTag})
		return s.cfg.NormalDelay
	}
	if st.Count > s.cfg.MaxRetries {
		DebugPrintln("[SUP] retries=" + itoa(int(st.Count)) + " extended cooldown")
		return s.cfg.ExtendedDelay
	}
	return s.cfg.NormalDelay
}

// HoldModule asserts the module reset line
func (s *Supervisor) HoldModule() {
	s.line.Assert()
}

// Start releases the module and arms both timers. The keepalive timer
// starts negative so the module gets the longer boot deadline.
func (s *Supervisor) Start() {
	s.line.Release()
	s.inactivity = 0
	grace := int32((s.cfg.InitialKeepaliveTimeout - s.cfg.KeepaliveTimeout) / s.cfg.CoarseTick)
	s.keepalive = -grace
	s.lastTick = s.clock.Now()
	s.started = true
}

// Rearm clears the timers selected by kind
func (s *Supervisor) Rearm(kind TimerKind) {
	switch kind {
	case TimerInactivity:
		s.inactivity = 0
		s.keepalive = 0
	default:
		// also ends the boot grace period
		s.keepalive = 0
	}
}

// PatternSent records a successfully transmitted pattern
func (s *Supervisor) PatternSent() {
	s.Rearm(TimerInactivity)
	st := s.store.Load()
	if st.Tag != RetryTag || st.Count != 0 {
		s.store.Store(RetryState{Tag: RetryTag})
	}
}

// Poll advances the timers by every whole coarse tick elapsed since the
// last call. It is the receiver's idle hook.
func (s *Supervisor) Poll() error {
	if !s.started {
		return nil
	}
	now := s.clock.Now()
	for now-s.lastTick >= s.cfg.CoarseTick {
		s.lastTick += s.cfg.CoarseTick
		if err := s.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Tick advances both timers by one coarse tick and resets the module when
// a deadline has passed. Inactivity wins when both expire on the same tick.
func (s *Supervisor) Tick() error {
	s.keepalive++
	s.inactivity++

	if s.inactivity >= s.inactivityLimit {
		// Routine power cycle, not counted as a module failure
		DebugPrintln("[SUP] inactivity timeout")
		return s.Restart()
	}
	if s.keepalive >= s.keepaliveLimit {
		DebugPrintln("[SUP] keepalive timeout")
		return s.TriggerReset()
	}
	return nil
}

// TriggerReset counts a module-initiated reset and restarts the system
func (s *Supervisor) TriggerReset() error {
	st := s.store.Load()
	if !st.Valid() {
		st = RetryState{Tag: RetryTag}
	}
	if st.Count < 0xFF {
		st.Count++
	}
	s.store.Store(st)
	return s.Restart()
}

// HandleResetRequest serves a reset request sent by the module itself
func (s *Supervisor) HandleResetRequest() error {
	DebugPrintln("[SUP] reset requested by module")
	return s.TriggerReset()
}

// Restart holds the module in reset for the minimum pulse width with
// interrupts masked, then restarts the system
func (s *Supervisor) Restart() error {
	s.indicator.Show(StatusResetting)
	s.started = false
	RecordEvent(EvtReset, 0, millis(s.clock.Now()), uint32(s.store.Load().Count), s.restarts)
	if IsDebugEnabled() {
		DumpEvents()
	}

	state := disableInterrupts()
	s.line.Assert()
	start := s.clock.Now()
	for s.clock.Now()-start < s.cfg.MinResetWidth {
	}
	s.restarts++
	s.restarter.Restart()
	restoreInterrupts(state)

	return ErrRestart
}

// Retries returns the persisted retry count
func (s *Supervisor) Retries() byte {
	return s.store.Load().Count
}

// KeepaliveElapsed returns the keepalive timer in coarse ticks
func (s *Supervisor) KeepaliveElapsed() int32 {
	return s.keepalive
}

// InactivityElapsed returns the inactivity timer in coarse ticks
func (s *Supervisor) InactivityElapsed() uint32 {
	return s.inactivity
}

// Restarts returns how many restarts this supervisor carried out
func (s *Supervisor) Restarts() uint32 {
	return s.restarts
}
