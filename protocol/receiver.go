package protocol

import "time"

// Link is a byte-oriented peripheral link. Poll never blocks.
type Link interface {
	// Poll returns the next received byte, if one is waiting
	Poll() (byte, bool)

	// Reset reinitializes the link hardware and drops buffered bytes
	Reset() error
}

// Clock is a monotonic time source
type Clock interface {
	Now() time.Duration
}

// IdleFunc runs on every empty poll. A non-nil error aborts reception and
// is returned to the caller unchanged.
type IdleFunc func() error

// ReceiverState is the receiver's position in the frame state machine
type ReceiverState uint8

const (
	StateAwaitFirstByte ReceiverState = iota
	StateReceiving
	StateQuarantine
)

func (s ReceiverState) String() string {
	switch s {
	case StateAwaitFirstByte:
		return "await_first_byte"
	case StateReceiving:
		return "receiving"
	case StateQuarantine:
		return "quarantine"
	default:
		return "invalid"
	}
}

// ReceiverConfig holds receiver timing and sizing
type ReceiverConfig struct {
	InterByteTimeout time.Duration
	ClearanceTime    time.Duration

	// Consecutive rejections before the link is reset. 1 resets after every one.
	ResyncAfter int

	BufferSize int
}

// DefaultReceiverConfig returns the stock receiver timing
func DefaultReceiverConfig() ReceiverConfig {
	cfg := ReceiverConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero fields with the stock values
func (c *ReceiverConfig) ApplyDefaults() {
	if c.InterByteTimeout <= 0 {
		c.InterByteTimeout = 10 * time.Millisecond
	}
	if c.ClearanceTime <= 0 {
		c.ClearanceTime = 100 * time.Millisecond
	}
	if c.ResyncAfter <= 0 {
		c.ResyncAfter = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = MaxFrameSize
	}
}

// ReceiverStats counts receiver outcomes
type ReceiverStats struct {
	Accepted    uint32
	Rejected    uint32
	Discarded   uint32 // bytes dropped during quarantine
	Resyncs     uint32
	ResetErrors uint32
}

// Receiver assembles frames from a Link. One frame is decoded per Receive
// call; the returned IR pattern borrows the receiver's FrameBuffer until the
// next call.
type Receiver struct {
	link       Link
	clock      Clock
	idle       IdleFunc
	quarantine func(active bool)
	cfg        ReceiverConfig

	fb          *FrameBuffer
	state       ReceiverState
	consecutive int
	stats       ReceiverStats
}

// NewReceiver creates a receiver reading from link
func NewReceiver(link Link, clock Clock, cfg ReceiverConfig) *Receiver {
	cfg.ApplyDefaults()
	return &Receiver{
		link:  link,
		clock: clock,
		cfg:   cfg,
		fb:    NewFrameBuffer(cfg.BufferSize),
	}
}

// SetIdleFunc installs the background hook
func (r *Receiver) SetIdleFunc(fn IdleFunc) {
	r.idle = fn
}

// SetQuarantineFunc installs a hook called with true when quarantine starts
// and with false once the receiver is ready again
func (r *Receiver) SetQuarantineFunc(fn func(active bool)) {
	r.quarantine = fn
}

// State returns the current state
func (r *Receiver) State() ReceiverState {
	return r.state
}

// Stats returns a copy of the counters
func (r *Receiver) Stats() ReceiverStats {
	return r.stats
}

// Buffer returns the frame buffer
func (r *Receiver) Buffer() *FrameBuffer {
	return r.fb
}

// idleAbort carries an idle hook error out of the byte source
type idleAbort struct {
	err error
}

func (e *idleAbort) Error() string {
	return e.err.Error()
}

// Receive blocks until one frame is accepted or rejected. A rejected frame
// is followed by quarantine before Receive returns a *RejectError.
func (r *Receiver) Receive() (*Frame, error) {
	r.state = StateAwaitFirstByte

	var deadline time.Duration
	next := func() (byte, error) {
		for {
			if b, ok := r.link.Poll(); ok {
				if r.state == StateAwaitFirstByte {
					r.state = StateReceiving
				}
				deadline = r.clock.Now() + r.cfg.InterByteTimeout
				return b, nil
			}
			if r.state == StateReceiving && r.clock.Now() >= deadline {
				return 0, ErrTimeout
			}
			if err := r.runIdle(); err != nil {
				return 0, &idleAbort{err: err}
			}
		}
	}

	frame, err := decodeFrame(r.fb, next)
	if err != nil {
		if abort, ok := err.(*idleAbort); ok {
			return nil, abort.err
		}
		r.stats.Rejected++
		if qerr := r.discard(); qerr != nil {
			return nil, qerr
		}
		return nil, &RejectError{Reason: err}
	}

	r.consecutive = 0
	r.stats.Accepted++
	r.state = StateAwaitFirstByte
	return frame, nil
}

// discard drops bytes until the link has been quiet for the clearance
// time, then resets the link if enough rejections piled up
func (r *Receiver) discard() error {
	r.state = StateQuarantine
	if r.quarantine != nil {
		r.quarantine(true)
	}
	quietSince := r.clock.Now()
	for r.clock.Now()-quietSince < r.cfg.ClearanceTime {
		if _, ok := r.link.Poll(); ok {
			r.stats.Discarded++
			quietSince = r.clock.Now()
			continue
		}
		if err := r.runIdle(); err != nil {
			return err
		}
	}

	r.consecutive++
	if r.consecutive >= r.cfg.ResyncAfter {
		r.consecutive = 0
		r.stats.Resyncs++
		if err := r.link.Reset(); err != nil {
			r.stats.ResetErrors++
		}
	}
	r.fb.Reset()
	r.state = StateAwaitFirstByte
	if r.quarantine != nil {
		r.quarantine(false)
	}
	return nil
}

func (r *Receiver) runIdle() error {
	if r.idle == nil {
		return nil
	}
	return r.idle()
}
