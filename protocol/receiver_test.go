package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }

type linkEvent struct {
	at time.Duration
	b  byte
}

// scriptedLink delivers bytes at fixed times. Every poll advances the clock
// by step so loops make progress.
type scriptedLink struct {
	clock  *fakeClock
	step   time.Duration
	events []linkEvent
	resets int
}

func (l *scriptedLink) Poll() (byte, bool) {
	l.clock.now += l.step
	if len(l.events) > 0 && l.clock.now >= l.events[0].at {
		b := l.events[0].b
		l.events = l.events[1:]
		return b, true
	}
	return 0, false
}

func (l *scriptedLink) Reset() error {
	l.resets++
	return nil
}

// send schedules data starting at start with gap between bytes
func (l *scriptedLink) send(start, gap time.Duration, data ...byte) time.Duration {
	at := start
	for _, b := range data {
		l.events = append(l.events, linkEvent{at: at, b: b})
		at += gap
	}
	return at
}

func newTestReceiver(cfg ReceiverConfig) (*Receiver, *scriptedLink, *fakeClock) {
	clock := &fakeClock{}
	link := &scriptedLink{clock: clock, step: 100 * time.Microsecond}
	return NewReceiver(link, clock, cfg), link, clock
}

func TestReceiverKeepalive(t *testing.T) {
	r, link, _ := newTestReceiver(ReceiverConfig{})
	link.send(time.Millisecond, time.Millisecond, KeepaliveCode...)

	frame, err := r.Receive()
	require.NoError(t, err)
	require.Equal(t, KindKeepalive, frame.Kind)
	require.Equal(t, StateAwaitFirstByte, r.State())
	require.Equal(t, uint32(1), r.Stats().Accepted)
	require.Zero(t, link.resets)
}

func TestReceiverIRPattern(t *testing.T) {
	src := samplePattern(3)
	data, err := src.Bytes()
	require.NoError(t, err)

	r, link, _ := newTestReceiver(ReceiverConfig{})
	link.send(5*time.Millisecond, 2*time.Millisecond, data...)

	frame, err := r.Receive()
	require.NoError(t, err)
	require.Equal(t, KindIRPattern, frame.Kind)
	require.Equal(t, uint8(3), frame.Pattern.PulseCount)
	require.Equal(t, src.CarrierPeriod, frame.Pattern.CarrierPeriod)
	require.Same(t, r.Buffer(), frame.Pattern.Timing)

	for _, pulse := range src.Pulses {
		high, err := frame.Pattern.NextDuration()
		require.NoError(t, err)
		low, err := frame.Pattern.NextDuration()
		require.NoError(t, err)
		require.Equal(t, pulse, Pulse{High: high, Low: low})
	}
}

func TestReceiverIdleWhileWaiting(t *testing.T) {
	r, link, _ := newTestReceiver(ReceiverConfig{})
	link.send(50*time.Millisecond, time.Millisecond, KeepaliveCode...)

	calls := 0
	r.SetIdleFunc(func() error {
		calls++
		return nil
	})

	_, err := r.Receive()
	require.NoError(t, err)
	require.Greater(t, calls, 100, "idle hook must run on every empty poll")
}

func TestReceiverInterByteTimeout(t *testing.T) {
	r, link, _ := newTestReceiver(ReceiverConfig{})
	link.send(time.Millisecond, time.Millisecond, 0x01, 0x03)

	_, err := r.Receive()
	require.ErrorIs(t, err, ErrRejected)
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 1, link.resets)
	require.Equal(t, uint32(1), r.Stats().Rejected)
}

func TestReceiverSlowBytesWithinGuard(t *testing.T) {
	// The guard is rearmed by every byte, so a frame slower than the
	// timeout overall is still accepted
	r, link, _ := newTestReceiver(ReceiverConfig{})
	data, err := samplePattern(2).Bytes()
	require.NoError(t, err)
	link.send(time.Millisecond, 8*time.Millisecond, data...)

	frame, err := r.Receive()
	require.NoError(t, err)
	require.Equal(t, KindIRPattern, frame.Kind)
}

func TestReceiverQuarantineDiscards(t *testing.T) {
	r, link, _ := newTestReceiver(ReceiverConfig{})

	link.send(time.Millisecond, 0, 0x55)
	// Garbage keeps arriving inside the clearance window
	last := link.send(50*time.Millisecond, 50*time.Millisecond, 0x7F, 0x00, 0x01)
	link.send(last+200*time.Millisecond, time.Millisecond, KeepaliveCode...)

	_, err := r.Receive()
	require.ErrorIs(t, err, ErrUnknownKind)
	require.Equal(t, uint32(3), r.Stats().Discarded, "bytes inside the clearance window are dropped")
	require.Equal(t, 1, link.resets)

	frame, err := r.Receive()
	require.NoError(t, err)
	require.Equal(t, KindKeepalive, frame.Kind)
}

func TestReceiverQuarantineHook(t *testing.T) {
	r, link, clock := newTestReceiver(ReceiverConfig{})

	var calls []bool
	var states []ReceiverState
	var enteredAt time.Duration
	r.SetQuarantineFunc(func(active bool) {
		calls = append(calls, active)
		states = append(states, r.State())
		if active {
			enteredAt = clock.now
		}
	})

	link.send(time.Millisecond, time.Millisecond, 0x7F, 0x02)
	_, err := r.Receive()
	require.ErrorIs(t, err, ErrPayload)
	require.Equal(t, []bool{true, false}, calls)
	require.Equal(t, []ReceiverState{StateQuarantine, StateAwaitFirstByte}, states)
	require.GreaterOrEqual(t, clock.now-enteredAt, DefaultReceiverConfig().ClearanceTime)

	// Accepted frames leave the hook alone
	link.send(clock.now+time.Millisecond, time.Millisecond, KeepaliveCode...)
	_, err = r.Receive()
	require.NoError(t, err)
	require.Len(t, calls, 2)
}

func TestReceiverOverflowCompactBuffer(t *testing.T) {
	data, err := samplePattern(MaxPulses).Bytes()
	require.NoError(t, err)

	r, link, _ := newTestReceiver(ReceiverConfig{BufferSize: CompactFrameSize})
	link.send(time.Millisecond, 500*time.Microsecond, data...)

	_, err = r.Receive()
	require.ErrorIs(t, err, ErrOverflow)
	require.LessOrEqual(t, r.Buffer().Len(), CompactFrameSize)
	// The remainder of the frame is swallowed by quarantine
	require.Equal(t, uint32(len(data)-CompactFrameSize-1), r.Stats().Discarded)
}

func TestReceiverResyncThreshold(t *testing.T) {
	r, link, _ := newTestReceiver(ReceiverConfig{ResyncAfter: 3})

	at := time.Millisecond
	for i := 0; i < 3; i++ {
		link.send(at, time.Millisecond, 0x7F, 0x02)
		at += 500 * time.Millisecond
	}

	for i := 1; i <= 3; i++ {
		_, err := r.Receive()
		require.ErrorIs(t, err, ErrPayload)
		if i < 3 {
			require.Zero(t, link.resets)
		}
	}
	require.Equal(t, 1, link.resets)
	require.Equal(t, uint32(1), r.Stats().Resyncs)
}

func TestReceiverIdleErrorPropagates(t *testing.T) {
	errStop := errors.New("restart requested")
	r, _, _ := newTestReceiver(ReceiverConfig{})

	calls := 0
	r.SetIdleFunc(func() error {
		calls++
		if calls == 10 {
			return errStop
		}
		return nil
	})

	_, err := r.Receive()
	require.Equal(t, errStop, err)
	require.False(t, errors.Is(err, ErrRejected))
}

func TestReceiverIdleErrorDuringQuarantine(t *testing.T) {
	errStop := errors.New("restart requested")
	r, link, _ := newTestReceiver(ReceiverConfig{})
	link.send(time.Millisecond, 0, 0x33)

	r.SetIdleFunc(func() error {
		if r.State() == StateQuarantine {
			return errStop
		}
		return nil
	})

	_, err := r.Receive()
	require.Equal(t, errStop, err)
	require.Zero(t, link.resets)
}
