package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// stepClock advances by step on every read so busy-waits terminate
type stepClock struct {
	now  time.Duration
	step time.Duration
}

func (c *stepClock) Now() time.Duration {
	c.now += c.step
	return c.now
}

// fakeOutput records carrier switching. With auto set, EnableTick drives
// the tick from a goroutine like a hardware interrupt would.
type fakeOutput struct {
	mu sync.Mutex

	auto      bool
	configErr error

	period, high uint16
	configured   int
	connected    bool
	segments     []bool // true = carrier connected
	segmentAt    []int  // tick count when each segment started
	stopped      int
	tickCount    int

	tick        func()
	tickEnabled int32 // generation of the active tick source, 0 when off
	gen         int32
}

func (o *fakeOutput) Configure(period, high uint16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.configErr != nil {
		return o.configErr
	}
	o.period, o.high = period, high
	o.configured++
	return nil
}

func (o *fakeOutput) Connect()    { o.switchTo(true) }
func (o *fakeOutput) Disconnect() { o.switchTo(false) }

func (o *fakeOutput) switchTo(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = on
	o.segments = append(o.segments, on)
	o.segmentAt = append(o.segmentAt, o.tickCount)
}

func (o *fakeOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = false
	o.stopped++
}

func (o *fakeOutput) EnableTick(tick func()) {
	o.mu.Lock()
	o.tick = tick
	o.mu.Unlock()
	gen := atomic.AddInt32(&o.gen, 1)
	atomic.StoreInt32(&o.tickEnabled, gen)
	if o.auto {
		go func() {
			for atomic.LoadInt32(&o.tickEnabled) == gen {
				o.fire()
			}
		}()
	}
}

func (o *fakeOutput) DisableTick() {
	atomic.StoreInt32(&o.tickEnabled, 0)
}

// fire delivers one carrier-cycle tick
func (o *fakeOutput) fire() {
	o.mu.Lock()
	o.tickCount++
	tick := o.tick
	o.mu.Unlock()
	tick()
}

func (o *fakeOutput) ticking() bool {
	return atomic.LoadInt32(&o.tickEnabled) != 0
}

type fakeResetLine struct {
	asserted bool
	asserts  int
	releases int
}

func (l *fakeResetLine) Assert() {
	l.asserted = true
	l.asserts++
}

func (l *fakeResetLine) Release() {
	l.asserted = false
	l.releases++
}

type fakeRestarter struct {
	clock    *stepClock
	restarts int
	at       []time.Duration
}

func (r *fakeRestarter) Restart() {
	r.restarts++
	if r.clock != nil {
		r.at = append(r.at, r.clock.now)
	}
}

type recordingIndicator struct {
	shown []Status
}

func (i *recordingIndicator) Show(s Status) {
	i.shown = append(i.shown, s)
}

func (i *recordingIndicator) saw(s Status) bool {
	for _, got := range i.shown {
		if got == s {
			return true
		}
	}
	return false
}

// queueLink delivers scheduled bytes once the clock has reached them
type queueLink struct {
	clock  *stepClock
	at     []time.Duration
	data   []byte
	resets int
}

func (l *queueLink) send(at time.Duration, data ...byte) {
	for _, b := range data {
		l.at = append(l.at, at)
		l.data = append(l.data, b)
	}
}

func (l *queueLink) Poll() (byte, bool) {
	if len(l.data) == 0 || l.clock.now < l.at[0] {
		return 0, false
	}
	b := l.data[0]
	l.data = l.data[1:]
	l.at = l.at[1:]
	return b, true
}

func (l *queueLink) Reset() error {
	l.resets++
	return nil
}

type testBoard struct {
	clock     *stepClock
	output    *fakeOutput
	line      *fakeResetLine
	restarter *fakeRestarter
	store     *MemoryRetryStore
	indicator *recordingIndicator
}

func newTestBoard() *testBoard {
	clock := &stepClock{step: time.Millisecond}
	return &testBoard{
		clock:     clock,
		output:    &fakeOutput{auto: true},
		line:      &fakeResetLine{},
		restarter: &fakeRestarter{clock: clock},
		store:     &MemoryRetryStore{},
		indicator: &recordingIndicator{},
	}
}

func (b *testBoard) board() Board {
	return Board{
		Output:    b.output,
		Reset:     b.line,
		Restarter: b.restarter,
		Store:     b.store,
		Indicator: b.indicator,
	}
}
