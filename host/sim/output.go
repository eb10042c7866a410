// Package sim provides host implementations of the proxy board drivers so
// the firmware main loop can run on a PC.
package sim

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Segment is one stretch of the emitted envelope
type Segment struct {
	On     bool
	Cycles uint32
}

// Output is a simulated pulse output. The carrier tick comes from a
// goroutine and every played envelope is recorded and logged.
type Output struct {
	// TickInterval paces the simulated carrier. Zero runs flat out.
	TickInterval time.Duration

	mu        sync.Mutex
	period    uint16
	high      uint16
	segments  []Segment
	last      []Segment
	connected bool

	tickEnabled int32 // generation of the running ticker, 0 when off
	gen         int32
	played      uint32
}

// NewOutput creates a simulated output
func NewOutput(tickInterval time.Duration) *Output {
	return &Output{TickInterval: tickInterval}
}

// Configure records the carrier. The emitter is driven through an
// inverting stage, so the modulator duty is the carrier's low time.
func (o *Output) Configure(period, high uint16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.period, o.high = period, high
	o.segments = o.segments[:0]
	glog.V(2).Infof("carrier period=%d high=%d duty=%d", period, high, period-high)
	return nil
}

func (o *Output) Connect()    { o.startSegment(true) }
func (o *Output) Disconnect() { o.startSegment(false) }

func (o *Output) startSegment(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = on
	o.segments = append(o.segments, Segment{On: on})
}

// Stop closes the envelope and logs it
func (o *Output) Stop() {
	o.mu.Lock()
	o.connected = false
	o.last = append(o.last[:0], o.segments...)
	o.segments = o.segments[:0]
	period, high := o.period, o.high
	envelope := FormatEnvelope(o.last)
	o.mu.Unlock()

	atomic.AddUint32(&o.played, 1)
	glog.V(1).Infof("IR carrier %d/%d envelope %s", high, period, envelope)
}

// EnableTick starts the simulated carrier interrupt
func (o *Output) EnableTick(tick func()) {
	gen := atomic.AddInt32(&o.gen, 1)
	atomic.StoreInt32(&o.tickEnabled, gen)
	go func() {
		for atomic.LoadInt32(&o.tickEnabled) == gen {
			o.mu.Lock()
			if n := len(o.segments); n > 0 {
				o.segments[n-1].Cycles++
			}
			o.mu.Unlock()

			tick()

			if o.TickInterval > 0 {
				time.Sleep(o.TickInterval)
			} else {
				runtime.Gosched()
			}
		}
	}()
}

// DisableTick stops the simulated carrier interrupt
func (o *Output) DisableTick() {
	atomic.StoreInt32(&o.tickEnabled, 0)
}

// LastEnvelope returns the segments of the last completed pattern
func (o *Output) LastEnvelope() []Segment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Segment(nil), o.last...)
}

// Played returns how many patterns reached Stop
func (o *Output) Played() uint32 {
	return atomic.LoadUint32(&o.played)
}

// FormatEnvelope renders segments as "+on -off ..." cycle counts
func FormatEnvelope(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 {
			b.WriteByte(' ')
		}
		if s.On {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(strconv.FormatUint(uint64(s.Cycles), 10))
	}
	return b.String()
}
