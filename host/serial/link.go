package serial

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"irproxy/protocol"
)

// Link adapts a Port to protocol.Link. A reader goroutine moves incoming
// bytes into a FIFO that Poll drains without blocking.
type Link struct {
	port Port

	mu   sync.Mutex
	fifo *protocol.FifoBuffer

	closed   int32
	done     chan struct{}
	overruns uint32
	readErrs uint32
}

// NewLink starts reading from port. capacity bounds the receive FIFO.
func NewLink(port Port, capacity int) *Link {
	if capacity <= 0 {
		capacity = 256
	}
	l := &Link{
		port: port,
		fifo: protocol.NewFifoBuffer(capacity),
		done: make(chan struct{}),
	}
	go l.readerLoop()
	return l
}

func (l *Link) readerLoop() {
	defer close(l.done)
	buf := make([]byte, 64)
	for atomic.LoadInt32(&l.closed) == 0 {
		n, err := l.port.Read(buf)
		if n > 0 {
			l.mu.Lock()
			free := l.fifo.Free()
			l.fifo.Write(buf[:n])
			l.mu.Unlock()
			if free < n {
				atomic.AddUint32(&l.overruns, uint32(n-free))
				glog.Warningf("serial link overrun, dropped %d bytes", n-free)
			}
		}
		if err == nil || errors.Is(err, io.EOF) {
			// tarm/serial reports a read timeout as an empty read
			continue
		}
		if atomic.LoadInt32(&l.closed) != 0 {
			return
		}
		atomic.AddUint32(&l.readErrs, 1)
		glog.V(1).Infof("serial read error: %v", err)
		time.Sleep(10 * time.Millisecond)
	}
}

// Poll returns the next received byte, if one is waiting
func (l *Link) Poll() (byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fifo.IsEmpty() {
		return 0, false
	}
	return l.fifo.PopByte()
}

// Reset drops everything received so far
func (l *Link) Reset() error {
	l.mu.Lock()
	l.fifo.Reset()
	l.mu.Unlock()
	return l.port.Flush()
}

// Write sends data to the peer
func (l *Link) Write(data []byte) (int, error) {
	return l.port.Write(data)
}

// Overruns returns how many bytes were dropped because the FIFO was full
func (l *Link) Overruns() uint32 {
	return atomic.LoadUint32(&l.overruns)
}

// Close stops the reader and closes the port
func (l *Link) Close() error {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return nil
	}
	err := l.port.Close()
	<-l.done
	return err
}
