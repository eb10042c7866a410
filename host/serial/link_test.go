package serial

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"irproxy/protocol"
)

// chanPort feeds reads from a channel and records writes
type chanPort struct {
	in      chan []byte
	mu      sync.Mutex
	out     bytes.Buffer
	flushes int
	closed  chan struct{}
	once    sync.Once
}

func newChanPort() *chanPort {
	return &chanPort{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (p *chanPort) Read(b []byte) (int, error) {
	select {
	case chunk := <-p.in:
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, errPortClosed
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (p *chanPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *chanPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	return nil
}

func (p *chanPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

type portError string

func (e portError) Error() string { return string(e) }

const errPortClosed = portError("port closed")

func drain(l *Link, n int) []byte {
	var got []byte
	deadline := time.Now().Add(time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		if b, ok := l.Poll(); ok {
			got = append(got, b)
			continue
		}
		time.Sleep(time.Millisecond)
	}
	return got
}

func TestLinkPollsReceivedBytes(t *testing.T) {
	port := newChanPort()
	l := NewLink(port, 64)
	defer l.Close()

	_, ok := l.Poll()
	require.False(t, ok)

	port.in <- protocol.KeepaliveCode
	port.in <- []byte{0x01, 0x02}
	require.Equal(t, []byte{0x7F, 0x00, 0x01, 0x02}, drain(l, 4))
}

func TestLinkReset(t *testing.T) {
	port := newChanPort()
	l := NewLink(port, 64)
	defer l.Close()

	port.in <- []byte{1, 2, 3}
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.fifo.Available() == 3
	}, time.Second, time.Millisecond)

	require.NoError(t, l.Reset())
	_, ok := l.Poll()
	require.False(t, ok)
	require.Equal(t, 1, port.flushes)
}

func TestLinkOverrun(t *testing.T) {
	port := newChanPort()
	l := NewLink(port, 4)
	defer l.Close()

	port.in <- []byte{1, 2, 3, 4, 5, 6}
	require.Eventually(t, func() bool { return l.Overruns() == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []byte{1, 2, 3}, drain(l, 3))
}

func TestLinkWriteAndClose(t *testing.T) {
	port := newChanPort()
	l := NewLink(port, 16)

	n, err := l.Write(protocol.ResetRequestCode)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{0x7E, 0x00}, port.out.Bytes())

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}
