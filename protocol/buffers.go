package protocol

import "errors"

var (
	ErrOverflow    = errors.New("frame buffer overflow")
	ErrEndOfBuffer = errors.New("read past end of frame buffer")
)

// OutputBuffer provides an abstraction for writing outgoing protocol data
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// FrameBuffer is a bounded byte store with independent write and read
// cursors. The receiver appends raw frame bytes through Write and the
// waveform generator later walks the stored durations with ReadValue.
//
// Invariant: readPos <= writePos <= len(buf).
type FrameBuffer struct {
	buf      []byte
	writePos int
	readPos  int
}

// NewFrameBuffer creates a FrameBuffer holding at most capacity bytes
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity <= 0 {
		capacity = MaxFrameSize
	}
	return &FrameBuffer{buf: make([]byte, capacity)}
}

// Write appends one byte. Fails with ErrOverflow once the buffer is full.
func (f *FrameBuffer) Write(b byte) error {
	if f.writePos >= len(f.buf) {
		return ErrOverflow
	}
	f.buf[f.writePos] = b
	f.writePos++
	return nil
}

// ReadValue decodes the varint at the read cursor and advances past it
func (f *FrameBuffer) ReadValue() (uint16, error) {
	if f.readPos >= f.writePos {
		return 0, ErrEndOfBuffer
	}
	v, n, err := DecodeVarintAt(f.buf[f.readPos:f.writePos])
	if err != nil {
		return 0, err
	}
	f.readPos += n
	return v, nil
}

// SetReadPos moves the read cursor, clamped to the written region
func (f *FrameBuffer) SetReadPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > f.writePos {
		pos = f.writePos
	}
	f.readPos = pos
}

// ReadPos returns the read cursor
func (f *FrameBuffer) ReadPos() int {
	return f.readPos
}

// Len returns the number of bytes written
func (f *FrameBuffer) Len() int {
	return f.writePos
}

// Cap returns the buffer capacity
func (f *FrameBuffer) Cap() int {
	return len(f.buf)
}

// Bytes returns the written region. The slice aliases the buffer.
func (f *FrameBuffer) Bytes() []byte {
	return f.buf[:f.writePos]
}

// Reset clears both cursors
func (f *FrameBuffer) Reset() {
	f.writePos = 0
	f.readPos = 0
}

// FifoBuffer is a circular byte queue between a reader goroutine and the
// receiver's polling loop. Callers provide their own locking.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer, returning how many bytes fit
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		next := (f.write + 1) % f.size
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		written++
	}
	return written
}

// PopByte removes and returns the oldest byte
func (f *FifoBuffer) PopByte() (byte, bool) {
	if f.read == f.write {
		return 0, false
	}
	b := f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
