package protocol

import "errors"

var (
	ErrRejected    = errors.New("frame rejected")
	ErrTimeout     = errors.New("inter-byte timeout")
	ErrUnknownKind = errors.New("unknown frame kind")
	ErrPayload     = errors.New("unexpected control payload")
	ErrPulseCount  = errors.New("pulse count out of range")
	ErrCarrier     = errors.New("invalid carrier timing")
	ErrTrailing    = errors.New("trailing bytes after frame")
)

// RejectError reports why a frame was dropped. It matches ErrRejected and
// unwraps to the specific reason.
type RejectError struct {
	Reason error
}

func (e *RejectError) Error() string {
	if e.Reason == nil {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Reason.Error()
}

func (e *RejectError) Unwrap() error {
	return e.Reason
}

func (e *RejectError) Is(target error) bool {
	return target == ErrRejected
}

// Frame is one accepted frame. Pattern is set only for KindIRPattern.
type Frame struct {
	Kind    Kind
	Pattern *IRPattern
}

// IRPattern is a received IR pattern. Pulse durations stay encoded in the
// FrameBuffer and are decoded one at a time by whoever plays the pattern.
type IRPattern struct {
	PulseCount    uint8
	CarrierPeriod uint16 // oscillator cycles per carrier period
	CarrierHigh   uint16 // oscillator cycles the carrier is high

	Timing      *FrameBuffer
	timingStart int
}

// Rewind moves the timing read cursor back to the first duration
func (p *IRPattern) Rewind() {
	if p.Timing != nil {
		p.Timing.SetReadPos(p.timingStart)
	}
}

// NextDuration decodes the next high or low duration
func (p *IRPattern) NextDuration() (uint16, error) {
	if p.Timing == nil {
		return 0, ErrEndOfBuffer
	}
	return p.Timing.ReadValue()
}

// byteSource yields the next frame byte or an error that ends the frame
type byteSource func() (byte, error)

// decodeFrame assembles one frame from next into fb and validates it.
// fb is reset first; on success the returned pattern's Timing aliases fb.
func decodeFrame(fb *FrameBuffer, next byteSource) (*Frame, error) {
	fb.Reset()

	first, err := next()
	if err != nil {
		return nil, err
	}
	if err := fb.Write(first); err != nil {
		return nil, err
	}

	kind := Kind(first)
	switch kind {
	case KindKeepalive, KindResetRequest:
		b, err := next()
		if err != nil {
			return nil, err
		}
		if err := fb.Write(b); err != nil {
			return nil, err
		}
		if b != 0 {
			return nil, ErrPayload
		}
		return &Frame{Kind: kind}, nil

	case KindIRPattern:
		count, err := readValue(fb, next, 1)
		if err != nil {
			return nil, err
		}
		if count == 0 || count > MaxPulses {
			return nil, ErrPulseCount
		}
		period, err := readValue(fb, next, VarintMaxBytes)
		if err != nil {
			return nil, err
		}
		high, err := readValue(fb, next, VarintMaxBytes)
		if err != nil {
			return nil, err
		}
		if period == 0 || high > period {
			return nil, ErrCarrier
		}

		start := fb.Len()
		for i := 0; i < int(count)*2; i++ {
			if _, err := readValue(fb, next, VarintMaxBytes); err != nil {
				return nil, err
			}
		}
		fb.SetReadPos(start)

		return &Frame{
			Kind: kind,
			Pattern: &IRPattern{
				PulseCount:    uint8(count),
				CarrierPeriod: period,
				CarrierHigh:   high,
				Timing:        fb,
				timingStart:   start,
			},
		}, nil

	default:
		return nil, ErrUnknownKind
	}
}

// readValue pulls one varint of at most maxBytes bytes from next, storing
// the raw bytes in fb
func readValue(fb *FrameBuffer, next byteSource, maxBytes int) (uint16, error) {
	start := fb.Len()
	for n := 1; ; n++ {
		b, err := next()
		if err != nil {
			return 0, err
		}
		if err := fb.Write(b); err != nil {
			return 0, err
		}
		if b&continuationBit == 0 {
			break
		}
		if n >= maxBytes {
			return 0, ErrVarintTooLong
		}
	}
	v, _, err := DecodeVarintAt(fb.Bytes()[start:])
	return v, err
}

// ParseFrame decodes one complete frame held in memory. The frame must use
// the whole of data. Host tools use it to validate payloads before sending.
func ParseFrame(data []byte, fb *FrameBuffer) (*Frame, error) {
	if fb == nil {
		fb = NewFrameBuffer(MaxFrameSize)
	}
	pos := 0
	next := func() (byte, error) {
		if pos >= len(data) {
			return 0, ErrShortBuffer
		}
		b := data[pos]
		pos++
		return b, nil
	}
	frame, err := decodeFrame(fb, next)
	if err != nil {
		return nil, &RejectError{Reason: err}
	}
	if pos != len(data) {
		return nil, &RejectError{Reason: ErrTrailing}
	}
	return frame, nil
}

// Pulse is one mark/space pair in oscillator cycles
type Pulse struct {
	High uint16
	Low  uint16
}

// Pattern describes an IR pattern on the sending side
type Pattern struct {
	CarrierPeriod uint16
	CarrierHigh   uint16
	Pulses        []Pulse
}

// Validate checks the pattern against the receiver's limits
func (p *Pattern) Validate() error {
	if len(p.Pulses) == 0 || len(p.Pulses) > MaxPulses {
		return ErrPulseCount
	}
	if p.CarrierPeriod == 0 || p.CarrierHigh > p.CarrierPeriod {
		return ErrCarrier
	}
	if p.CarrierPeriod > VarintMax {
		return ErrVarintRange
	}
	for _, pulse := range p.Pulses {
		if pulse.High > VarintMax || pulse.Low > VarintMax {
			return ErrVarintRange
		}
	}
	return nil
}

// Encode writes the pattern as a version 1 IR frame. Durations always use
// the two-byte form.
func (p *Pattern) Encode(output OutputBuffer) error {
	if err := p.Validate(); err != nil {
		return err
	}
	output.Output([]byte{byte(KindIRPattern)})
	if err := EncodeVarint(output, uint16(len(p.Pulses))); err != nil {
		return err
	}
	if err := EncodeVarint(output, p.CarrierPeriod); err != nil {
		return err
	}
	if err := EncodeVarint(output, p.CarrierHigh); err != nil {
		return err
	}
	for _, pulse := range p.Pulses {
		if err := EncodeFixedVarint(output, pulse.High); err != nil {
			return err
		}
		if err := EncodeFixedVarint(output, pulse.Low); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the encoded frame
func (p *Pattern) Bytes() ([]byte, error) {
	output := NewScratchOutput()
	if err := p.Encode(output); err != nil {
		return nil, err
	}
	return append([]byte(nil), output.Result()...), nil
}
