// Package protocol implements the IR proxy link protocol: the varint codec,
// frame layout and the byte-level pattern receiver.
package protocol

// Version represents the IR proxy firmware version
const Version = "0.3.0"

// Frame kinds
const (
	KindIRPattern    Kind = 0x01 // IR pattern, protocol version 1
	KindResetRequest Kind = 0x7E // wireless module asks to be reset
	KindKeepalive    Kind = 0x7F // wireless module is alive
)

// Protocol limits
const (
	MaxPulses      = 17    // Maximum (high, low) pairs in one pattern
	VarintMax      = 16383 // Largest value a two-byte varint can carry
	VarintMaxBytes = 2

	// Worst case IR frame: kind, count, carrier period and high, 4 bytes per pulse
	MaxFrameSize = 1 + 1 + VarintMaxBytes*2 + MaxPulses*VarintMaxBytes*2

	// Historical ir_code_t layout, kept for sizing small links
	CompactFrameSize = 46

	MessageMax = 128 // Scratch output size, enough for one encoded frame
)

// CarrierClockHz is the oscillator that carrier period and high time are
// counted in (31.25 ns per cycle). Pattern files and their senders use the
// same clock.
const CarrierClockHz = 32000000

// CyclesToNanos converts carrier clock cycles to nanoseconds, truncated
func CyclesToNanos(cycles uint16) uint64 {
	return uint64(cycles) * 1000000000 / CarrierClockHz
}

// Kind identifies a frame by its first byte
type Kind byte

// String returns a short name for logging
func (k Kind) String() string {
	switch k {
	case KindIRPattern:
		return "ir_pattern"
	case KindResetRequest:
		return "reset_request"
	case KindKeepalive:
		return "keepalive"
	default:
		return "unknown"
	}
}

// KeepaliveCode and ResetRequestCode are the complete two-byte control frames
var (
	KeepaliveCode    = []byte{byte(KindKeepalive), 0x00}
	ResetRequestCode = []byte{byte(KindResetRequest), 0x00}
)
