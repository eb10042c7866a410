package protocol

import "errors"

var (
	ErrVarintRange   = errors.New("value out of varint range")
	ErrVarintTooLong = errors.New("varint longer than two bytes")
	ErrShortBuffer   = errors.New("buffer too small for varint")
)

const continuationBit = 0x80

// EncodeVarint writes v in the shortest form: one byte for values up to 127,
// otherwise the low 7 bits with the continuation bit set followed by the high
// 7 bits.
func EncodeVarint(output OutputBuffer, v uint16) error {
	var b [VarintMaxBytes]byte
	enc, err := AppendVarint(b[:0], v)
	if err != nil {
		return err
	}
	output.Output(enc)
	return nil
}

// EncodeFixedVarint always writes the two-byte form, even for small values.
// Pulse durations are sent this way so every pulse occupies four bytes.
func EncodeFixedVarint(output OutputBuffer, v uint16) error {
	if v > VarintMax {
		return ErrVarintRange
	}
	output.Output([]byte{byte(v&0x7F) | continuationBit, byte(v >> 7)})
	return nil
}

// AppendVarint appends the shortest encoding of v to dst
func AppendVarint(dst []byte, v uint16) ([]byte, error) {
	if v > VarintMax {
		return dst, ErrVarintRange
	}
	if v <= 0x7F {
		return append(dst, byte(v)), nil
	}
	return append(dst, byte(v&0x7F)|continuationBit, byte(v>>7)), nil
}

// DecodeVarintAt decodes one varint from the start of data without
// modifying it. Returns the value and the number of bytes consumed.
func DecodeVarintAt(data []byte) (uint16, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrShortBuffer
	}
	c := data[0]
	if c&continuationBit == 0 {
		return uint16(c), 1, nil
	}
	if len(data) < 2 {
		return 0, 0, ErrShortBuffer
	}
	hi := data[1]
	if hi&continuationBit != 0 {
		return 0, 0, ErrVarintTooLong
	}
	return uint16(c&0x7F) | uint16(hi)<<7, 2, nil
}

// DecodeVarint decodes a varint from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeVarint(data *[]byte) (uint16, error) {
	v, n, err := DecodeVarintAt(*data)
	if err != nil {
		return 0, err
	}
	*data = (*data)[n:]
	return v, nil
}
