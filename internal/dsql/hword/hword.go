package hword

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// DSQL HWORD structure constants
// These define the fixed format of the 96-bit records produced by the sensor
const (
	HWORD_SIZE_BYTES = 12 // One HWORD is exactly 12 bytes on disk and on the wire
	HWORD_SIZE_BITS  = 96 // 96-bit word, big-endian byte order
	DATA_FIELD_BITS  = 92 // Payload bits 91:0 (bits 95:93 control, bit 92 parity)
)

// ControlCode is the 3-bit tag in the top bits of an HWORD's first byte
// identifying the record's role within a frame.
type ControlCode uint8

const (
	Reserved0        ControlCode = 0 // reserved by the protocol, never valid in a frame
	Reserved1        ControlCode = 1 // reserved by the protocol, never valid in a frame
	FirstHeader      ControlCode = 2 // opens a frame's header run
	SubsequentHeader ControlCode = 3 // continues a header run
	FirstPixel       ControlCode = 4 // first pixel record, ends the header run
	SubsequentPixel  ControlCode = 5 // continues the pixel run
	Reserved6        ControlCode = 6 // reserved by the protocol, never valid in a frame
	Idle             ControlCode = 7 // inter-frame filler emitted while the sensor is quiet
)

// IsHeader reports whether the code marks a header record.
func (c ControlCode) IsHeader() bool {
	return c == FirstHeader || c == SubsequentHeader
}

// IsPixel reports whether the code marks a pixel record.
func (c ControlCode) IsPixel() bool {
	return c == FirstPixel || c == SubsequentPixel
}

// IsFrameStart reports whether the code delimits the start of a new frame.
func (c ControlCode) IsFrameStart() bool {
	return c == FirstHeader
}

// IsIdle reports whether the code marks inter-frame filler.
func (c ControlCode) IsIdle() bool {
	return c == Idle
}

// IsReserved reports whether the code is reserved by the protocol.
// Reserved codes are not valid anywhere inside a frame.
func (c ControlCode) IsReserved() bool {
	return c == Reserved0 || c == Reserved1 || c == Reserved6
}

func (c ControlCode) String() string {
	switch c {
	case Reserved0:
		return "reserved0"
	case Reserved1:
		return "reserved1"
	case FirstHeader:
		return "first_header"
	case SubsequentHeader:
		return "subsequent_header"
	case FirstPixel:
		return "first_pixel"
	case SubsequentPixel:
		return "subsequent_pixel"
	case Reserved6:
		return "reserved6"
	case Idle:
		return "idle"
	}
	return fmt.Sprintf("control_code(%d)", uint8(c))
}

// HWord is a decoded view of a single 12-byte record. The 92-bit payload is
// held as two machine words: hi carries payload bits 91:64, lo carries bits
// 63:0. An HWord is a value type and is immutable once parsed.
type HWord struct {
	Code   ControlCode
	Parity bool // raw parity bit (bit 92); see ParityOK for verification

	hi uint32 // payload bits 91:64
	lo uint64 // payload bits 63:0
}

// payloadHiMask keeps the 28 payload bits that live in the top word.
const payloadHiMask = (1 << 28) - 1

// Parse decodes a single HWORD from exactly 12 bytes.
func Parse(b []byte) (HWord, error) {
	if len(b) != HWORD_SIZE_BYTES {
		return HWord{}, fmt.Errorf("invalid HWORD length: expected %d bytes, got %d", HWORD_SIZE_BYTES, len(b))
	}

	hi := binary.BigEndian.Uint32(b[0:4])
	lo := binary.BigEndian.Uint64(b[4:12])

	return HWord{
		Code:   ControlCode(hi >> 29),
		Parity: hi>>28&1 == 1,
		hi:     hi & payloadHiMask,
		lo:     lo,
	}, nil
}

// New constructs an HWord from its parts. Intended for encoders and test
// fixtures; decoding real captures goes through Parse.
func New(code ControlCode, parity bool, payloadHi uint32, payloadLo uint64) HWord {
	return HWord{
		Code:   code & 0x7,
		Parity: parity,
		hi:     payloadHi & payloadHiMask,
		lo:     payloadLo,
	}
}

// Bytes re-encodes the HWord as its 12-byte wire form.
func (h HWord) Bytes() [HWORD_SIZE_BYTES]byte {
	hi := uint32(h.Code)<<29 | h.hi
	if h.Parity {
		hi |= 1 << 28
	}

	var b [HWORD_SIZE_BYTES]byte
	binary.BigEndian.PutUint32(b[0:4], hi)
	binary.BigEndian.PutUint64(b[4:12], h.lo)
	return b
}

// PayloadBits extracts width bits of the payload starting at bit position
// low (bit 0 is the least significant payload bit). Extractions may span
// the internal 64-bit boundary. width must be at most 64.
func (h HWord) PayloadBits(low, width uint) uint64 {
	var v uint64
	if low >= 64 {
		// Field lives entirely in the high word.
		v = uint64(h.hi) >> (low - 64)
	} else {
		v = h.lo >> low
		if low > 0 {
			v |= uint64(h.hi) << (64 - low)
		}
	}
	if width < 64 {
		v &= (1 << width) - 1
	}
	return v
}

// PayloadBit reports whether payload bit i is set.
func (h HWord) PayloadBit(i uint) bool {
	if i >= 64 {
		return h.hi>>(i-64)&1 == 1
	}
	return h.lo>>i&1 == 1
}

// ParityOK verifies odd parity over the full 96-bit word, including control
// bits and the parity bit itself.
func (h HWord) ParityOK() bool {
	hi := uint32(h.Code)<<29 | h.hi
	if h.Parity {
		hi |= 1 << 28
	}
	ones := bits.OnesCount32(hi) + bits.OnesCount64(h.lo)
	return ones%2 == 1
}

// SignExtend interprets the low width bits of v as a two's-complement
// signed value. Used by payload field decoders for the fixed-point
// coordinate fields.
func SignExtend(v uint64, width uint) int64 {
	if v&(1<<(width-1)) != 0 {
		v |= ^uint64(0) << width
	}
	return int64(v)
}
