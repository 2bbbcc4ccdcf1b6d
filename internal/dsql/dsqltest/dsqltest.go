// Package dsqltest provides shared fixtures for building synthetic HWORD
// streams in tests.
//
// This package centralises payload packing so the bit layout lives in one
// place across the frames, extract, capture, and store test suites.
package dsqltest

import (
	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

// HeaderHWord builds a header record carrying five 16-bit registers in
// payload bits 79:0.
func HeaderHWord(code hword.ControlCode, regs [5]uint16) hword.HWord {
	lo := uint64(regs[0]) | uint64(regs[1])<<16 | uint64(regs[2])<<32 | uint64(regs[3])<<48
	hi := uint32(regs[4])
	return hword.New(code, false, hi, lo)
}

// PixelHWord builds a pixel record from decoded field values. Coordinates
// are raw fixed-point counts (1024 counts per unit); they are masked to
// their field widths, so out-of-range values wrap like real sensor data.
func PixelHWord(code hword.ControlCode, x, y, z int32, intensity uint16, lowGain, overRange bool) hword.HWord {
	zm := uint64(uint32(z)) & 0x3FFFFF
	lo := uint64(uint32(x))&0x7FFFF |
		(uint64(uint32(y))&0x7FFFF)<<24 |
		(zm&0xFFFF)<<48
	hi := uint32(zm >> 16)
	hi |= uint32(intensity&0xFFF) << 8
	if overRange {
		hi |= 1 << 26
	}
	if lowGain {
		hi |= 1 << 27
	}
	return hword.New(code, false, hi, lo)
}

// IdleHWord builds an inter-frame filler record.
func IdleHWord() hword.HWord {
	return hword.New(hword.Idle, false, 0, 0)
}

// Bytes concatenates records into a raw capture buffer.
func Bytes(words ...hword.HWord) []byte {
	buf := make([]byte, 0, len(words)*hword.HWORD_SIZE_BYTES)
	for _, w := range words {
		b := w.Bytes()
		buf = append(buf, b[:]...)
	}
	return buf
}

// SimpleFrame builds a minimal well-formed frame: one header record
// followed by numPixels pixel records whose x coordinate encodes the pixel
// index (in whole units) and whose intensity is the index as well.
func SimpleFrame(regs [5]uint16, numPixels int) []byte {
	words := make([]hword.HWord, 0, numPixels+1)
	words = append(words, HeaderHWord(hword.FirstHeader, regs))
	for i := 0; i < numPixels; i++ {
		code := hword.SubsequentPixel
		if i == 0 {
			code = hword.FirstPixel
		}
		words = append(words, PixelHWord(code, int32(i)*1024, 0, 0, uint16(i%4096), false, false))
	}
	return Bytes(words...)
}
