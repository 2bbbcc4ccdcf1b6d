package frames

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

// Frame structure constants
const (
	REGISTERS_PER_HEADER_HWORD = 5   // 16-bit registers packed into payload bits 79:0 of each header HWORD
	HEADER_HWORDS_IMAGING      = 110 // header run length observed in imaging-mode captures

	// Header register slots holding the frame timestamp base (32 bits,
	// low half first). Frames with a single-HWORD header carry both.
	REG_TIMESTAMP_LO = 2
	REG_TIMESTAMP_HI = 3
)

// FrameType is the small discrete tag describing the capture mode a frame
// was produced in, derived from the shape of its header and pixel runs.
type FrameType uint8

const (
	FrameTypePointCloud    FrameType = iota // imaging capture, variable pixel count
	FrameTypeOnePointScan                   // 110 header HWORDs + 1 pixel
	FrameTypeFivePointScan                  // 110 header HWORDs + 5 pixels
)

func (t FrameType) String() string {
	switch t {
	case FrameTypePointCloud:
		return "point_cloud"
	case FrameTypeOnePointScan:
		return "one_point_scan"
	case FrameTypeFivePointScan:
		return "five_point_scan"
	}
	return fmt.Sprintf("frame_type(%d)", uint8(t))
}

// detectFrameType classifies a frame from its header and pixel counts.
func detectFrameType(headerCount, pixelCount int) FrameType {
	if headerCount == HEADER_HWORDS_IMAGING {
		switch pixelCount {
		case 1:
			return FrameTypeOnePointScan
		case 5:
			return FrameTypeFivePointScan
		}
	}
	return FrameTypePointCloud
}

// Frame is one assembled logical unit: a header run followed by an ordered
// pixel run. A Frame is read-only after assembly and safe to share across
// goroutines; extraction never mutates it.
type Frame struct {
	number       uint32
	ftype        FrameType
	header       []hword.HWord
	pixels       []hword.HWord
	registers    []uint16
	parityErrors int
}

// Number returns the frame number.
func (f *Frame) Number() uint32 {
	return f.number
}

// Type returns the frame's capture-mode tag.
func (f *Frame) Type() FrameType {
	return f.ftype
}

// NumPixels returns the count of pixel records in the frame.
func (f *Frame) NumPixels() int {
	return len(f.pixels)
}

// NumHeaderRecords returns the length of the frame's header run.
func (f *Frame) NumHeaderRecords() int {
	return len(f.header)
}

// Pixel returns pixel record i in stream order.
func (f *Frame) Pixel(i int) hword.HWord {
	return f.pixels[i]
}

// Registers returns the frame's register file, five 16-bit registers per
// header HWORD, in header order. Callers must not modify the slice.
func (f *Frame) Registers() []uint16 {
	return f.registers
}

// ParityErrors returns the count of records that failed the odd-parity
// check during assembly. Parity failures are tolerated, not fatal.
func (f *Frame) ParityErrors() int {
	return f.parityErrors
}

// TimestampBase returns the frame's 32-bit timestamp base from the header
// registers, or zero when the header is too short to carry one.
func (f *Frame) TimestampBase() uint32 {
	if len(f.registers) <= REG_TIMESTAMP_HI {
		return 0
	}
	return uint32(f.registers[REG_TIMESTAMP_LO]) | uint32(f.registers[REG_TIMESTAMP_HI])<<16
}

// FromFile loads and assembles the frame stored in a .dsql capture file.
// The frame number is recovered from the file name.
func FromFile(path string) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read frame file: %w", err)
	}
	frame, err := FromBytes(FrameNumberFromPath(path), data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", filepath.Base(path), err)
	}
	return frame, nil
}

// FromBytes assembles a single frame from a raw capture buffer, assigning
// it the given frame number. When the buffer holds several concatenated
// frames only the first is assembled; use AssembleAll for the full set.
func FromBytes(frameID uint32, data []byte) (*Frame, error) {
	r, err := hword.NewReader(data)
	if err != nil {
		return nil, err
	}

	a := NewAssembler()
	for {
		w, offset, ok := r.Next()
		if !ok {
			break
		}
		frame, err := a.Feed(w, offset)
		if err != nil {
			return nil, err
		}
		if frame != nil {
			frame.number = frameID
			return frame, nil
		}
	}

	frame, err := a.Finish(len(data))
	if err != nil {
		return nil, err
	}
	frame.number = frameID
	return frame, nil
}

// AssembleAll assembles every frame in a concatenated capture buffer, in
// stream order. Frames are numbered sequentially from baseID.
func AssembleAll(baseID uint32, data []byte) ([]*Frame, error) {
	r, err := hword.NewReader(data)
	if err != nil {
		return nil, err
	}

	a := NewAssembler()
	var out []*Frame
	for {
		w, offset, ok := r.Next()
		if !ok {
			break
		}
		frame, err := a.Feed(w, offset)
		if err != nil {
			return nil, err
		}
		if frame != nil {
			frame.number = baseID + uint32(len(out))
			out = append(out, frame)
		}
	}

	frame, err := a.Finish(len(data))
	if err != nil {
		return nil, err
	}
	frame.number = baseID + uint32(len(out))
	return append(out, frame), nil
}

var digitRun = regexp.MustCompile(`\d+`)

// FrameNumberFromPath recovers a frame number from a capture file name.
// Capture tools name files with the 8-hex-digit frame number (for example
// 0000002a.dsql); decimal names and names with an embedded digit run are
// accepted as fallbacks, and anything else hashes to a stable number.
func FrameNumberFromPath(path string) uint32 {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if len(stem) == 8 {
		if n, err := strconv.ParseUint(stem, 16, 32); err == nil {
			return uint32(n)
		}
	}
	if n, err := strconv.ParseUint(stem, 10, 32); err == nil {
		return uint32(n)
	}
	if run := digitRun.FindString(stem); run != "" {
		if n, err := strconv.ParseUint(run, 10, 32); err == nil {
			return uint32(n)
		}
	}

	h := fnv.New32a()
	h.Write([]byte(stem))
	return h.Sum32()
}
