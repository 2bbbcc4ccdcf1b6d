package frames

import (
	"fmt"

	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

// State identifies the assembler's position in the frame grammar.
type State int

const (
	StateAwaitHeader        State = iota // waiting for the FirstHeader that opens a frame
	StateAwaitFirstPixel                 // header run open, waiting for the first pixel
	StateAccumulatingPixels              // pixel run open
	StateMalformed                       // terminal failure; the stored error is sticky
)

func (s State) String() string {
	switch s {
	case StateAwaitHeader:
		return "await_header"
	case StateAwaitFirstPixel:
		return "await_first_pixel"
	case StateAccumulatingPixels:
		return "accumulating_pixels"
	case StateMalformed:
		return "malformed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Assembler reconstructs frames from an HWORD sequence, one record at a
// time. Frame boundaries are header-delimited: a FirstHeader arriving
// during a pixel run finalizes the current frame and opens the next, so a
// single Assembler can walk a multi-frame capture in one pass.
//
// Records are never reordered or discarded (idle filler excepted); pixel
// order within a frame is preserved as encountered.
type Assembler struct {
	state        State
	header       []hword.HWord
	pixels       []hword.HWord
	parityErrors int
	err          error
}

// NewAssembler returns an assembler in the initial await-header state.
func NewAssembler() *Assembler {
	return &Assembler{state: StateAwaitHeader}
}

// State returns the assembler's current state.
func (a *Assembler) State() State {
	return a.state
}

// Err returns the sticky malformed-input error, if any.
func (a *Assembler) Err() error {
	return a.err
}

// Feed consumes one record at the given byte offset. When the record is a
// FirstHeader delimiting the next frame, the finished frame is returned and
// the assembler reseeds itself with that header. Idle records are
// inter-frame filler and are skipped in every state. A malformed stream
// leaves the assembler in StateMalformed; the error repeats on further use.
func (a *Assembler) Feed(w hword.HWord, offset int) (*Frame, error) {
	if a.err != nil {
		return nil, a.err
	}
	if w.Code.IsIdle() {
		return nil, nil
	}
	if w.Code.IsReserved() {
		return nil, a.fail(&UnknownControlCodeError{Offset: offset, Code: w.Code})
	}
	if !w.ParityOK() {
		a.parityErrors++
	}

	switch a.state {
	case StateAwaitHeader:
		if w.Code == hword.FirstHeader {
			a.header = append(a.header, w)
			a.state = StateAwaitFirstPixel
			return nil, nil
		}
		return nil, a.fail(&UnexpectedRecordError{Offset: offset, Code: w.Code, State: a.state})

	case StateAwaitFirstPixel:
		switch w.Code {
		case hword.SubsequentHeader:
			a.header = append(a.header, w)
			return nil, nil
		case hword.FirstPixel:
			a.pixels = append(a.pixels, w)
			a.state = StateAccumulatingPixels
			return nil, nil
		}
		return nil, a.fail(&UnexpectedRecordError{Offset: offset, Code: w.Code, State: a.state})

	case StateAccumulatingPixels:
		switch w.Code {
		case hword.SubsequentPixel:
			a.pixels = append(a.pixels, w)
			return nil, nil
		case hword.FirstHeader:
			// Header-delimited boundary: close out the current frame and
			// seed the next one with this record.
			done := a.finalize()
			a.header = append(a.header, w)
			a.state = StateAwaitFirstPixel
			return done, nil
		}
		return nil, a.fail(&UnexpectedRecordError{Offset: offset, Code: w.Code, State: a.state})
	}

	return nil, a.err
}

// Finish signals end-of-stream at the given byte offset. A frame with at
// least one accumulated pixel finalizes cleanly; anything short of that is
// an empty frame.
func (a *Assembler) Finish(endOffset int) (*Frame, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.state != StateAccumulatingPixels {
		return nil, a.fail(&EmptyFrameError{Offset: endOffset})
	}
	return a.finalize(), nil
}

func (a *Assembler) fail(err error) error {
	a.state = StateMalformed
	a.err = err
	return err
}

// finalize freezes the accumulated records into a Frame and resets the
// assembler for the next frame.
func (a *Assembler) finalize() *Frame {
	f := &Frame{
		header:       a.header,
		pixels:       a.pixels,
		parityErrors: a.parityErrors,
	}
	f.registers = extractRegisters(f.header)
	f.ftype = detectFrameType(len(f.header), len(f.pixels))

	a.header = nil
	a.pixels = nil
	a.parityErrors = 0
	a.state = StateAwaitHeader
	return f
}

// extractRegisters decodes the register file carried by a header run. Each
// header HWORD packs five 16-bit registers into payload bits 79:0.
func extractRegisters(header []hword.HWord) []uint16 {
	regs := make([]uint16, 0, len(header)*REGISTERS_PER_HEADER_HWORD)
	for _, w := range header {
		for i := 0; i < REGISTERS_PER_HEADER_HWORD; i++ {
			regs = append(regs, uint16(w.PayloadBits(uint(i)*16, 16)))
		}
	}
	return regs
}
