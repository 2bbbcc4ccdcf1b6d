package frames

import (
	"fmt"

	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

// UnexpectedRecordError reports a record whose control code is valid but
// illegal for the assembler's current state, e.g. a pixel record before
// any header.
type UnexpectedRecordError struct {
	Offset int // byte offset of the offending record
	Code   hword.ControlCode
	State  State
}

func (e *UnexpectedRecordError) Error() string {
	return fmt.Sprintf("unexpected %s record at byte offset %d in state %s", e.Code, e.Offset, e.State)
}

// UnknownControlCodeError reports a record carrying one of the reserved
// control codes (0, 1, 6), which are not valid anywhere inside a frame.
type UnknownControlCodeError struct {
	Offset int // byte offset of the offending record
	Code   hword.ControlCode
}

func (e *UnknownControlCodeError) Error() string {
	return fmt.Sprintf("unknown control code %d (%s) at byte offset %d", uint8(e.Code), e.Code, e.Offset)
}

// EmptyFrameError reports a stream that ended before a frame accumulated
// any pixel records.
type EmptyFrameError struct {
	Offset int // byte offset where the stream ended
}

func (e *EmptyFrameError) Error() string {
	return fmt.Sprintf("stream ended at byte offset %d with no pixel records in the frame", e.Offset)
}
