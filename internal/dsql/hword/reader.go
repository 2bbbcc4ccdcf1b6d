package hword

import (
	"errors"
	"fmt"
)

// ErrTruncatedRecord is returned when a capture buffer's length is not a
// whole number of 12-byte HWORDs.
var ErrTruncatedRecord = errors.New("buffer length is not a multiple of the 12-byte HWORD size")

// Reader slices a raw capture buffer into a finite sequence of HWORDs.
// It borrows the buffer for its lifetime and never copies or mutates it;
// each record is derived solely from its own 12-byte slice, so the
// sequence is restartable and random access is cheap.
type Reader struct {
	buf []byte
	pos int // next record index for the Next cursor
}

// NewReader validates the buffer length and returns a reader over it.
func NewReader(buf []byte) (*Reader, error) {
	if len(buf)%HWORD_SIZE_BYTES != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedRecord, len(buf))
	}
	return &Reader{buf: buf}, nil
}

// Len returns the number of records in the buffer.
func (r *Reader) Len() int {
	return len(r.buf) / HWORD_SIZE_BYTES
}

// At decodes record i. i must be in [0, Len()).
func (r *Reader) At(i int) HWord {
	w, err := Parse(r.Raw(i))
	if err != nil {
		// Unreachable: Raw always yields a 12-byte slice for a valid index.
		panic(err)
	}
	return w
}

// Raw returns the non-owning 12-byte slice backing record i.
func (r *Reader) Raw(i int) []byte {
	off := i * HWORD_SIZE_BYTES
	return r.buf[off : off+HWORD_SIZE_BYTES : off+HWORD_SIZE_BYTES]
}

// Offset returns the byte offset of record i within the buffer, for
// malformed-input diagnostics.
func (r *Reader) Offset(i int) int {
	return i * HWORD_SIZE_BYTES
}

// Next decodes the record under the cursor and advances. The second return
// is the record's byte offset. ok is false once the sequence is exhausted.
func (r *Reader) Next() (w HWord, offset int, ok bool) {
	if r.pos >= r.Len() {
		return HWord{}, 0, false
	}
	i := r.pos
	r.pos++
	return r.At(i), r.Offset(i), true
}

// Reset rewinds the cursor so the sequence can be traversed again.
func (r *Reader) Reset() {
	r.pos = 0
}
