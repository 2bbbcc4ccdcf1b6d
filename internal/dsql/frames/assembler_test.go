package frames

import (
	"errors"
	"testing"

	"github.com/banshee-data/framegrabber/internal/dsql/dsqltest"
	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

func feedAll(t *testing.T, a *Assembler, buf []byte) []*Frame {
	t.Helper()
	r, err := hword.NewReader(buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	var out []*Frame
	for {
		w, offset, ok := r.Next()
		if !ok {
			return out
		}
		frame, err := a.Feed(w, offset)
		if err != nil {
			t.Fatalf("Feed failed at offset %d: %v", offset, err)
		}
		if frame != nil {
			out = append(out, frame)
		}
	}
}

func TestAssemblerBasicFrame(t *testing.T) {
	buf := dsqltest.SimpleFrame([5]uint16{}, 100)

	a := NewAssembler()
	done := feedAll(t, a, buf)
	if len(done) != 0 {
		t.Fatalf("frame finalized before end of stream")
	}

	frame, err := a.Finish(len(buf))
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if frame.NumPixels() != 100 {
		t.Errorf("NumPixels() = %d, want 100", frame.NumPixels())
	}
	if frame.NumHeaderRecords() != 1 {
		t.Errorf("NumHeaderRecords() = %d, want 1", frame.NumHeaderRecords())
	}
	if frame.Type() != FrameTypePointCloud {
		t.Errorf("Type() = %v, want point_cloud", frame.Type())
	}
}

func TestAssemblerUnexpectedFirstRecord(t *testing.T) {
	tests := []struct {
		name string
		code hword.ControlCode
	}{
		{"subsequent pixel first", hword.SubsequentPixel},
		{"first pixel first", hword.FirstPixel},
		{"subsequent header first", hword.SubsequentHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler()
			_, err := a.Feed(hword.New(tt.code, false, 0, 0), 0)
			var unexpected *UnexpectedRecordError
			if !errors.As(err, &unexpected) {
				t.Fatalf("Feed error = %v, want UnexpectedRecordError", err)
			}
			if unexpected.Code != tt.code || unexpected.Offset != 0 {
				t.Errorf("error = %+v, want code %v at offset 0", unexpected, tt.code)
			}
			if a.State() != StateMalformed {
				t.Errorf("state = %v, want malformed", a.State())
			}
		})
	}
}

func TestAssemblerUnknownControlCode(t *testing.T) {
	for _, code := range []hword.ControlCode{hword.Reserved0, hword.Reserved1, hword.Reserved6} {
		a := NewAssembler()

		// A reserved record mid-stream carries its byte offset.
		if _, err := a.Feed(dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{}), 0); err != nil {
			t.Fatalf("header Feed failed: %v", err)
		}
		_, err := a.Feed(hword.New(code, false, 0, 0), 12)
		var unknown *UnknownControlCodeError
		if !errors.As(err, &unknown) {
			t.Fatalf("code %v: error = %v, want UnknownControlCodeError", code, err)
		}
		if unknown.Offset != 12 {
			t.Errorf("code %v: offset = %d, want 12", code, unknown.Offset)
		}
	}
}

func TestAssemblerMalformedIsSticky(t *testing.T) {
	a := NewAssembler()
	_, first := a.Feed(hword.New(hword.SubsequentPixel, false, 0, 0), 0)
	if first == nil {
		t.Fatal("expected error")
	}
	_, second := a.Feed(dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{}), 12)
	if second == nil {
		t.Fatal("malformed assembler accepted another record")
	}
	if !errors.Is(second, first) && second.Error() != first.Error() {
		t.Errorf("sticky error changed: %v then %v", first, second)
	}
}

func TestAssemblerEmptyFrame(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"no records", nil},
		{"header only", dsqltest.Bytes(dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{}))},
		{"header run only", dsqltest.Bytes(
			dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{}),
			dsqltest.HeaderHWord(hword.SubsequentHeader, [5]uint16{}),
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler()
			feedAll(t, a, tt.buf)
			_, err := a.Finish(len(tt.buf))
			var empty *EmptyFrameError
			if !errors.As(err, &empty) {
				t.Fatalf("Finish error = %v, want EmptyFrameError", err)
			}
			if empty.Offset != len(tt.buf) {
				t.Errorf("offset = %d, want %d", empty.Offset, len(tt.buf))
			}
		})
	}
}

func TestAssemblerHeaderDelimitedBoundary(t *testing.T) {
	// Two concatenated frames: the second FirstHeader finalizes the first
	// frame mid-stream.
	buf := append(dsqltest.SimpleFrame([5]uint16{}, 3), dsqltest.SimpleFrame([5]uint16{}, 2)...)

	a := NewAssembler()
	done := feedAll(t, a, buf)
	if len(done) != 1 {
		t.Fatalf("frames finalized mid-stream = %d, want 1", len(done))
	}
	if done[0].NumPixels() != 3 {
		t.Errorf("first frame NumPixels() = %d, want 3", done[0].NumPixels())
	}

	last, err := a.Finish(len(buf))
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if last.NumPixels() != 2 {
		t.Errorf("second frame NumPixels() = %d, want 2", last.NumPixels())
	}
}

func TestAssemblerSkipsIdleFiller(t *testing.T) {
	words := []hword.HWord{
		dsqltest.IdleHWord(),
		dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{}),
		dsqltest.IdleHWord(),
		dsqltest.PixelHWord(hword.FirstPixel, 0, 0, 0, 0, false, false),
		dsqltest.PixelHWord(hword.SubsequentPixel, 0, 0, 0, 0, false, false),
		dsqltest.IdleHWord(),
	}
	buf := dsqltest.Bytes(words...)

	a := NewAssembler()
	feedAll(t, a, buf)
	frame, err := a.Finish(len(buf))
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if frame.NumPixels() != 2 {
		t.Errorf("NumPixels() = %d, want 2", frame.NumPixels())
	}
}

func TestAssemblerHeaderRunRegisters(t *testing.T) {
	words := []hword.HWord{
		dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{1, 2, 3, 4, 5}),
		dsqltest.HeaderHWord(hword.SubsequentHeader, [5]uint16{6, 7, 8, 9, 10}),
		dsqltest.PixelHWord(hword.FirstPixel, 0, 0, 0, 0, false, false),
	}
	buf := dsqltest.Bytes(words...)

	a := NewAssembler()
	feedAll(t, a, buf)
	frame, err := a.Finish(len(buf))
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	want := []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := frame.Registers()
	if len(got) != len(want) {
		t.Fatalf("Registers() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("register %d = %d, want %d", i, got[i], want[i])
		}
	}

	// Timestamp base comes from registers 2 (low half) and 3 (high half).
	if got := frame.TimestampBase(); got != uint32(3)|uint32(4)<<16 {
		t.Errorf("TimestampBase() = %d, want %d", got, uint32(3)|uint32(4)<<16)
	}
}

func TestAssemblerHeaderInsidePixelRun(t *testing.T) {
	// A SubsequentHeader cannot interleave into the pixel run.
	words := []hword.HWord{
		dsqltest.HeaderHWord(hword.FirstHeader, [5]uint16{}),
		dsqltest.PixelHWord(hword.FirstPixel, 0, 0, 0, 0, false, false),
		dsqltest.HeaderHWord(hword.SubsequentHeader, [5]uint16{}),
	}

	a := NewAssembler()
	var lastErr error
	for i, w := range words {
		if _, err := a.Feed(w, i*hword.HWORD_SIZE_BYTES); err != nil {
			lastErr = err
		}
	}
	var unexpected *UnexpectedRecordError
	if !errors.As(lastErr, &unexpected) {
		t.Fatalf("error = %v, want UnexpectedRecordError", lastErr)
	}
	if unexpected.State != StateAccumulatingPixels {
		t.Errorf("state in error = %v, want accumulating_pixels", unexpected.State)
	}
}

func TestDetectFrameType(t *testing.T) {
	tests := []struct {
		headers int
		pixels  int
		want    FrameType
	}{
		{110, 1, FrameTypeOnePointScan},
		{110, 5, FrameTypeFivePointScan},
		{110, 4096, FrameTypePointCloud},
		{1, 1, FrameTypePointCloud},
		{1, 100, FrameTypePointCloud},
	}

	for _, tt := range tests {
		if got := detectFrameType(tt.headers, tt.pixels); got != tt.want {
			t.Errorf("detectFrameType(%d, %d) = %v, want %v", tt.headers, tt.pixels, got, tt.want)
		}
	}
}
