// Package capture provides count-based frame synchronization for live
// HWORD byte streams. Unlike the frames assembler, which expects a clean
// record-aligned buffer, the sync engine accepts arbitrarily sized chunks
// (UDP payloads, serial reads), locks onto frame boundaries, and emits one
// complete raw frame buffer at a time for downstream assembly.
package capture

import (
	"fmt"

	"github.com/banshee-data/framegrabber/internal/dsql/hword"
	"github.com/banshee-data/framegrabber/internal/monitoring"
)

// SyncState identifies the engine's position in the stream.
type SyncState int

const (
	StateWaitingForSync   SyncState = iota // scanning for a frame start
	StateCollectingHeader                  // inside a header run
	StateCollectingPixels                  // inside a pixel run
)

func (s SyncState) String() string {
	switch s {
	case StateWaitingForSync:
		return "waiting_for_sync"
	case StateCollectingHeader:
		return "collecting_header"
	case StateCollectingPixels:
		return "collecting_pixels"
	}
	return fmt.Sprintf("sync_state(%d)", int(s))
}

// FrameMode classifies a completed frame by its record counts.
type FrameMode int

const (
	ModeUnknown FrameMode = iota
	ModeOnePointScan
	ModeFivePointScan
	ModeImaging
)

func (m FrameMode) String() string {
	switch m {
	case ModeOnePointScan:
		return "one_point_scan"
	case ModeFivePointScan:
		return "five_point_scan"
	case ModeImaging:
		return "imaging"
	}
	return "unknown"
}

// DetectMode classifies a frame from its header and pixel record counts.
// Scan modes carry the full 110-HWORD register header; imaging frames
// carry a variable pixel run.
func DetectMode(headerCount, pixelCount int) FrameMode {
	switch {
	case headerCount == headerHWordsImaging && pixelCount == 1:
		return ModeOnePointScan
	case headerCount == headerHWordsImaging && pixelCount == 5:
		return ModeFivePointScan
	case pixelCount > 5:
		return ModeImaging
	}
	return ModeUnknown
}

// headerHWordsImaging is the register-header run length of scan-mode
// frames, matching frames.HEADER_HWORDS_IMAGING.
const headerHWordsImaging = 110

// SyncStats counts the engine's progress and recovery events.
type SyncStats struct {
	FramesCompleted  uint64
	SyncErrors       uint64 // records that broke the frame grammar mid-frame
	RecordsDiscarded uint64 // records skipped while hunting for a frame start
}

// SyncEngine is a push-based scanner over a raw byte stream. It is not
// safe for concurrent use; run one engine per stream.
type SyncEngine struct {
	state       SyncState
	pending     []byte // partial record carried between Feed calls
	frame       []byte // accumulated records of the in-progress frame
	headerCount int
	pixelCount  int
	onFrame     func(frame []byte, mode FrameMode)
	stats       SyncStats
}

// NewSyncEngine returns an engine that invokes onFrame with each completed
// raw frame buffer and its detected mode. The buffer is owned by the
// callback.
func NewSyncEngine(onFrame func(frame []byte, mode FrameMode)) *SyncEngine {
	return &SyncEngine{onFrame: onFrame}
}

// State returns the engine's current sync state.
func (e *SyncEngine) State() SyncState {
	return e.state
}

// Stats returns a snapshot of the engine's counters.
func (e *SyncEngine) Stats() SyncStats {
	return e.stats
}

// Feed pushes a chunk of stream bytes through the engine. Chunks need not
// be record aligned; a partial record is carried to the next call.
func (e *SyncEngine) Feed(chunk []byte) {
	e.pending = append(e.pending, chunk...)
	for len(e.pending) >= hword.HWORD_SIZE_BYTES {
		record := e.pending[:hword.HWORD_SIZE_BYTES]
		e.consume(record)
		e.pending = e.pending[hword.HWORD_SIZE_BYTES:]
	}
	if len(e.pending) == 0 {
		e.pending = nil
	}
}

// Flush signals end-of-stream. A frame with at least one pixel record is
// emitted; anything less is dropped. The engine resets for reuse.
func (e *SyncEngine) Flush() {
	if e.state == StateCollectingPixels && e.pixelCount > 0 {
		e.emit()
	} else if e.state != StateWaitingForSync {
		e.stats.SyncErrors++
	}
	e.reset()
	e.pending = nil
}

func (e *SyncEngine) consume(record []byte) {
	code := hword.ControlCode(record[0] >> 5)

	switch e.state {
	case StateWaitingForSync:
		if code == hword.FirstHeader {
			e.begin(record)
			return
		}
		// Idle filler and mid-frame leftovers alike: keep hunting.
		e.stats.RecordsDiscarded++
		monitoring.Debugf("sync: discarded %s record while hunting for a frame start", code)

	case StateCollectingHeader:
		switch code {
		case hword.SubsequentHeader:
			e.append(record)
			e.headerCount++
		case hword.FirstPixel:
			e.append(record)
			e.pixelCount = 1
			e.state = StateCollectingPixels
		case hword.FirstHeader:
			// Header restart: the previous frame never produced pixels.
			e.stats.SyncErrors++
			monitoring.Logf("sync: header restart after %d header records, resyncing", e.headerCount)
			e.begin(record)
		default:
			e.desync(code)
		}

	case StateCollectingPixels:
		switch code {
		case hword.SubsequentPixel:
			e.append(record)
			e.pixelCount++
		case hword.FirstHeader:
			e.emit()
			e.begin(record)
		case hword.Idle:
			// Inter-frame gap: the frame is complete.
			e.emit()
			e.reset()
		default:
			e.desync(code)
		}
	}
}

func (e *SyncEngine) begin(record []byte) {
	e.frame = append(e.frame[:0:0], record...)
	e.headerCount = 1
	e.pixelCount = 0
	e.state = StateCollectingHeader
}

func (e *SyncEngine) append(record []byte) {
	e.frame = append(e.frame, record...)
}

func (e *SyncEngine) emit() {
	mode := DetectMode(e.headerCount, e.pixelCount)
	e.stats.FramesCompleted++
	if e.onFrame != nil {
		e.onFrame(e.frame, mode)
	}
	e.frame = nil
}

func (e *SyncEngine) desync(code hword.ControlCode) {
	e.stats.SyncErrors++
	monitoring.Logf("sync: dropped frame after unexpected %s record in state %s", code, e.state)
	e.reset()
}

func (e *SyncEngine) reset() {
	e.frame = nil
	e.headerCount = 0
	e.pixelCount = 0
	e.state = StateWaitingForSync
}
