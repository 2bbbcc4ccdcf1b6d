// Package store persists a browsable index of decoded frames in SQLite.
//
// The raw .dsql files stay on disk as the source of truth; the store keeps
// per-frame metadata and summary statistics so tooling can list and filter
// captures without re-decoding them.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/framegrabber/internal/dsql/frames"
	"github.com/banshee-data/framegrabber/internal/dsql/framestats"
)

//go:embed schema.sql
var schemaSQL string

// FrameStore wraps the SQLite frame index database.
type FrameStore struct {
	*sql.DB
}

// Open opens (creating if necessary) the frame index at path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*FrameStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &FrameStore{db}, nil
}

// DecodeRun represents one pass over a set of capture files.
type DecodeRun struct {
	RunID      string   `json:"run_id"`
	Source     string   `json:"source"`
	StartedAt  float64  `json:"started_at"`
	FinishedAt *float64 `json:"finished_at,omitempty"`
	FrameCount int      `json:"frame_count"`
	Notes      string   `json:"notes"`
}

// FrameRecord is the stored metadata for one decoded frame.
type FrameRecord struct {
	ID               int64   `json:"id"`
	RunID            string  `json:"run_id"`
	FrameNumber      uint32  `json:"frame_number"`
	FrameType        string  `json:"frame_type"`
	SourcePath       string  `json:"source_path"`
	NumPixels        int     `json:"num_pixels"`
	NumHeaderRecords int     `json:"num_header_records"`
	ParityErrors     int     `json:"parity_errors"`
	TimestampBase    uint32  `json:"timestamp_base"`
	MinX             float64 `json:"min_x"`
	MaxX             float64 `json:"max_x"`
	MinY             float64 `json:"min_y"`
	MaxY             float64 `json:"max_y"`
	MinZ             float64 `json:"min_z"`
	MaxZ             float64 `json:"max_z"`
	MeanIntensity    float64 `json:"mean_intensity"`
	OverRangeCount   int     `json:"over_range_count"`
	LowGainCount     int     `json:"low_gain_count"`
	CreatedAt        float64 `json:"created_at"`
}

// StartRun creates a new decode run record and returns its generated ID.
func (s *FrameStore) StartRun(source, notes string) (string, error) {
	runID := uuid.New().String()
	_, err := s.Exec(`INSERT INTO decode_runs (run_id, source, notes) VALUES (?, ?, ?)`,
		runID, source, notes)
	if err != nil {
		return "", fmt.Errorf("start decode run: %w", err)
	}
	return runID, nil
}

// FinishRun marks a run complete and records its final frame count.
func (s *FrameStore) FinishRun(runID string) error {
	_, err := s.Exec(`
		UPDATE decode_runs
		SET finished_at = UNIXEPOCH('subsec'),
		    frame_count = (SELECT COUNT(*) FROM frames WHERE run_id = ?)
		WHERE run_id = ?`, runID, runID)
	if err != nil {
		return fmt.Errorf("finish decode run: %w", err)
	}
	return nil
}

// RecordFrame indexes a decoded frame under the given run, computing its
// summary statistics from the pixel data.
func (s *FrameStore) RecordFrame(runID, sourcePath string, f *frames.Frame) (int64, error) {
	summary, err := framestats.Summarise(f)
	if err != nil {
		return 0, fmt.Errorf("summarise frame %d: %w", f.Number(), err)
	}

	result, err := s.Exec(`
		INSERT INTO frames (
			run_id, frame_number, frame_type, source_path,
			num_pixels, num_header_records, parity_errors, timestamp_base,
			min_x, max_x, min_y, max_y, min_z, max_z,
			mean_intensity, over_range_count, low_gain_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, f.Number(), f.Type().String(), sourcePath,
		f.NumPixels(), f.NumHeaderRecords(), f.ParityErrors(), f.TimestampBase(),
		summary.MinX, summary.MaxX, summary.MinY, summary.MaxY, summary.MinZ, summary.MaxZ,
		summary.MeanIntensity, summary.OverRangeCount, summary.LowGainCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert frame %d: %w", f.Number(), err)
	}
	return result.LastInsertId()
}

// GetRun returns a single decode run by ID.
func (s *FrameStore) GetRun(runID string) (*DecodeRun, error) {
	row := s.QueryRow(`
		SELECT run_id, source, started_at, finished_at, frame_count, notes
		FROM decode_runs WHERE run_id = ?`, runID)

	var run DecodeRun
	err := row.Scan(&run.RunID, &run.Source, &run.StartedAt, &run.FinishedAt,
		&run.FrameCount, &run.Notes)
	if err != nil {
		return nil, fmt.Errorf("get decode run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns recent decode runs, newest first.
func (s *FrameStore) ListRuns(limit int) ([]*DecodeRun, error) {
	rows, err := s.Query(`
		SELECT run_id, source, started_at, finished_at, frame_count, notes
		FROM decode_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decode runs: %w", err)
	}
	defer rows.Close()

	var runs []*DecodeRun
	for rows.Next() {
		var run DecodeRun
		err := rows.Scan(&run.RunID, &run.Source, &run.StartedAt, &run.FinishedAt,
			&run.FrameCount, &run.Notes)
		if err != nil {
			return nil, fmt.Errorf("scan decode run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// ListFrames returns the frames indexed under a run, ordered by frame number.
func (s *FrameStore) ListFrames(runID string) ([]*FrameRecord, error) {
	rows, err := s.Query(`
		SELECT id, run_id, frame_number, frame_type, source_path,
		       num_pixels, num_header_records, parity_errors, timestamp_base,
		       min_x, max_x, min_y, max_y, min_z, max_z,
		       mean_intensity, over_range_count, low_gain_count, created_at
		FROM frames
		WHERE run_id = ?
		ORDER BY frame_number`, runID)
	if err != nil {
		return nil, fmt.Errorf("list frames for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []*FrameRecord
	for rows.Next() {
		rec, err := scanFrame(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetFrame returns one indexed frame by run and frame number.
func (s *FrameStore) GetFrame(runID string, frameNumber uint32) (*FrameRecord, error) {
	rows, err := s.Query(`
		SELECT id, run_id, frame_number, frame_type, source_path,
		       num_pixels, num_header_records, parity_errors, timestamp_base,
		       min_x, max_x, min_y, max_y, min_z, max_z,
		       mean_intensity, over_range_count, low_gain_count, created_at
		FROM frames
		WHERE run_id = ? AND frame_number = ?
		LIMIT 1`, runID, frameNumber)
	if err != nil {
		return nil, fmt.Errorf("get frame %d: %w", frameNumber, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanFrame(rows)
}

func scanFrame(rows *sql.Rows) (*FrameRecord, error) {
	var rec FrameRecord
	err := rows.Scan(&rec.ID, &rec.RunID, &rec.FrameNumber, &rec.FrameType, &rec.SourcePath,
		&rec.NumPixels, &rec.NumHeaderRecords, &rec.ParityErrors, &rec.TimestampBase,
		&rec.MinX, &rec.MaxX, &rec.MinY, &rec.MaxY, &rec.MinZ, &rec.MaxZ,
		&rec.MeanIntensity, &rec.OverRangeCount, &rec.LowGainCount, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan frame row: %w", err)
	}
	return &rec, nil
}

// StartedAtTime converts a run's start timestamp to a time.Time.
func (r *DecodeRun) StartedAtTime() time.Time {
	sec := int64(r.StartedAt)
	nsec := int64((r.StartedAt - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
