// Package monitor provides the HTTP interface for browsing decoded frame
// captures: JSON endpoints for frame listings, metadata, and extracted
// point data, plus a debugging scatter plot rendered with go-echarts.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/framegrabber/internal/dsql/extract"
	"github.com/banshee-data/framegrabber/internal/dsql/frames"
	"github.com/banshee-data/framegrabber/internal/dsql/framestats"
	"github.com/banshee-data/framegrabber/internal/dsql/store"
	"github.com/banshee-data/framegrabber/internal/version"
)

// WebServer handles the HTTP interface over a directory of .dsql capture
// files and an optional frame index database.
type WebServer struct {
	address    string
	captureDir string
	store      *store.FrameStore
	server     *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address    string
	CaptureDir string
	Store      *store.FrameStore // optional
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:    config.Address,
		captureDir: config.CaptureDir,
		store:      config.Store,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}

// Start begins the HTTP server and blocks until ctx is cancelled, then
// shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/frames", ws.handleListFrames)
	mux.HandleFunc("/api/frame", ws.handleFrameInfo)
	mux.HandleFunc("/api/frame/data", ws.handleFrameData)
	mux.HandleFunc("/api/runs", ws.handleListRuns)
	mux.HandleFunc("/api/run/frames", ws.handleRunFrames)
	mux.HandleFunc("/debug/scatter", ws.handleFrameScatter)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// FrameListing is one entry in the capture directory index.
type FrameListing struct {
	File        string `json:"file"`
	FrameNumber uint32 `json:"frame_number"`
	SizeBytes   int64  `json:"size_bytes"`
	NumRecords  int64  `json:"num_records"`
}

// handleListFrames returns the .dsql files in the capture directory,
// ordered by frame number.
func (ws *WebServer) handleListFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	entries, err := os.ReadDir(ws.captureDir)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("read capture dir: %v", err))
		return
	}

	listings := []FrameListing{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".dsql") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		listings = append(listings, FrameListing{
			File:        entry.Name(),
			FrameNumber: frames.FrameNumberFromPath(entry.Name()),
			SizeBytes:   info.Size(),
			NumRecords:  info.Size() / 12,
		})
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].FrameNumber < listings[j].FrameNumber
	})

	ws.writeJSON(w, http.StatusOK, listings)
}

// loadFrame resolves the 'frame' query parameter to a decoded frame. The
// parameter is a bare filename within the capture directory; path
// components are rejected.
func (ws *WebServer) loadFrame(r *http.Request) (*frames.Frame, error) {
	name := r.URL.Query().Get("frame")
	if name == "" {
		return nil, fmt.Errorf("missing 'frame' parameter")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid frame name %q", name)
	}
	return frames.FromFile(filepath.Join(ws.captureDir, name))
}

// FrameInfo is the metadata response for one decoded frame.
type FrameInfo struct {
	FrameNumber      uint32              `json:"frame_number"`
	FrameType        string              `json:"frame_type"`
	NumPixels        int                 `json:"num_pixels"`
	NumHeaderRecords int                 `json:"num_header_records"`
	ParityErrors     int                 `json:"parity_errors"`
	TimestampBase    uint32              `json:"timestamp_base"`
	Registers        []uint16            `json:"registers,omitempty"`
	Summary          *framestats.Summary `json:"summary"`
}

func (ws *WebServer) handleFrameInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	frame, err := ws.loadFrame(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := framestats.Summarise(frame)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("summarise frame: %v", err))
		return
	}

	ws.writeJSON(w, http.StatusOK, FrameInfo{
		FrameNumber:      frame.Number(),
		FrameType:        frame.Type().String(),
		NumPixels:        frame.NumPixels(),
		NumHeaderRecords: frame.NumHeaderRecords(),
		ParityErrors:     frame.ParityErrors(),
		TimestampBase:    frame.TimestampBase(),
		Registers:        frame.Registers(),
		Summary:          summary,
	})
}

// FrameData is the extracted point data response: one column of decoded
// values per requested field.
type FrameData struct {
	FrameNumber uint32               `json:"frame_number"`
	NumPoints   int                  `json:"num_points"`
	Decimation  int                  `json:"decimation"`
	TimeUnit    string               `json:"time_unit"`
	Columns     map[string][]float64 `json:"columns"`
}

// handleFrameData extracts point data from a frame. Query params:
//
//	frame (required): capture filename
//	decimation (optional, default 1): keep every Nth point
//	fields (optional): comma-separated field names, default all
//	time_unit (optional, default ticks): ticks, us, ms, or s
func (ws *WebServer) handleFrameData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	frame, err := ws.loadFrame(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	decimation := 1
	if d := r.URL.Query().Get("decimation"); d != "" {
		decimation, err = strconv.Atoi(d)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid decimation %q", d))
			return
		}
	}

	var fields []string
	if f := r.URL.Query().Get("fields"); f != "" {
		fields = strings.Split(f, ",")
	}

	table, err := frame.Data(decimation, fields, r.URL.Query().Get("time_unit"))
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	columns := make(map[string][]float64, len(table.Fields()))
	for i, f := range table.Fields() {
		columns[f.String()] = table.ColumnAt(i)
	}

	ws.writeJSON(w, http.StatusOK, FrameData{
		FrameNumber: frame.Number(),
		NumPoints:   table.Len(),
		Decimation:  decimation,
		TimeUnit:    r.URL.Query().Get("time_unit"),
		Columns:     columns,
	})
}

func (ws *WebServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "no frame index configured")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	runs, err := ws.store.ListRuns(limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list runs: %v", err))
		return
	}
	ws.writeJSON(w, http.StatusOK, runs)
}

func (ws *WebServer) handleRunFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "no frame index configured")
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'run_id' parameter")
		return
	}

	records, err := ws.store.ListFrames(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list frames: %v", err))
		return
	}
	ws.writeJSON(w, http.StatusOK, records)
}

// extractScatterData pulls x/y/intensity columns for plotting, capped to
// maxPoints by raising the decimation.
func extractScatterData(frame *frames.Frame, maxPoints int) (*extract.Table, int, error) {
	decimation := 1
	if frame.NumPixels() > maxPoints {
		decimation = (frame.NumPixels() + maxPoints - 1) / maxPoints
	}
	table, err := frame.Data(decimation, []string{"x", "y", "intensity"}, "ticks")
	return table, decimation, err
}
