package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/framegrabber/internal/dsql/dsqltest"
)

// newTestServer builds a WebServer over a temp capture directory holding
// one five-pixel frame named 0000002a.dsql.
func newTestServer(t *testing.T) (*WebServer, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "0000002a.dsql")
	if err := os.WriteFile(path, dsqltest.SimpleFrame([5]uint16{0, 0, 0x1234, 0x0001, 0}, 5), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	return NewWebServer(WebServerConfig{Address: ":0", CaptureDir: dir}), dir
}

func get(t *testing.T, ws *WebServer, url string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleListFrames(t *testing.T) {
	ws, dir := newTestServer(t)

	// Non-capture files must not appear in the listing.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rec := get(t, ws, "/api/frames")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var listings []FrameListing
	if err := json.Unmarshal(rec.Body.Bytes(), &listings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	if listings[0].File != "0000002a.dsql" || listings[0].FrameNumber != 0x2a {
		t.Errorf("listing = %+v", listings[0])
	}
	if listings[0].NumRecords != 6 {
		t.Errorf("NumRecords = %d, want 6", listings[0].NumRecords)
	}
}

func TestHandleFrameInfo(t *testing.T) {
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/frame?frame=0000002a.dsql")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var info FrameInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.FrameNumber != 0x2a || info.NumPixels != 5 {
		t.Errorf("info = %+v, want frame 0x2a with 5 pixels", info)
	}
	if info.TimestampBase != 0x00011234 {
		t.Errorf("TimestampBase = %#x, want 0x00011234", info.TimestampBase)
	}
	if info.Summary == nil {
		t.Error("info.Summary is nil")
	}
}

func TestHandleFrameInfoRejectsPathTraversal(t *testing.T) {
	ws, _ := newTestServer(t)

	for _, name := range []string{"..%2F..%2Fetc%2Fpasswd", "..", "sub%2Fframe.dsql"} {
		rec := get(t, ws, "/api/frame?frame="+name)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("frame=%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestHandleFrameData(t *testing.T) {
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/frame/data?frame=0000002a.dsql&decimation=2&fields=x,intensity&time_unit=us")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var data FrameData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if data.NumPoints != 3 {
		t.Errorf("NumPoints = %d, want 3 (5 pixels decimated by 2)", data.NumPoints)
	}
	if len(data.Columns) != 2 {
		t.Errorf("got %d columns, want 2: %v", len(data.Columns), data.Columns)
	}
	// SimpleFrame encodes x = pixel index in whole units; decimation keeps
	// indices 0, 2, 4.
	wantX := []float64{0, 2, 4}
	for i, want := range wantX {
		if data.Columns["x"][i] != want {
			t.Errorf("x[%d] = %v, want %v", i, data.Columns["x"][i], want)
		}
	}
}

func TestHandleFrameDataBadParams(t *testing.T) {
	ws, _ := newTestServer(t)

	tests := []struct {
		name string
		url  string
	}{
		{"missing frame", "/api/frame/data"},
		{"unknown file", "/api/frame/data?frame=99999999.dsql"},
		{"zero decimation", "/api/frame/data?frame=0000002a.dsql&decimation=0"},
		{"bad field", "/api/frame/data?frame=0000002a.dsql&fields=bogus"},
		{"bad time unit", "/api/frame/data?frame=0000002a.dsql&time_unit=fortnights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, ws, tt.url)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleListRunsWithoutStore(t *testing.T) {
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/api/runs")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 without a configured store", rec.Code)
	}
}

func TestHandleFrameScatter(t *testing.T) {
	ws, _ := newTestServer(t)

	rec := get(t, ws, "/debug/scatter?frame=0000002a.dsql")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty chart body")
	}
}

func TestHandleFrameScatterRejectsPost(t *testing.T) {
	ws, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/debug/scatter?frame=0000002a.dsql", nil)
	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
