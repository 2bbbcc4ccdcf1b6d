package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/framegrabber/internal/dsql/dsqltest"
	"github.com/banshee-data/framegrabber/internal/dsql/extract"
	"github.com/banshee-data/framegrabber/internal/dsql/frames"
	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

func testTable(t *testing.T, numPixels int, whitelist []string) *extract.Table {
	t.Helper()

	f, err := frames.FromBytes(1, dsqltest.SimpleFrame([5]uint16{}, numPixels))
	if err != nil {
		t.Fatalf("FromBytes() error = %v", err)
	}
	table, err := f.Data(1, whitelist, "ticks")
	if err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	return table
}

func TestWriteASC(t *testing.T) {
	var sb strings.Builder
	if err := WriteASC(&sb, testTable(t, 3, []string{"x", "y", "z", "intensity"})); err != nil {
		t.Fatalf("WriteASC() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("output has %d lines, want 2 header + 3 points:\n%s", len(lines), sb.String())
	}
	if lines[1] != "# Format: X Y Z Intensity" {
		t.Errorf("header line = %q", lines[1])
	}
	// SimpleFrame encodes x = pixel index in whole units, intensity = index.
	if lines[3] != "1.000000 0.000000 0.000000 1" {
		t.Errorf("point line = %q", lines[3])
	}
}

func TestWriteASCEmptyTable(t *testing.T) {
	table, err := extract.Extract(emptySource{}, 1, nil, extract.UnitTicks)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	var sb strings.Builder
	if err := WriteASC(&sb, table); err == nil {
		t.Error("WriteASC() on empty table succeeded, want error")
	}
}

func TestWriteCSV(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, testTable(t, 2, []string{"x", "intensity", "timestamp"})); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("output has %d lines, want header + 2 rows:\n%s", len(lines), sb.String())
	}
	if lines[0] != "x,intensity,timestamp" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0.000000,0,0" {
		t.Errorf("row 0 = %q", lines[1])
	}
	if lines[2] != "1.000000,1,1" {
		t.Errorf("row 1 = %q", lines[2])
	}
}

func TestWriteFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := testTable(t, 2, nil)

	ascPath := filepath.Join(dir, "out.asc")
	if err := WriteASCFile(ascPath, table); err != nil {
		t.Fatalf("WriteASCFile() error = %v", err)
	}
	data, err := os.ReadFile(ascPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# Exported points\n") {
		t.Errorf("asc file starts with %q", string(data[:min(len(data), 32)]))
	}

	csvPath := filepath.Join(dir, "out.csv")
	if err := WriteCSVFile(csvPath, table); err != nil {
		t.Fatalf("WriteCSVFile() error = %v", err)
	}
	data, err = os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "x,y,z,intensity,gain,over_range,timestamp\n") {
		t.Errorf("csv file starts with %q", string(data[:min(len(data), 64)]))
	}
}

type emptySource struct{}

func (emptySource) NumPixels() int        { return 0 }
func (emptySource) Pixel(int) hword.HWord { panic("no pixels") }
func (emptySource) TimestampBase() uint32 { return 0 }
