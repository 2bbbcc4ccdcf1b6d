// dsql-export decodes .dsql capture files and writes their point data as
// CloudCompare-compatible .asc or CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/framegrabber/internal/dsql/export"
	"github.com/banshee-data/framegrabber/internal/dsql/frames"
	"github.com/banshee-data/framegrabber/internal/dsql/framestats"
)

var (
	decimation = flag.Int("decimation", 1, "Keep every Nth point (1 = all points)")
	fields     = flag.String("fields", "", "Comma-separated fields to export (default: all of x,y,z,intensity,gain,over_range,timestamp)")
	timeUnit   = flag.String("time-unit", "ticks", "Timestamp unit: ticks, us, ms, or s")
	format     = flag.String("format", "asc", "Output format: asc or csv")
	outDir     = flag.String("out", ".", "Directory to write exported files")
	summary    = flag.Bool("summary", false, "Print per-frame summary statistics to stderr")
)

func exportFile(path string) error {
	frame, err := frames.FromFile(path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	var whitelist []string
	if *fields != "" {
		whitelist = strings.Split(*fields, ",")
	}

	table, err := frame.Data(*decimation, whitelist, *timeUnit)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	if *summary {
		s, err := framestats.Summarise(frame)
		if err != nil {
			return fmt.Errorf("summarise %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "%s: frame %d (%s), %d pixels, x [%.3f, %.3f], y [%.3f, %.3f], z [%.3f, %.3f], mean intensity %.1f\n",
			filepath.Base(path), frame.Number(), frame.Type(), s.NumPixels,
			s.MinX, s.MaxX, s.MinY, s.MaxY, s.MinZ, s.MaxZ, s.MeanIntensity)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(*outDir, stem+"."+*format)

	switch *format {
	case "asc":
		err = export.WriteASCFile(outPath, table)
	case "csv":
		err = export.WriteCSVFile(outPath, table)
	default:
		return fmt.Errorf("unknown format %q (want asc or csv)", *format)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	log.Printf("Wrote %d points to %s", table.Len(), outPath)
	return nil
}

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.dsql [file.dsql ...]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory %s: %v", *outDir, err)
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := exportFile(path); err != nil {
			log.Printf("Export failed: %v", err)
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, flag.NArg())
	}
}
