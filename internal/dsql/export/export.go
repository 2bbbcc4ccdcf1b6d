// Package export writes extracted point tables to interchange formats:
// CloudCompare-compatible .asc and plain CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/banshee-data/framegrabber/internal/dsql/extract"
)

// WriteASC writes a point table as a CloudCompare-compatible .asc file:
// a commented header naming the columns, then one space-separated row per
// point. Coordinate columns are printed with six decimal places; flag and
// count columns as integers.
func WriteASC(w io.Writer, table *extract.Table) error {
	if table.Len() == 0 {
		return fmt.Errorf("no points to export")
	}

	fields := table.Fields()
	if _, err := fmt.Fprintf(w, "# Exported points\n# Format:%s\n", headerSuffix(fields)); err != nil {
		return err
	}

	for row := 0; row < table.Len(); row++ {
		for i, f := range fields {
			if i > 0 {
				if _, err := io.WriteString(w, " "); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, formatCell(f, table.ColumnAt(i)[row])); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteASCFile writes a point table to a new .asc file at path.
func WriteASCFile(path string, table *extract.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteASC(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes a point table as CSV with a field-name header row.
func WriteCSV(w io.Writer, table *extract.Table) error {
	cw := csv.NewWriter(w)

	fields := table.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.String()
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(fields))
	for row := 0; row < table.Len(); row++ {
		for i, f := range fields {
			record[i] = formatCell(f, table.ColumnAt(i)[row])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes a point table to a new CSV file at path.
func WriteCSVFile(path string, table *extract.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// headerSuffix renders field names for the .asc header comment, e.g.
// " X Y Z Intensity".
func headerSuffix(fields []extract.Field) string {
	s := ""
	for _, f := range fields {
		switch f {
		case extract.FieldX:
			s += " X"
		case extract.FieldY:
			s += " Y"
		case extract.FieldZ:
			s += " Z"
		case extract.FieldIntensity:
			s += " Intensity"
		case extract.FieldGain:
			s += " Gain"
		case extract.FieldOverRange:
			s += " OverRange"
		case extract.FieldTimestamp:
			s += " Timestamp"
		}
	}
	return s
}

// formatCell picks a per-field representation: fixed six decimals for
// coordinates, integers for flags and intensity, shortest float for
// timestamps (which may be fractional in converted units).
func formatCell(f extract.Field, v float64) string {
	switch f {
	case extract.FieldX, extract.FieldY, extract.FieldZ:
		return strconv.FormatFloat(v, 'f', 6, 64)
	case extract.FieldIntensity, extract.FieldGain, extract.FieldOverRange:
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
