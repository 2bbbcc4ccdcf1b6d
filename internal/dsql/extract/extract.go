package extract

import (
	"errors"
	"fmt"

	"github.com/banshee-data/framegrabber/internal/dsql/hword"
)

// Pixel payload layout
// Bit positions are payload-relative (bit 0 = least significant payload
// bit), reproduced bit-for-bit from the archived sensor format.
const (
	X_BIT_OFFSET = 0 // x: 19-bit signed fixed point, bits 18:0
	X_BIT_WIDTH  = 19
	Y_BIT_OFFSET = 24 // y: 19-bit signed fixed point, bits 42:24
	Y_BIT_WIDTH  = 19
	Z_BIT_OFFSET = 48 // z: 22-bit signed fixed point, bits 69:48
	Z_BIT_WIDTH  = 22

	INTENSITY_BIT_OFFSET = 72 // intensity: 12-bit unsigned, bits 83:72
	INTENSITY_BIT_WIDTH  = 12

	OVER_RANGE_BIT = 90 // over-range flag
	GAIN_BIT       = 91 // HG/LG flag; set = low gain

	// Coordinates are fixed point with a 10-bit fractional part (2^10).
	COORDINATE_SCALE_FACTOR = 1024.0
)

// ErrInvalidDecimation is returned for a decimation factor below one.
var ErrInvalidDecimation = errors.New("decimation must be a positive integer")

// Source is the view of an assembled frame the extractor needs. A
// frames.Frame satisfies it.
type Source interface {
	NumPixels() int
	Pixel(i int) hword.HWord
	TimestampBase() uint32
}

// Table is a column-oriented extraction result: one float64 column per
// requested field, all of equal length, in whitelist order (canonical
// order when no whitelist was given). Boolean fields decode to 0 and 1.
type Table struct {
	fields  []Field
	columns [][]float64
}

// Fields returns the table's column order.
func (t *Table) Fields() []Field {
	return t.fields
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0])
}

// Column returns the values for a field, or false when the field was not
// requested.
func (t *Table) Column(f Field) ([]float64, bool) {
	for i, tf := range t.fields {
		if tf == f {
			return t.columns[i], true
		}
	}
	return nil, false
}

// ColumnAt returns column i in table order.
func (t *Table) ColumnAt(i int) []float64 {
	return t.columns[i]
}

// Extract projects a frame's pixel run into a column table.
//
// decimation selects pixel indices 0, d, 2d, ...; the first pixel is
// always included when the frame has any. whitelist selects and orders
// the output columns; nil selects all fields in canonical order. unit
// scales the timestamp column only.
func Extract(src Source, decimation int, whitelist []string, unit TimeUnit) (*Table, error) {
	if decimation < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDecimation, decimation)
	}

	fields, err := resolveFields(whitelist)
	if err != nil {
		return nil, err
	}

	numPixels := src.NumPixels()
	rows := (numPixels + decimation - 1) / decimation

	table := &Table{
		fields:  fields,
		columns: make([][]float64, len(fields)),
	}
	for i := range table.columns {
		table.columns[i] = make([]float64, 0, rows)
	}

	base := float64(src.TimestampBase())
	tick := unit.scale()

	for i := 0; i < numPixels; i += decimation {
		w := src.Pixel(i)
		for col, f := range fields {
			table.columns[col] = append(table.columns[col], decodeField(w, f, i, base, tick))
		}
	}

	return table, nil
}

// resolveFields maps a whitelist to an ordered field list, preserving
// whitelist order and dropping duplicates. An empty whitelist (nil or
// zero length) selects the canonical set.
func resolveFields(whitelist []string) ([]Field, error) {
	if len(whitelist) == 0 {
		fields := make([]Field, len(CanonicalFields))
		copy(fields, CanonicalFields)
		return fields, nil
	}

	fields := make([]Field, 0, len(whitelist))
	seen := make(map[Field]bool, len(whitelist))
	for _, name := range whitelist {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// decodeField decodes one field of one pixel record. index is the pixel's
// pre-decimation ordinal within the frame, which drives the timestamp.
func decodeField(w hword.HWord, f Field, index int, timestampBase, tickScale float64) float64 {
	switch f {
	case FieldX:
		return float64(hword.SignExtend(w.PayloadBits(X_BIT_OFFSET, X_BIT_WIDTH), X_BIT_WIDTH)) / COORDINATE_SCALE_FACTOR
	case FieldY:
		return float64(hword.SignExtend(w.PayloadBits(Y_BIT_OFFSET, Y_BIT_WIDTH), Y_BIT_WIDTH)) / COORDINATE_SCALE_FACTOR
	case FieldZ:
		return float64(hword.SignExtend(w.PayloadBits(Z_BIT_OFFSET, Z_BIT_WIDTH), Z_BIT_WIDTH)) / COORDINATE_SCALE_FACTOR
	case FieldIntensity:
		return float64(w.PayloadBits(INTENSITY_BIT_OFFSET, INTENSITY_BIT_WIDTH))
	case FieldGain:
		if w.PayloadBit(GAIN_BIT) {
			return 1
		}
		return 0
	case FieldOverRange:
		if w.PayloadBit(OVER_RANGE_BIT) {
			return 1
		}
		return 0
	case FieldTimestamp:
		return (timestampBase + float64(index)) * tickScale
	}
	return 0
}
