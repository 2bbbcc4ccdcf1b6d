package frames

import (
	"github.com/banshee-data/framegrabber/internal/dsql/extract"
)

// Data extracts the frame's point table: decimation stride, field
// whitelist (nil for all fields), and timestamp unit name ("" for raw
// ticks).
func (f *Frame) Data(decimation int, fieldWhitelist []string, timeUnit string) (*extract.Table, error) {
	unit, err := extract.ParseTimeUnit(timeUnit)
	if err != nil {
		return nil, err
	}
	return extract.Extract(f, decimation, fieldWhitelist, unit)
}
