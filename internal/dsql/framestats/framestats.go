// Package framestats computes per-frame summary statistics over a decoded
// point table: spatial bounds, intensity distribution, and flag counts.
// Summaries feed the frame index store and the inspection API.
package framestats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/framegrabber/internal/dsql/extract"
)

// Summary describes one frame's point cloud in aggregate.
type Summary struct {
	NumPixels int

	// Axis-aligned bounding box of the decoded coordinates, in sensor units.
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	MeanIntensity   float64
	StdDevIntensity float64

	OverRangeCount int // pixels with the over-range flag set
	LowGainCount   int // pixels captured in low gain (HG/LG flag set)
}

// Summarise extracts a frame at full resolution and reduces it to a
// Summary.
func Summarise(src extract.Source) (*Summary, error) {
	table, err := extract.Extract(src, 1, nil, extract.UnitTicks)
	if err != nil {
		return nil, fmt.Errorf("cannot extract frame for summary: %w", err)
	}
	return FromTable(table)
}

// FromTable reduces a full-resolution extraction to a Summary. The table
// must carry the x, y, z, intensity, gain, and over_range columns.
func FromTable(table *extract.Table) (*Summary, error) {
	s := &Summary{NumPixels: table.Len()}
	if s.NumPixels == 0 {
		return s, nil
	}

	var ok bool
	var xs, ys, zs, intensity, gain, overRange []float64
	for _, col := range []struct {
		field extract.Field
		dst   *[]float64
	}{
		{extract.FieldX, &xs},
		{extract.FieldY, &ys},
		{extract.FieldZ, &zs},
		{extract.FieldIntensity, &intensity},
		{extract.FieldGain, &gain},
		{extract.FieldOverRange, &overRange},
	} {
		if *col.dst, ok = table.Column(col.field); !ok {
			return nil, fmt.Errorf("summary requires the %s column", col.field)
		}
	}

	s.MinX, s.MaxX = bounds(xs)
	s.MinY, s.MaxY = bounds(ys)
	s.MinZ, s.MaxZ = bounds(zs)

	s.MeanIntensity = stat.Mean(intensity, nil)
	if len(intensity) > 1 {
		s.StdDevIntensity = stat.StdDev(intensity, nil)
	}

	for i := range gain {
		if gain[i] != 0 {
			s.LowGainCount++
		}
		if overRange[i] != 0 {
			s.OverRangeCount++
		}
	}

	return s, nil
}

func bounds(v []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}
