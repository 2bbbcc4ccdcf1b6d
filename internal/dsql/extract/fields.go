package extract

import (
	"fmt"
	"strings"
)

// Field identifies one extractable column of a frame's point table.
type Field int

const (
	FieldX Field = iota
	FieldY
	FieldZ
	FieldIntensity
	FieldGain
	FieldOverRange
	FieldTimestamp
)

// CanonicalFields is the fixed column order used when no whitelist is
// given.
var CanonicalFields = []Field{
	FieldX, FieldY, FieldZ, FieldIntensity, FieldGain, FieldOverRange, FieldTimestamp,
}

func (f Field) String() string {
	switch f {
	case FieldX:
		return "x"
	case FieldY:
		return "y"
	case FieldZ:
		return "z"
	case FieldIntensity:
		return "intensity"
	case FieldGain:
		return "gain"
	case FieldOverRange:
		return "over_range"
	case FieldTimestamp:
		return "timestamp"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// UnknownFieldError reports a whitelist entry naming no known field.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Name)
}

// ParseField resolves a field name, case-insensitively. "overrange" is
// accepted as an alias for "over_range".
func ParseField(name string) (Field, error) {
	switch strings.ToLower(name) {
	case "x":
		return FieldX, nil
	case "y":
		return FieldY, nil
	case "z":
		return FieldZ, nil
	case "intensity":
		return FieldIntensity, nil
	case "gain":
		return FieldGain, nil
	case "over_range", "overrange":
		return FieldOverRange, nil
	case "timestamp":
		return FieldTimestamp, nil
	}
	return 0, &UnknownFieldError{Name: name}
}

// TimeUnit selects the unit applied to the decoded timestamp column. It
// affects no other field. The sensor's sample clock runs at 1 MHz, so one
// raw tick is one microsecond.
type TimeUnit int

const (
	UnitTicks TimeUnit = iota // raw sample-clock ticks
	UnitMicroseconds
	UnitMilliseconds
	UnitSeconds
)

func (u TimeUnit) String() string {
	switch u {
	case UnitTicks:
		return "ticks"
	case UnitMicroseconds:
		return "us"
	case UnitMilliseconds:
		return "ms"
	case UnitSeconds:
		return "s"
	}
	return fmt.Sprintf("time_unit(%d)", int(u))
}

// scale returns the multiplier from raw ticks to the unit.
func (u TimeUnit) scale() float64 {
	switch u {
	case UnitMilliseconds:
		return 1e-3
	case UnitSeconds:
		return 1e-6
	}
	// Ticks and microseconds coincide on a 1 MHz sample clock.
	return 1
}

// ParseTimeUnit resolves a time unit name, case-insensitively. The empty
// string selects raw ticks.
func ParseTimeUnit(name string) (TimeUnit, error) {
	switch strings.ToLower(name) {
	case "", "ticks":
		return UnitTicks, nil
	case "us", "microseconds":
		return UnitMicroseconds, nil
	case "ms", "milliseconds":
		return UnitMilliseconds, nil
	case "s", "seconds":
		return UnitSeconds, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", name)
}
