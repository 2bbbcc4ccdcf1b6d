// Package extract owns the projection stage of the DSQL data model:
// turning an assembled frame's pixel run into a column-oriented table of
// decoded physical quantities under caller-selected decimation, field
// filtering, and time unit.
//
// Extraction is a pure function over its inputs. Frames are never mutated
// and no state is shared between calls, so concurrent extractions against
// the same frame are safe.
package extract
