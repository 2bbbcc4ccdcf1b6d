// Package frames owns frame assembly for the DSQL data model: turning an
// ordered HWORD sequence into complete logical frames of one header run
// followed by one pixel run.
//
// Responsibilities: the assembly state machine, frame-boundary detection,
// header register extraction, and loading frames from .dsql capture files.
// Key types: Frame, Assembler.
//
// Dependency rule: frames may depend on hword, plus extract for the
// Frame.Data facade, but never on storage or transport layers.
package frames
