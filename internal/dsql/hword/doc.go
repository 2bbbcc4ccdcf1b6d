// Package hword owns the lowest layer of the DSQL data model: the fixed
// 12-byte HWORD record and the reader that slices a raw capture buffer
// into a lazy, restartable record sequence.
//
// Responsibilities: record framing, control-code extraction, payload bit
// access, and parity verification. Payload interpretation belongs to the
// frames and extract packages, which know each record's role.
//
// Dependency rule: hword depends on nothing else in internal/dsql.
package hword
