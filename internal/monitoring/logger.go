// Package monitoring holds the shared diagnostic logging hooks used by the
// decoder pipeline. Decode paths log through Logf so long captures can run
// with logging redirected or muted.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Replace it with SetLogger to redirect or mute decoder diagnostics.
var Logf func(format string, v ...interface{}) = log.Printf

// Debug gates the verbose per-record diagnostics emitted by the capture
// sync engine.
var Debug bool

// Debugf logs through Logf only when Debug is enabled.
func Debugf(format string, v ...interface{}) {
	if Debug {
		Logf(format, v...)
	}
}

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
