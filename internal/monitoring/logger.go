package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Tracef receives high-frequency telemetry such as the decision loop's per-cycle
// data line. It is a no-op until SetTrace(true) routes it to Logf.
var Tracef func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetTrace enables or disables the trace stream.
func SetTrace(enabled bool) {
	if !enabled {
		Tracef = func(string, ...interface{}) {}
		return
	}
	Tracef = func(format string, v ...interface{}) {
		Logf("[trace] "+format, v...)
	}
}
