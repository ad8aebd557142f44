package pipeline

import (
	"io"

	"github.com/banshee-data/scanline/internal/monitoring"
)

var logs monitoring.Streams

// SetLogWriters configures the pipeline's log streams. Persistence failures
// go to ops, batch summaries to diag and per-scan timings to trace.
func SetLogWriters(ops, diag, trace io.Writer) {
	logs.Set("[pipeline] ", ops, diag, trace)
}

func opsf(format string, args ...interface{})   { logs.Opsf(format, args...) }
func diagf(format string, args ...interface{})  { logs.Diagf(format, args...) }
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
