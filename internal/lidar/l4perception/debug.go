package l4perception

import (
	"io"

	"github.com/banshee-data/scanline/internal/monitoring"
)

var logs monitoring.Streams

// SetLogWriters configures the segmenter's log streams:
//
//	ops   depth-limited runs
//	diag  parameter changes
//	trace one line per segmented cloud
//
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	logs.Set("[l4perception] ", ops, diag, trace)
}

func opsf(format string, args ...interface{})   { logs.Opsf(format, args...) }
func diagf(format string, args ...interface{})  { logs.Diagf(format, args...) }
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
