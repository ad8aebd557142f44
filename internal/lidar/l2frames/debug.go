package l2frames

import (
	"io"

	"github.com/banshee-data/scanline/internal/monitoring"
)

var logs monitoring.Streams

// SetLogWriters configures projection logging. Pass nil to disable a stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	logs.Set("[l2frames] ", ops, diag, trace)
}

func opsf(format string, args ...interface{})   { logs.Opsf(format, args...) }
func diagf(format string, args ...interface{})  { logs.Diagf(format, args...) }
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
