package l1scans

import (
	"io"

	"github.com/banshee-data/scanline/internal/monitoring"
)

var logs monitoring.Streams

// SetLogWriters routes the reader's ops, diag and trace output. A nil
// writer silences that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	logs.Set("[l1scans] ", ops, diag, trace)
}

func opsf(format string, args ...interface{})   { logs.Opsf(format, args...) }
func diagf(format string, args ...interface{})  { logs.Diagf(format, args...) }
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
