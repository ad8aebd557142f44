// Package lidar wires logging across the layer packages (l1scans, l2frames,
// l4perception, pipeline). Each layer keeps its own ops, diag and trace
// streams; SetLogWriters configures all of them at once.
package lidar

import (
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/scanline/internal/lidar/l1scans"
	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// SetLogWriters configures every layer's streams.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	l1scans.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l2frames.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l4perception.SetLogWriters(w.Ops, w.Diag, w.Trace)
	pipeline.SetLogWriters(w.Ops, w.Diag, w.Trace)
}

// LogLevels lists the accepted values for LogWritersForLevel, quietest first.
var LogLevels = []string{"off", "ops", "diag", "trace"}

// LogWritersForLevel enables the streams up to level, all writing to out:
// "ops" enables ops only, "diag" adds diag, "trace" adds trace and "off"
// disables everything.
func LogWritersForLevel(level string, out io.Writer) (LogWriters, error) {
	switch strings.ToLower(level) {
	case "off":
		return LogWriters{}, nil
	case "ops":
		return LogWriters{Ops: out}, nil
	case "diag":
		return LogWriters{Ops: out, Diag: out}, nil
	case "trace":
		return LogWriters{Ops: out, Diag: out, Trace: out}, nil
	}
	return LogWriters{}, fmt.Errorf("unknown log level %q (want one of %s)", level, strings.Join(LogLevels, ", "))
}
