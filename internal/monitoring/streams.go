package monitoring

import (
	"io"
	"log"
	"sync/atomic"
)

// Streams is one package's three log streams:
//
//	ops   actionable warnings, errors, data loss
//	diag  day-to-day diagnostics and tuning context
//	trace per-scan telemetry
//
// The zero value logs nothing. Streams may be reconfigured while other
// goroutines are logging.
type Streams struct {
	ops   atomic.Pointer[log.Logger]
	diag  atomic.Pointer[log.Logger]
	trace atomic.Pointer[log.Logger]
}

// Set points each stream at a writer, prefixing every line. A nil writer
// disables that stream.
func (s *Streams) Set(prefix string, ops, diag, trace io.Writer) {
	s.ops.Store(newStreamLogger(prefix, ops))
	s.diag.Store(newStreamLogger(prefix, diag))
	s.trace.Store(newStreamLogger(prefix, trace))
}

func newStreamLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func (s *Streams) Opsf(format string, args ...interface{}) {
	if l := s.ops.Load(); l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func (s *Streams) Diagf(format string, args ...interface{}) {
	if l := s.diag.Load(); l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func (s *Streams) Tracef(format string, args ...interface{}) {
	if l := s.trace.Load(); l != nil {
		l.Printf(format, args...)
	}
}

// TraceEnabled reports whether the trace stream has a writer, so callers
// can skip building expensive trace arguments.
func (s *Streams) TraceEnabled() bool {
	return s.trace.Load() != nil
}
