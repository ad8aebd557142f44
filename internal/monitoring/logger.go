// Package monitoring holds the process-level log function used by the
// commands and the HTTP server.
package monitoring

import (
	"bytes"
	"log"
	"sync"
)

// Logf is the process logger. It defaults to log.Printf; SetLogger swaps it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LineWriter adapts Logf to an io.Writer so package log streams can be
// routed through it. Each complete line becomes one Logf call; a trailing
// partial line is held until the next write.
type LineWriter struct {
	mu  sync.Mutex
	buf []byte
}

// Write implements io.Writer.
func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.buf = append(lw.buf, p...)
	for {
		i := bytes.IndexByte(lw.buf, '\n')
		if i < 0 {
			break
		}
		Logf("%s", lw.buf[:i])
		lw.buf = lw.buf[i+1:]
	}
	return len(p), nil
}
