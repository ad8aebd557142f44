package monitoring

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestStreams_ZeroValueIsSilent(t *testing.T) {
	var s Streams
	s.Opsf("dropped %d", 1)
	s.Diagf("tuned")
	s.Tracef("frame")
	if s.TraceEnabled() {
		t.Error("zero Streams reports trace enabled")
	}
}

func TestStreams_RoutesEachStream(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	var s Streams
	s.Set("[l2frames] ", &ops, &diag, &trace)

	s.Opsf("ops %d", 1)
	s.Diagf("diag %d", 2)
	s.Tracef("trace %d", 3)

	for name, c := range map[string]struct {
		buf  *bytes.Buffer
		want string
	}{
		"ops":   {&ops, "ops 1"},
		"diag":  {&diag, "diag 2"},
		"trace": {&trace, "trace 3"},
	} {
		got := c.buf.String()
		if !strings.HasPrefix(got, "[l2frames] ") || !strings.Contains(got, c.want) {
			t.Errorf("%s stream = %q, want prefix and %q", name, got, c.want)
		}
		if strings.Count(got, "\n") != 1 {
			t.Errorf("%s stream has %d lines, want 1", name, strings.Count(got, "\n"))
		}
	}
	if !s.TraceEnabled() {
		t.Error("TraceEnabled = false with a trace writer")
	}
}

func TestStreams_NilWriterDisables(t *testing.T) {
	var ops bytes.Buffer
	var s Streams
	s.Set("[x] ", &ops, nil, nil)
	s.Diagf("hidden")
	s.Tracef("hidden")
	s.Opsf("shown")

	if got := ops.String(); strings.Contains(got, "hidden") || !strings.Contains(got, "shown") {
		t.Errorf("ops stream = %q", got)
	}
	if s.TraceEnabled() {
		t.Error("TraceEnabled = true with nil trace writer")
	}
}

func TestStreams_ConcurrentReconfigure(t *testing.T) {
	var s Streams
	var mu sync.Mutex
	var out bytes.Buffer
	w := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return out.Write(p)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Tracef("scan %d", j)
			}
		}()
		go func() {
			defer wg.Done()
			s.Set("[p] ", nil, nil, w)
			s.Set("[p] ", nil, nil, nil)
		}()
	}
	wg.Wait()
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
