package monitoring

import (
	"fmt"
	"log"
	"testing"
)

func captureLogf(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := captureLogf(t)

	Logf("segmented %d scans", 3)
	if len(*lines) != 1 || (*lines)[0] != "segmented 3 scans" {
		t.Errorf("lines = %q", *lines)
	}

	SetLogger(nil)
	// No-op logger must not panic.
	Logf("dropped %s", "message")
	if len(*lines) != 1 {
		t.Errorf("no-op logger recorded output: %q", *lines)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should default to log.Printf")
	}
}

func TestLineWriter(t *testing.T) {
	lines := captureLogf(t)
	lw := &LineWriter{}

	n, err := lw.Write([]byte("first line\nsecond "))
	if err != nil || n != 18 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if len(*lines) != 1 || (*lines)[0] != "first line" {
		t.Fatalf("after first write lines = %q", *lines)
	}

	lw.Write([]byte("half\n\n"))
	want := []string{"first line", "second half", ""}
	if fmt.Sprint(*lines) != fmt.Sprint(want) {
		t.Errorf("lines = %q, want %q", *lines, want)
	}
}

func TestLineWriter_AsLogOutput(t *testing.T) {
	lines := captureLogf(t)
	logger := log.New(&LineWriter{}, "[pipeline] ", 0)

	logger.Printf("run %s stored", "abc")
	if len(*lines) != 1 || (*lines)[0] != "[pipeline] run abc stored" {
		t.Errorf("lines = %q", *lines)
	}
}
