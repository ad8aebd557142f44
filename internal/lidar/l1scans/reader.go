package l1scans

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/scanline/internal/fsutil"
)

// maxLineBytes bounds a single JSON Lines record. A 2048-beam scan with
// full-precision ranges stays well under this.
const maxLineBytes = 4 * 1024 * 1024

// Decode reads a single JSON scan from r and validates it.
func Decode(r io.Reader) (*RawScan, error) {
	var scan RawScan
	dec := json.NewDecoder(r)
	if err := dec.Decode(&scan); err != nil {
		return nil, fmt.Errorf("%w: decode scan: %w", ErrInvalidInput, err)
	}
	if err := scan.Validate(); err != nil {
		return nil, err
	}
	return &scan, nil
}

// JSONLReader streams scans from a JSON Lines recording, one scan per line.
// Blank lines are skipped.
type JSONLReader struct {
	sc   *bufio.Scanner
	line int
}

// NewJSONLReader wraps r.
func NewJSONLReader(r io.Reader) *JSONLReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &JSONLReader{sc: sc}
}

// Next returns the next scan, or io.EOF once the recording is exhausted.
// Malformed lines are returned as errors carrying the line number; the reader
// stays usable so callers may skip them.
func (jr *JSONLReader) Next(ctx context.Context) (*RawScan, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !jr.sc.Scan() {
			if err := jr.sc.Err(); err != nil {
				return nil, fmt.Errorf("read scan line %d: %w", jr.line+1, err)
			}
			return nil, io.EOF
		}
		jr.line++
		raw := bytes.TrimSpace(jr.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		scan, err := Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", jr.line, err)
		}
		if logs.TraceEnabled() {
			tracef("line %d: %d ranges, %d returns", jr.line, len(scan.Ranges), scan.ValidReturns())
		}
		return scan, nil
	}
}

// LoadFile reads every scan in a .json (single scan) or .jsonl recording.
func LoadFile(ctx context.Context, fsys fsutil.FileSystem, path string) ([]*RawScan, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scan file: %w", err)
		}
		scan, err := Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []*RawScan{scan}, nil
	case ".jsonl", ".ndjson":
		f, err := fsys.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open scan recording: %w", err)
		}
		defer f.Close()

		var scans []*RawScan
		jr := NewJSONLReader(f)
		for {
			scan, err := jr.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				opsf("%s: %v", path, err)
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			scans = append(scans, scan)
		}
		diagf("loaded %d scans from %s", len(scans), path)
		return scans, nil
	default:
		return nil, fmt.Errorf("unsupported scan file extension %q (want .json or .jsonl)", ext)
	}
}
