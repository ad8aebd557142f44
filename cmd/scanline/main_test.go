package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanline/internal/fsutil"
	"github.com/banshee-data/scanline/internal/lidar/l1scans"
	"github.com/banshee-data/scanline/internal/lidar/monitor"
	"github.com/banshee-data/scanline/internal/testutil"
)

func scanJSON(t *testing.T, scan *l1scans.RawScan) []byte {
	t.Helper()
	data, err := json.Marshal(scan)
	require.NoError(t, err)
	return data
}

// execute runs the CLI against fsys and returns stdout.
func execute(t *testing.T, fsys fsutil.FileSystem, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&app{fs: fsys})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, fsutil.NewMemoryFileSystem(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "scanline dev"), out)
}

func TestSegmentCommand_SingleScan(t *testing.T) {
	t.Chdir(t.TempDir())
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("wall.json", scanJSON(t, testutil.WallScan(1.0)))

	out, err := execute(t, fsys, "segment", "wall.json", "--threshold", "0.5", "--json", "out/result.json")
	require.NoError(t, err)
	assert.Contains(t, out, "scan 0 sensor=front: 5 ranges -> 5 points -> 2 segments")
	assert.Contains(t, out, "  [0,2] 3 points")
	assert.Contains(t, out, "  [2,4] 3 points")

	data, err := fsys.ReadFile("out/result.json")
	require.NoError(t, err)
	var results []monitor.ResultResponse
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].SegmentCount)
	assert.Len(t, results[0].Points, 5)
}

func TestSegmentCommand_RecordingWritesPerScanFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	fsys := fsutil.NewMemoryFileSystem()
	var lines []string
	for _, bump := range []float64{1.0, 0.0, 1.0} {
		lines = append(lines, string(scanJSON(t, testutil.WallScan(bump))))
	}
	fsys.WriteFile("rec.jsonl", []byte(strings.Join(lines, "\n")+"\n"))

	out, err := execute(t, fsys, "segment", "rec.jsonl", "--threshold", "0.5", "--html", "charts/seg.html", "--png", "plots/seg.png")
	require.NoError(t, err)
	assert.Contains(t, out, "scan 1 sensor=front: 5 ranges -> 5 points -> 1 segments")
	assert.Contains(t, out, "scan 2 sensor=front: 5 ranges -> 5 points -> 2 segments")

	assert.Equal(t, []string{
		filepath.Join("charts", "seg_000_front.html"),
		filepath.Join("charts", "seg_001_front.html"),
		filepath.Join("charts", "seg_002_front.html"),
	}, fsys.Files("charts"))

	png, err := fsys.ReadFile(filepath.Join("plots", "seg_001_front.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestSegmentCommand_ConfigThreshold(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tuning.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"split_threshold": 0.5}`), 0644))

	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("wall.json", scanJSON(t, testutil.WallScan(0.1)))

	out, err := execute(t, fsys, "--config", cfgPath, "segment", "wall.json")
	require.NoError(t, err)
	assert.Contains(t, out, "-> 1 segments (threshold 0.500m")

	// The built-in 5 cm default splits the same bump.
	out, err = execute(t, fsys, "segment", "wall.json")
	require.NoError(t, err)
	assert.Contains(t, out, "-> 2 segments (threshold 0.050m")
}

func TestSegmentCommand_Units(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("wall.json", scanJSON(t, testutil.WallScan(1.0)))

	out, err := execute(t, fsys, "segment", "wall.json", "--threshold", "0.5", "--units", "cm")
	require.NoError(t, err)
	assert.Contains(t, out, "(threshold 50.00cm, 1 splits)")
	// Point 1 sits 0.1897 m off the chord from point 0 to the bump.
	assert.Contains(t, out, "max_residual=18.97cm")
}

func TestSegmentCommand_Errors(t *testing.T) {
	t.Chdir(t.TempDir())
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("wall.json", scanJSON(t, testutil.WallScan(1.0)))
	fsys.WriteFile("empty.json", []byte(`{"ranges":[],"angle_min":0,"angle_increment":0.1}`))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"segment", "nope.json"}, "read scan file"},
		{"empty scan", []string{"segment", "empty.json"}, "invalid input"},
		{"nan threshold", []string{"segment", "wall.json", "--threshold", "NaN"}, "must be finite"},
		{"output outside cwd", []string{"segment", "wall.json", "--json", "/etc/scanline.json"}, "allowed directories"},
		{"server with db", []string{"segment", "wall.json", "--server", "http://x", "--db", "a.db"}, "cannot be combined"},
		{"bad log level", []string{"--log-level", "loud", "segment", "wall.json"}, "unknown log level"},
		{"no file", []string{"segment"}, "accepts 1 arg"},
		{"bad units", []string{"segment", "wall.json", "--units", "mph"}, "invalid --units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, fsys, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSegmentAndRunsWithDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("wall.json", scanJSON(t, testutil.WallScan(1.0)))

	out, err := execute(t, fsys, "segment", "wall.json", "--threshold", "0.5", "--db", dbPath)
	require.NoError(t, err)
	i := strings.Index(out, "run=")
	require.Positive(t, i, out)
	runID := strings.Fields(out[i+len("run="):])[0]

	out, err = execute(t, fsys, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "front")

	out, err = execute(t, fsys, "runs", "--db", dbPath, "--delete", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted run "+runID)

	out, err = execute(t, fsys, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "no runs\n", out)

	_, err = execute(t, fsys, "runs", "--db", dbPath, "--limit", "0")
	assert.ErrorContains(t, err, "--limit must be positive")
}

func TestSegmentAndRunsAgainstServer(t *testing.T) {
	a := &app{fs: fsutil.NewMemoryFileSystem()}
	require.NoError(t, a.setup(io.Discard))
	ws, closeDB, err := a.newWebServer(":0", filepath.Join(t.TempDir(), "served.db"), 0)
	require.NoError(t, err)
	defer closeDB()
	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()

	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("wall.json", scanJSON(t, testutil.WallScan(1.0)))

	out, err := execute(t, fsys, "segment", "wall.json", "--threshold", "0.5", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "2 segments")
	assert.Contains(t, out, "run=")

	out, err = execute(t, fsys, "runs", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "front")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	fsys := fsutil.NewMemoryFileSystem()

	out, err := execute(t, fsys, "migrate", "status", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0 (latest 3")
	assert.Contains(t, out, "3 migration(s) pending")

	out, err = execute(t, fsys, "migrate", "up", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "All migrations applied")
	assert.Contains(t, out, "Current version: 3 (latest 3, dirty: false)")

	out, err = execute(t, fsys, "migrate", "down", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 2")

	out, err = execute(t, fsys, "migrate", "force", "3", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Migration version forced to 3")

	_, err = execute(t, fsys, "migrate", "force", "--db", dbPath)
	assert.ErrorContains(t, err, "needs a version")

	_, err = execute(t, fsys, "migrate", "up", "3", "--db", dbPath)
	assert.ErrorContains(t, err, "takes no version")

	_, err = execute(t, fsys, "migrate", "sideways", "--db", dbPath)
	assert.ErrorContains(t, err, "unknown migrate action")
}
