package l1scans

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/banshee-data/scanline/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recording = `{"ranges":[1,2,3],"angle_min":0,"angle_increment":0.1,"stamp_ns":1}

{"ranges":[4,null],"angle_min":-1,"angle_increment":0.5,"stamp_ns":2}
`

func TestJSONLReader_StreamsAndSkipsBlankLines(t *testing.T) {
	jr := NewJSONLReader(strings.NewReader(recording))
	ctx := context.Background()

	first, err := jr.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.StampNanos)

	second, err := jr.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.StampNanos)
	assert.Equal(t, 1, second.ValidReturns())

	_, err = jr.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestJSONLReader_ReportsLineNumber(t *testing.T) {
	jr := NewJSONLReader(strings.NewReader("{\"ranges\":[1],\"angle_increment\":0.1}\n{\"ranges\":[]}\n"))

	_, err := jr.Next(context.Background())
	require.NoError(t, err)

	_, err = jr.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDecode_MalformedIsInvalidInput(t *testing.T) {
	for _, body := range []string{`{"ranges":[1,`, `not json`, `{"ranges":"wide"}`} {
		_, err := Decode(strings.NewReader(body))
		require.Error(t, err, body)
		assert.ErrorIs(t, err, ErrInvalidInput, body)
		assert.Contains(t, err.Error(), "decode scan", body)
	}

	_, err := Decode(strings.NewReader(`not json`))
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)

	_, err = Decode(strings.NewReader(`{"ranges":[1,`))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestJSONLReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJSONLReader(strings.NewReader(recording)).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/data/one.json", []byte(`{"ranges":[1,"inf",2],"angle_min":0,"angle_increment":1.57}`))
	mfs.WriteFile("/data/run.jsonl", []byte(recording))
	mfs.WriteFile("/data/bad.jsonl", []byte("not json\n"))
	mfs.WriteFile("/data/scan.csv", []byte("1,2,3"))

	ctx := context.Background()

	scans, err := LoadFile(ctx, mfs, "/data/one.json")
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, 2, scans[0].ValidReturns())

	scans, err = LoadFile(ctx, mfs, "/data/run.jsonl")
	require.NoError(t, err)
	assert.Len(t, scans, 2)

	_, err = LoadFile(ctx, mfs, "/data/bad.jsonl")
	assert.Error(t, err)

	_, err = LoadFile(ctx, mfs, "/data/scan.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")

	_, err = LoadFile(ctx, mfs, "/data/missing.json")
	assert.Error(t, err)
}
