package monitor

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
)

func cornerResult() *pipeline.SegmentationResult {
	cloud := l2frames.PointCloud{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}}
	segments := []l4perception.Segment{{Start: 0, End: 2}, {Start: 2, End: 4}}
	return &pipeline.SegmentationResult{
		RunID:     "run-chart",
		Threshold: 0.1,
		Cloud:     cloud,
		Segments:  segments,
		Features:  l4perception.ComputeAllFeatures(cloud, segments),
	}
}

func TestRenderSegmentsChart(t *testing.T) {
	var buf bytes.Buffer
	o := DefaultChartOptions()
	o.AssetsHost = "http://assets.local/"
	require.NoError(t, RenderSegmentsChart(&buf, cornerResult(), o))

	html := buf.String()
	assert.Contains(t, html, "http://assets.local/")
	assert.Contains(t, html, "run-chart")
	assert.Contains(t, html, "segment 0")
	assert.Contains(t, html, "segment 1")
}

func TestRenderSegmentsChart_Defaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSegmentsChart(&buf, cornerResult(), ChartOptions{}))
	assert.Contains(t, buf.String(), DefaultAssetsHost)
	assert.Contains(t, buf.String(), "Scan Segments")
}

func TestRenderSegmentsChart_SkipsNonFinite(t *testing.T) {
	r := cornerResult()
	r.Cloud[4] = l2frames.Point2D{X: math.NaN(), Y: math.Inf(1)}

	var buf bytes.Buffer
	require.NoError(t, RenderSegmentsChart(&buf, r, DefaultChartOptions()))
	assert.Contains(t, buf.String(), "segment 0")
	assert.NotContains(t, buf.String(), "segment 1")
}

func TestRenderSegmentsChart_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderSegmentsChart(&buf, nil, DefaultChartOptions()))

	r := cornerResult()
	r.Segments = append(r.Segments, l4perception.Segment{Start: 4, End: 9})
	assert.Error(t, RenderSegmentsChart(&buf, r, DefaultChartOptions()))
}

func TestChartExtent(t *testing.T) {
	assert.Equal(t, 1.0, chartExtent(nil))
	assert.InDelta(t, 2.1, chartExtent(l2frames.PointCloud{{X: -2, Y: 1}, {X: math.NaN(), Y: 50}}), 1e-12)
}

func TestSegmentPlotter_WritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "run.png")
	require.NoError(t, NewSegmentPlotter().WritePNG(path, cornerResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestSegmentPlotter_WriteTo(t *testing.T) {
	r := cornerResult()
	r.Cloud = append(r.Cloud, l2frames.Point2D{X: math.NaN(), Y: 0})

	var buf bytes.Buffer
	require.NoError(t, NewSegmentPlotter().WriteTo(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestSegmentPlotter_Errors(t *testing.T) {
	sp := NewSegmentPlotter()
	_, err := sp.Plot(nil)
	assert.Error(t, err)

	r := cornerResult()
	r.Segments = []l4perception.Segment{{Start: 3, End: 1}}
	_, err = sp.Plot(r)
	assert.Error(t, err)
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))

	colors := generateColors(6)
	require.Len(t, colors, 6)
	seen := make(map[[3]uint32]bool)
	for _, c := range colors {
		r, g, b, a := c.RGBA()
		assert.Equal(t, uint32(0xffff), a)
		seen[[3]uint32{r, g, b}] = true
	}
	assert.Len(t, seen, 6)
}
