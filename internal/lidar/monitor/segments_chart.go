package monitor

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
)

// DefaultAssetsHost serves the echarts JavaScript when ChartOptions leaves
// AssetsHost empty.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// segmentPalette cycles through segment line colours.
var segmentPalette = []string{"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe"}

// ChartOptions controls RenderSegmentsChart.
type ChartOptions struct {
	Title      string
	AssetsHost string
	Theme      string
	Width      string
	Height     string
	// ShowPoints draws the projected cloud under the segments.
	ShowPoints bool
}

// DefaultChartOptions returns the options used by the web server.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		Title:      "Scan Segments",
		AssetsHost: DefaultAssetsHost,
		Theme:      "dark",
		Width:      "900px",
		Height:     "900px",
		ShowPoints: true,
	}
}

// RenderSegmentsChart writes an HTML page with the result's cloud as a
// scatter series and one line series per segment chord. Non-finite points
// are left out of the chart since they cannot be encoded.
func RenderSegmentsChart(w io.Writer, result *pipeline.SegmentationResult, o ChartOptions) error {
	if result == nil {
		return fmt.Errorf("nil segmentation result")
	}
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}
	if o.Title == "" {
		o.Title = "Scan Segments"
	}

	pad := chartExtent(result.Cloud)

	points := make([]opts.ScatterData, 0, len(result.Cloud))
	if o.ShowPoints {
		for _, p := range result.Cloud {
			if !finitePoint(p) {
				continue
			}
			points = append(points, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
		}
	}

	subtitle := fmt.Sprintf("points=%d segments=%d threshold=%.3fm", len(result.Cloud), len(result.Segments), result.Threshold)
	if result.RunID != "" {
		subtitle = fmt.Sprintf("run=%s %s", result.RunID, subtitle)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Theme: o.Theme, Width: o.Width, Height: o.Height, AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("points", points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	for i, seg := range result.Segments {
		if seg.Start < 0 || seg.End >= len(result.Cloud) || seg.Start > seg.End {
			return fmt.Errorf("segment %d [%d,%d] out of range for %d points", i, seg.Start, seg.End, len(result.Cloud))
		}
		a, b := result.Cloud[seg.Start], result.Cloud[seg.End]
		if !finitePoint(a) || !finitePoint(b) {
			continue
		}
		line := charts.NewLine()
		line.AddSeries(fmt.Sprintf("segment %d [%d,%d]", i, seg.Start, seg.End),
			[]opts.LineData{
				{Value: []interface{}{a.X, a.Y}},
				{Value: []interface{}{b.X, b.Y}},
			},
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2, Color: segmentPalette[i%len(segmentPalette)]}),
		)
		scatter.Overlap(line)
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render segments chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// chartExtent returns a symmetric axis bound covering every finite point.
func chartExtent(cloud l2frames.PointCloud) float64 {
	maxAbs := 0.0
	for _, p := range cloud {
		if !finitePoint(p) {
			continue
		}
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	if maxAbs == 0 {
		return 1
	}
	return maxAbs * 1.05
}

func finitePoint(p l2frames.Point2D) bool {
	return isFinite(p.X) && isFinite(p.Y)
}
