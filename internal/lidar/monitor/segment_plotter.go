package monitor

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/scanline/internal/lidar/pipeline"
)

// maxLegendSegments caps legend entries; larger runs are still drawn.
const maxLegendSegments = 12

// SegmentPlotter renders segmentation results to static images.
type SegmentPlotter struct {
	Width  vg.Length
	Height vg.Length
	Title  string
}

// NewSegmentPlotter returns a plotter producing square 8 inch images.
func NewSegmentPlotter() *SegmentPlotter {
	return &SegmentPlotter{
		Width:  8 * vg.Inch,
		Height: 8 * vg.Inch,
		Title:  "Scan Segments",
	}
}

// Plot builds the plot for result: the cloud as a scatter and each segment
// chord as a coloured line.
func (sp *SegmentPlotter) Plot(result *pipeline.SegmentationResult) (*plot.Plot, error) {
	if result == nil {
		return nil, fmt.Errorf("nil segmentation result")
	}

	p := plot.New()
	p.Title.Text = sp.Title
	if result.RunID != "" {
		p.Title.Text = fmt.Sprintf("%s (%s)", sp.Title, result.RunID)
	}
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(result.Cloud))
	for _, pt := range result.Cloud {
		if !finitePoint(pt) {
			continue
		}
		pts = append(pts, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(pts) > 0 {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create point scatter: %w", err)
		}
		scatter.GlyphStyle.Color = color.Gray{Y: 96}
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
	}

	colors := generateColors(len(result.Segments))
	for i, seg := range result.Segments {
		if seg.Start < 0 || seg.End >= len(result.Cloud) || seg.Start > seg.End {
			return nil, fmt.Errorf("segment %d [%d,%d] out of range for %d points", i, seg.Start, seg.End, len(result.Cloud))
		}
		a, b := result.Cloud[seg.Start], result.Cloud[seg.End]
		if !finitePoint(a) || !finitePoint(b) {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{{X: a.X, Y: a.Y}, {X: b.X, Y: b.Y}})
		if err != nil {
			return nil, fmt.Errorf("failed to create line for segment %d: %w", i, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(2)
		p.Add(line)
		if i < maxLegendSegments {
			p.Legend.Add(fmt.Sprintf("[%d,%d]", seg.Start, seg.End), line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -vg.Points(5)
	p.Legend.YOffs = -vg.Points(5)

	return p, nil
}

// WritePNG saves the result's plot to path, creating parent directories.
func (sp *SegmentPlotter) WritePNG(path string, result *pipeline.SegmentationResult) error {
	p, err := sp.Plot(result)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := p.Save(sp.Width, sp.Height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// WriteTo encodes the result's plot as PNG onto w.
func (sp *SegmentPlotter) WriteTo(w io.Writer, result *pipeline.SegmentationResult) error {
	p, err := sp.Plot(result)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(sp.Width, sp.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// generateColors creates n distinct colors using HSL color space.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
