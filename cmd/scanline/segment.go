package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scanline/internal/db"
	"github.com/banshee-data/scanline/internal/lidar/l1scans"
	"github.com/banshee-data/scanline/internal/lidar/monitor"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
	"github.com/banshee-data/scanline/internal/lidar/storage/sqlite"
	"github.com/banshee-data/scanline/internal/security"
	"github.com/banshee-data/scanline/internal/units"
)

type segmentOptions struct {
	threshold float64
	dbPath    string
	server    string
	pngPath   string
	htmlPath  string
	jsonPath  string
	units     string
}

func newSegmentCmd(a *app) *cobra.Command {
	var o segmentOptions
	cmd := &cobra.Command{
		Use:   "segment <scan-file>",
		Short: "Segment the scans in a JSON or JSON Lines file",
		Long: `Segment every scan in a recording. A .json file holds one scan; a .jsonl
or .ndjson file holds one scan per line. Results are printed, and
optionally stored (--db), sent to a running server (--server), or written as
a PNG plot, an HTML chart or a JSON document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold := a.cfg.GetSplitThreshold()
			if cmd.Flags().Changed("threshold") {
				threshold = o.threshold
			}
			if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
				return fmt.Errorf("--threshold must be finite, got %v", threshold)
			}
			if !units.IsValid(o.units) {
				return fmt.Errorf("invalid --units %q (valid: %s)", o.units, units.GetValidUnitsString())
			}
			if o.server != "" && (o.dbPath != "" || o.pngPath != "" || o.htmlPath != "") {
				return fmt.Errorf("--server cannot be combined with --db, --png or --html")
			}
			for _, p := range []string{o.pngPath, o.htmlPath, o.jsonPath} {
				if p == "" {
					continue
				}
				if err := security.ValidateOutputPath(p); err != nil {
					return err
				}
			}
			return a.runSegment(cmd, args[0], threshold, o)
		},
	}

	cmd.Flags().Float64Var(&o.threshold, "threshold", 0, "Split threshold in metres (overrides the config)")
	cmd.Flags().StringVar(&o.dbPath, "db", "", "Store runs in this SQLite database")
	cmd.Flags().StringVar(&o.server, "server", "", "Segment on a running scanline server at this base URL")
	cmd.Flags().StringVar(&o.pngPath, "png", "", "Write a PNG plot (one file per scan)")
	cmd.Flags().StringVar(&o.htmlPath, "html", "", "Write an HTML chart (one file per scan)")
	cmd.Flags().StringVar(&o.jsonPath, "json", "", "Write all results as a JSON array")
	cmd.Flags().StringVar(&o.units, "units", units.M, "Length units for printed output ("+units.GetValidUnitsString()+")")
	return cmd
}

func (a *app) runSegment(cmd *cobra.Command, path string, threshold float64, o segmentOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	scans, err := l1scans.LoadFile(ctx, a.fs, path)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		return fmt.Errorf("%s: %w: no scans", path, l1scans.ErrInvalidInput)
	}

	if o.server != "" {
		return a.segmentRemote(cmd, scans, threshold, o)
	}

	cfg := pipeline.SegmentationPipelineConfig{
		DefaultThreshold: threshold,
		MaxDepth:         a.cfg.GetMaxSplitDepth(),
		Workers:          a.cfg.GetBatchWorkers(),
		Timeout:          a.cfg.GetSplitTimeout(),
	}
	if o.dbPath != "" {
		database, err := db.NewDB(o.dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		cfg.Sink = sqlite.NewRunStore(database.DB)
	}
	p := pipeline.NewSegmentationPipeline(cfg)

	results, err := p.SegmentBatch(ctx, scans, threshold)
	if err != nil {
		return err
	}

	responses := make([]monitor.ResultResponse, len(results))
	for i, r := range results {
		responses[i] = monitor.NewResultResponse(r, true)
		printResult(out, i, &responses[i], o.units)
	}

	chartOpts := monitor.DefaultChartOptions()
	chartOpts.AssetsHost = a.cfg.GetChartAssetsHost()
	plotter := monitor.NewSegmentPlotter()
	for i, r := range results {
		if o.pngPath != "" {
			if err := a.writeFile(outputPath(o.pngPath, i, len(results), r), func(w io.Writer) error {
				return plotter.WriteTo(w, r)
			}); err != nil {
				return err
			}
		}
		if o.htmlPath != "" {
			if err := a.writeFile(outputPath(o.htmlPath, i, len(results), r), func(w io.Writer) error {
				return monitor.RenderSegmentsChart(w, r, chartOpts)
			}); err != nil {
				return err
			}
		}
	}
	if o.jsonPath != "" {
		return a.writeJSON(o.jsonPath, responses)
	}
	return nil
}

func (a *app) segmentRemote(cmd *cobra.Command, scans []*l1scans.RawScan, threshold float64, o segmentOptions) error {
	client := monitor.NewClient(nil, o.server)
	responses := make([]monitor.ResultResponse, 0, len(scans))
	for i, scan := range scans {
		resp, err := client.Segment(cmd.Context(), scan, &threshold)
		if err != nil {
			return fmt.Errorf("scan %d: %w", i, err)
		}
		printResult(cmd.OutOrStdout(), i, resp, o.units)
		responses = append(responses, *resp)
	}
	if o.jsonPath != "" {
		return a.writeJSON(o.jsonPath, responses)
	}
	return nil
}

// printResult writes a summary line and one line per segment. Lengths are
// shown in unit; JSON output stays in metres.
func printResult(w io.Writer, i int, r *monitor.ResultResponse, unit string) {
	label := fmt.Sprintf("scan %d", i)
	if r.SensorID != "" {
		label += " sensor=" + r.SensorID
	}
	if r.FrameID != "" {
		label += " frame=" + r.FrameID
	}
	fmt.Fprintf(w, "%s: %d ranges -> %d points -> %d segments (threshold %s, %d splits)",
		label, r.RangeCount, r.PointCount, r.SegmentCount, formatLength(&r.Threshold, unit), r.Splits)
	if r.RunID != "" {
		fmt.Fprintf(w, " run=%s", r.RunID)
	}
	fmt.Fprintln(w)
	for _, s := range r.Segments {
		fmt.Fprintf(w, "  [%d,%d] %d points length=%s heading=%s max_residual=%s\n",
			s.Start, s.End, s.PointCount, formatLength(s.Length, unit), formatHeading(s.Heading), formatLength(s.MaxResidual, unit))
	}
}

func formatLength(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(units.ConvertLength(*v, unit), 'f', units.Decimals(unit), 64) + unit
}

func formatHeading(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3frad", *v)
}

// outputPath derives the per-scan file name. A single scan writes to path
// unchanged; batches insert the scan index and a sanitised sensor or frame
// ID before the extension.
func outputPath(path string, i, n int, r *pipeline.SegmentationResult) string {
	if n == 1 {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	id := r.FrameID
	if id == "" {
		id = r.SensorID
	}
	if id == "" {
		return fmt.Sprintf("%s_%03d%s", stem, i, ext)
	}
	return fmt.Sprintf("%s_%03d_%s%s", stem, i, security.SanitizeFilename(id), ext)
}

func (a *app) writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (a *app) writeJSON(path string, v interface{}) error {
	return a.writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
