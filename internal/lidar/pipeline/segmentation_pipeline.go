package pipeline

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/scanline/internal/lidar/l1scans"
	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
	"github.com/banshee-data/scanline/internal/lidar/storage/sqlite"
	"github.com/banshee-data/scanline/internal/timeutil"
)

// DefaultBatchWorkers bounds SegmentBatch concurrency when the config
// leaves Workers unset.
const DefaultBatchWorkers = 4

// ResultSink persists segmentation runs. It is an adapter, so
// implementations live outside the layer packages
// (e.g. internal/lidar/storage/sqlite.RunStore).
type ResultSink interface {
	InsertRun(run *sqlite.ScanRun, segments []sqlite.ScanSegment) error
}

// isNilInterface checks if an interface value is nil or contains a nil pointer.
// This handles the Go interface nil pitfall where interface{} != nil but the underlying value is nil.
func isNilInterface(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// SegmentationResult is the output of one pipeline run. Segments index into
// Cloud; Features is parallel to Segments.
type SegmentationResult struct {
	RunID      string                         `json:"run_id,omitempty"`
	SensorID   string                         `json:"sensor_id,omitempty"`
	FrameID    string                         `json:"frame_id,omitempty"`
	StampNanos int64                          `json:"stamp_ns,omitempty"`
	Threshold  float64                        `json:"threshold"`
	MaxDepth   int                            `json:"max_depth,omitempty"`
	RangeCount int                            `json:"range_count"`
	Cloud      l2frames.PointCloud            `json:"cloud"`
	Segments   []l4perception.Segment         `json:"segments"`
	Features   []l4perception.SegmentFeatures `json:"features"`
	Stats      l4perception.SplitStats        `json:"stats"`
	Duration   time.Duration                  `json:"duration_ns"`
	CreatedAt  time.Time                      `json:"created_at"`
}

// ToRun converts the result into its storage rows.
func (r *SegmentationResult) ToRun() (*sqlite.ScanRun, []sqlite.ScanSegment) {
	run := &sqlite.ScanRun{
		RunID:          r.RunID,
		SensorID:       r.SensorID,
		FrameID:        r.FrameID,
		StampNanos:     r.StampNanos,
		Threshold:      r.Threshold,
		MaxDepth:       r.MaxDepth,
		RangeCount:     r.RangeCount,
		PointCount:     len(r.Cloud),
		SegmentCount:   len(r.Segments),
		Splits:         r.Stats.Splits,
		DurationMicros: r.Duration.Microseconds(),
		CreatedAtNanos: r.CreatedAt.UnixNano(),
		Points:         r.Cloud,
	}
	segments := make([]sqlite.ScanSegment, len(r.Features))
	for i, f := range r.Features {
		segments[i] = sqlite.ScanSegmentFromFeatures(r.RunID, i, f)
	}
	return run, segments
}

// ResultFromRun rebuilds a result from stored rows. Features are recomputed
// from the stored cloud.
func ResultFromRun(run *sqlite.ScanRun, rows []sqlite.ScanSegment) *SegmentationResult {
	segments := make([]l4perception.Segment, len(rows))
	for i, row := range rows {
		segments[i] = row.Segment()
	}
	return &SegmentationResult{
		RunID:      run.RunID,
		SensorID:   run.SensorID,
		FrameID:    run.FrameID,
		StampNanos: run.StampNanos,
		Threshold:  run.Threshold,
		MaxDepth:   run.MaxDepth,
		RangeCount: run.RangeCount,
		Cloud:      run.Points,
		Segments:   segments,
		Features:   l4perception.ComputeAllFeatures(run.Points, segments),
		Stats:      l4perception.SplitStats{Splits: run.Splits},
		Duration:   time.Duration(run.DurationMicros) * time.Microsecond,
		CreatedAt:  time.Unix(0, run.CreatedAtNanos),
	}
}

// SegmentationPipelineConfig holds dependencies for the segmentation pipeline.
type SegmentationPipelineConfig struct {
	// Segmenter splits projected clouds. Nil uses a RecursiveSplitter built
	// from DefaultThreshold and MaxDepth.
	Segmenter l4perception.Segmenter

	// DefaultThreshold is used by SegmentDefault and by the built-in
	// segmenter. Metres.
	DefaultThreshold float64

	// MaxDepth bounds split depth for the built-in segmenter. Zero means
	// unbounded.
	MaxDepth int

	// Workers caps SegmentBatch concurrency. Zero uses DefaultBatchWorkers.
	Workers int

	// Timeout, when > 0, bounds each scan's segmentation.
	Timeout time.Duration

	// Sink, when non-nil, receives every successful result.
	Sink ResultSink

	// Clock stamps results. Nil uses the real clock.
	Clock timeutil.Clock
}

// SegmentationPipeline turns raw scans into line segments.
type SegmentationPipeline struct {
	segmenter l4perception.Segmenter
	sink      ResultSink
	clock     timeutil.Clock
	workers   int
	timeout   time.Duration
}

// NewSegmentationPipeline builds a pipeline from cfg.
func NewSegmentationPipeline(cfg SegmentationPipelineConfig) *SegmentationPipeline {
	p := &SegmentationPipeline{
		segmenter: cfg.Segmenter,
		sink:      cfg.Sink,
		clock:     cfg.Clock,
		workers:   cfg.Workers,
		timeout:   cfg.Timeout,
	}
	if isNilInterface(p.segmenter) {
		p.segmenter = l4perception.NewRecursiveSplitter(l4perception.SplitParams{
			Threshold: cfg.DefaultThreshold,
			MaxDepth:  cfg.MaxDepth,
		})
	}
	if isNilInterface(p.sink) {
		p.sink = nil
	}
	if p.clock == nil {
		p.clock = timeutil.RealClock{}
	}
	if p.workers <= 0 {
		p.workers = DefaultBatchWorkers
	}
	return p
}

// Segmenter returns the pipeline's segmenter, for runtime tuning.
func (p *SegmentationPipeline) Segmenter() l4perception.Segmenter {
	return p.segmenter
}

// Segment validates, projects and splits scan at threshold. It either
// returns the full result or an error; there is no partial success.
func (p *SegmentationPipeline) Segment(scan *l1scans.RawScan, threshold float64) (*SegmentationResult, error) {
	return p.SegmentContext(context.Background(), scan, threshold)
}

// SegmentDefault segments scan at the segmenter's current threshold.
func (p *SegmentationPipeline) SegmentDefault(ctx context.Context, scan *l1scans.RawScan) (*SegmentationResult, error) {
	return p.SegmentContext(ctx, scan, p.segmenter.GetParams().Threshold)
}

// SegmentContext is Segment bounded by ctx and the configured timeout.
func (p *SegmentationPipeline) SegmentContext(ctx context.Context, scan *l1scans.RawScan, threshold float64) (*SegmentationResult, error) {
	if math.IsNaN(threshold) {
		return nil, fmt.Errorf("%w: threshold is NaN", l1scans.ErrInvalidInput)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := p.clock.Now()

	cloud, err := l2frames.ProjectScan(scan)
	if err != nil {
		return nil, err
	}
	if len(cloud) == 0 {
		return nil, fmt.Errorf("%w: scan of %d readings has no returns", l1scans.ErrInvalidInput, len(scan.Ranges))
	}

	params := p.segmenter.GetParams()
	params.Threshold = threshold
	segments, stats, err := p.segmenter.SplitWithParams(ctx, cloud, params)
	if err != nil {
		return nil, fmt.Errorf("split %d points: %w", len(cloud), err)
	}

	result := &SegmentationResult{
		SensorID:   scan.SensorID,
		FrameID:    scan.FrameID,
		StampNanos: scan.StampNanos,
		Threshold:  threshold,
		MaxDepth:   params.MaxDepth,
		RangeCount: len(scan.Ranges),
		Cloud:      cloud,
		Segments:   segments,
		Features:   l4perception.ComputeAllFeatures(cloud, segments),
		Stats:      stats,
		CreatedAt:  start,
	}
	result.Duration = p.clock.Since(start)

	if p.sink != nil {
		run, rows := result.ToRun()
		if err := p.sink.InsertRun(run, rows); err != nil {
			opsf("failed to persist segmentation run (sensor=%q, %d segments): %v", scan.SensorID, len(segments), err)
			return nil, fmt.Errorf("persist segmentation run: %w", err)
		}
		result.RunID = run.RunID
	}

	tracef("segmented sensor=%q: %d ranges -> %d points -> %d segments in %v",
		scan.SensorID, len(scan.Ranges), len(cloud), len(segments), result.Duration)
	return result, nil
}

// SegmentBatch segments scans concurrently, at most Workers at a time.
// Results are in input order. The first error cancels the remaining work
// and is returned, annotated with the failing scan's index.
func (p *SegmentationPipeline) SegmentBatch(ctx context.Context, scans []*l1scans.RawScan, threshold float64) ([]*SegmentationResult, error) {
	results := make([]*SegmentationResult, len(scans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, scan := range scans {
		g.Go(func() error {
			result, err := p.SegmentContext(gctx, scan, threshold)
			if err != nil {
				return fmt.Errorf("scan %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diagf("segmented batch of %d scans with %d workers", len(scans), p.workers)
	return results, nil
}
