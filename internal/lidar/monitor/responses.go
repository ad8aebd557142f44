package monitor

import (
	"math"
	"time"

	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
	"github.com/banshee-data/scanline/internal/lidar/pipeline"
	"github.com/banshee-data/scanline/internal/lidar/storage/sqlite"
)

// JSON cannot carry NaN or Inf, and NaN ranges project to NaN points, so
// response values are pointers that encode as null when not finite.

// PointResponse is a point whose non-finite coordinates encode as null.
type PointResponse struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// SegmentResponse is one segment with its features.
type SegmentResponse struct {
	Index       int           `json:"index"`
	Start       int           `json:"start"`
	End         int           `json:"end"`
	PointCount  int           `json:"point_count"`
	StartPoint  PointResponse `json:"start_point"`
	EndPoint    PointResponse `json:"end_point"`
	Length      *float64      `json:"length_m"`
	Heading     *float64      `json:"heading_rad"`
	MaxResidual *float64      `json:"max_residual"`
	RMSResidual *float64      `json:"rms_residual"`
}

// ResultResponse is the body of the segment and run endpoints.
type ResultResponse struct {
	RunID          string            `json:"run_id,omitempty"`
	SensorID       string            `json:"sensor_id,omitempty"`
	FrameID        string            `json:"frame_id,omitempty"`
	StampNanos     int64             `json:"stamp_ns,omitempty"`
	Threshold      float64           `json:"threshold"`
	MaxDepth       int               `json:"max_depth,omitempty"`
	RangeCount     int               `json:"range_count"`
	PointCount     int               `json:"point_count"`
	SegmentCount   int               `json:"segment_count"`
	Splits         int               `json:"splits"`
	EndpointPivots int               `json:"endpoint_pivots,omitempty"`
	DepthLimited   int               `json:"depth_limited,omitempty"`
	DurationMicros int64             `json:"duration_us"`
	CreatedAt      time.Time         `json:"created_at"`
	Points         []PointResponse   `json:"points,omitempty"`
	Segments       []SegmentResponse `json:"segments"`
}

// NearestMatch is one segment returned by the nearest endpoint.
type NearestMatch struct {
	Index    int     `json:"index"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Distance float64 `json:"distance_m"`
}

// NearestResponse is the body of the nearest endpoint.
type NearestResponse struct {
	RunID   string         `json:"run_id"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	K       int            `json:"k"`
	Indexed int            `json:"indexed"`
	Matches []NearestMatch `json:"matches"`
}

// RunListResponse is the body of the run listing endpoint.
type RunListResponse struct {
	Runs  []*sqlite.ScanRun `json:"runs"`
	Count int               `json:"count"`
}

// ParamsResponse is the body of /api/lidar/params. Keys match the tuning
// config so a GET response can be posted back unchanged.
type ParamsResponse struct {
	SplitThreshold float64 `json:"split_threshold"`
	MaxSplitDepth  int     `json:"max_split_depth"`
}

// NewParamsResponse converts splitter params.
func NewParamsResponse(p l4perception.SplitParams) ParamsResponse {
	return ParamsResponse{SplitThreshold: p.Threshold, MaxSplitDepth: p.MaxDepth}
}

// NewResultResponse converts r for JSON. withPoints includes the cloud.
func NewResultResponse(r *pipeline.SegmentationResult, withPoints bool) ResultResponse {
	resp := ResultResponse{
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
		EndpointPivots: r.Stats.EndpointPivots,
		DepthLimited:   r.Stats.DepthLimited,
		DurationMicros: r.Duration.Microseconds(),
		CreatedAt:      r.CreatedAt,
		Segments:       make([]SegmentResponse, len(r.Features)),
	}
	if withPoints {
		resp.Points = make([]PointResponse, len(r.Cloud))
		for i, p := range r.Cloud {
			resp.Points[i] = newPointResponse(p)
		}
	}
	for i, f := range r.Features {
		resp.Segments[i] = SegmentResponse{
			Index:       i,
			Start:       f.Segment.Start,
			End:         f.Segment.End,
			PointCount:  f.PointCount,
			StartPoint:  newPointResponse(f.StartPoint),
			EndPoint:    newPointResponse(f.EndPoint),
			Length:      finiteOrNil(f.Length),
			Heading:     finiteOrNil(f.HeadingRad),
			MaxResidual: finiteOrNil(f.MaxResidual),
			RMSResidual: finiteOrNil(f.RMSResidual),
		}
	}
	return resp
}

func newPointResponse(p l2frames.Point2D) PointResponse {
	return PointResponse{X: finiteOrNil(p.X), Y: finiteOrNil(p.Y)}
}

func finiteOrNil(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
