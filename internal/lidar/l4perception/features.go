package l4perception

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SegmentFeatures summarises one emitted segment.
type SegmentFeatures struct {
	Segment     Segment `json:"segment"`
	PointCount  int     `json:"point_count"`
	StartPoint  Point2D `json:"start_point"`
	EndPoint    Point2D `json:"end_point"`
	Length      float64 `json:"length"`
	HeadingRad  float64 `json:"heading_rad"`
	MaxResidual float64 `json:"max_residual"`
	RMSResidual float64 `json:"rms_residual"`
}

// ComputeFeatures measures seg against cloud. Residuals are taken against
// the line through the segment's endpoints, the same line the splitter
// tested.
func ComputeFeatures(cloud PointCloud, seg Segment) SegmentFeatures {
	pts := seg.Points(cloud)
	first, last := pts[0], pts[len(pts)-1]

	f := SegmentFeatures{
		Segment:    seg,
		PointCount: len(pts),
		StartPoint: first,
		EndPoint:   last,
		Length:     math.Hypot(last.X-first.X, last.Y-first.Y),
		HeadingRad: math.Atan2(last.Y-first.Y, last.X-first.X),
	}
	if len(pts) < 2 {
		return f
	}

	residuals := make([]float64, len(pts))
	squared := make([]float64, len(pts))
	for i, p := range pts {
		residuals[i] = PerpendicularDistance(p, first, last)
		squared[i] = residuals[i] * residuals[i]
	}
	f.MaxResidual = floats.Max(residuals)
	f.RMSResidual = math.Sqrt(stat.Mean(squared, nil))
	return f
}

// ComputeAllFeatures returns features for every segment, in order.
func ComputeAllFeatures(cloud PointCloud, segments []Segment) []SegmentFeatures {
	out := make([]SegmentFeatures, len(segments))
	for i, seg := range segments {
		out[i] = ComputeFeatures(cloud, seg)
	}
	return out
}
