package l4perception

import (
	"context"

	"gonum.org/v1/gonum/floats"
)

// ctxCheckInterval is how many work items are processed between context
// checks in SplitContext.
const ctxCheckInterval = 64

// Segment is an inclusive index range [Start, End] over a PointCloud whose
// points lie within the split threshold of the line joining its first and
// last point. Adjacent segments share their boundary (pivot) point.
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of points the segment covers.
func (s Segment) Len() int { return s.End - s.Start + 1 }

// Points returns the segment's view of cloud. The slice aliases cloud.
func (s Segment) Points(cloud PointCloud) PointCloud {
	return cloud[s.Start : s.End+1]
}

// SplitParams configures the recursive splitter.
type SplitParams struct {
	// Threshold is the residual (metres) at or above which a run is split.
	// Values <= 0 split every run down to single points.
	Threshold float64 `json:"threshold"`
	// MaxDepth bounds the split depth. A run reached at MaxDepth is accepted
	// without testing. Zero means unbounded.
	MaxDepth int `json:"max_depth,omitempty"`
}

// SplitStats describes one segmentation run.
type SplitStats struct {
	Splits         int `json:"splits"`
	MaxDepth       int `json:"max_depth"`
	EndpointPivots int `json:"endpoint_pivots,omitempty"`
	DepthLimited   int `json:"depth_limited,omitempty"`
}

// Split partitions points into straight-line segments. See SplitContext.
func Split(points PointCloud, threshold float64) []Segment {
	segments, _, _ := splitRanges(context.Background(), points, SplitParams{Threshold: threshold})
	return segments
}

type splitItem struct {
	start, end int
	depth      int
}

// splitRanges is the split engine. For each run it measures every point's
// residual against the line through the run's endpoints, takes the first
// maximum as pivot, and either accepts the run (max < threshold) or splits it
// into [start, pivot] and [pivot, end]. Runs are kept on a LIFO work list,
// right half pushed first, so output order matches a left-then-right
// recursion.
func splitRanges(ctx context.Context, points PointCloud, params SplitParams) ([]Segment, SplitStats, error) {
	var stats SplitStats
	if len(points) == 0 {
		return nil, stats, nil
	}

	residuals := make([]float64, len(points))
	stack := []splitItem{{start: 0, end: len(points) - 1}}
	var segments []Segment

	for iter := 0; len(stack) > 0; iter++ {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.depth > stats.MaxDepth {
			stats.MaxDepth = item.depth
		}

		n := item.end - item.start + 1
		if n < 2 {
			segments = append(segments, Segment{Start: item.start, End: item.end})
			continue
		}
		if params.MaxDepth > 0 && item.depth >= params.MaxDepth {
			stats.DepthLimited++
			segments = append(segments, Segment{Start: item.start, End: item.end})
			continue
		}

		first, last := points[item.start], points[item.end]
		d := residuals[:n]
		for i := range d {
			d[i] = PerpendicularDistance(points[item.start+i], first, last)
		}
		// floats.MaxIdx returns the first index on ties.
		pivot := floats.MaxIdx(d)
		if d[pivot] < params.Threshold {
			segments = append(segments, Segment{Start: item.start, End: item.end})
			continue
		}

		// A pivot on an endpoint would hand one half the whole run back.
		// That only happens when no interior point beats the endpoints
		// (threshold <= 0, or NaN residuals), so fall back to the midpoint,
		// or to two single points for a two-point run.
		if pivot == 0 || pivot == n-1 {
			stats.EndpointPivots++
			if n == 2 {
				stats.Splits++
				stack = append(stack,
					splitItem{start: item.end, end: item.end, depth: item.depth + 1},
					splitItem{start: item.start, end: item.start, depth: item.depth + 1},
				)
				continue
			}
			pivot = n / 2
		}

		stats.Splits++
		mid := item.start + pivot
		stack = append(stack,
			splitItem{start: mid, end: item.end, depth: item.depth + 1},
			splitItem{start: item.start, end: mid, depth: item.depth + 1},
		)
	}

	return segments, stats, nil
}

// MaxResidual returns the largest residual of seg's points against the line
// through its own endpoints, and the index (into cloud) of the first point
// attaining it. Single-point segments report zero.
func MaxResidual(cloud PointCloud, seg Segment) (float64, int) {
	pts := seg.Points(cloud)
	if len(pts) < 2 {
		return 0, seg.Start
	}
	d := make([]float64, len(pts))
	for i, p := range pts {
		d[i] = PerpendicularDistance(p, pts[0], pts[len(pts)-1])
	}
	idx := floats.MaxIdx(d)
	return d[idx], seg.Start + idx
}
