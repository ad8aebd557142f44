// Package segindex is an R-tree over the line segments of one segmented
// scan, for box queries and nearest-segment lookups.
package segindex

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
)

const (
	dimensions  = 2
	minChildren = 4
	maxChildren = 16
	// tolerance pads each bounding box so axis-aligned segments have area.
	tolerance = 1e-9
	// candidateFactor widens the bounding-box kNN pass before exact ranking.
	candidateFactor = 4
)

// Entry is one indexed segment.
type Entry struct {
	// Index is the segment's position in the segmentation output.
	Index   int                  `json:"index"`
	Segment l4perception.Segment `json:"segment"`
	Start   l2frames.Point2D     `json:"start"`
	End     l2frames.Point2D     `json:"end"`
	bounds  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *Entry) Bounds() rtreego.Rect {
	return e.bounds
}

// Match is a nearest-segment result.
type Match struct {
	*Entry
	Distance float64 `json:"distance"`
}

// Index answers spatial queries over the segments of one cloud.
type Index struct {
	tree    *rtreego.Rtree
	entries []*Entry
	skipped int
}

// Build indexes segments over cloud. Segments with a non-finite endpoint
// cannot be placed in the tree and are skipped; Skipped reports how many.
func Build(cloud l2frames.PointCloud, segments []l4perception.Segment) (*Index, error) {
	ix := &Index{}
	objs := make([]rtreego.Spatial, 0, len(segments))

	for i, seg := range segments {
		if seg.Start < 0 || seg.End >= len(cloud) || seg.Start > seg.End {
			return nil, fmt.Errorf("segment %d [%d, %d] out of range for %d points", i, seg.Start, seg.End, len(cloud))
		}
		start, end := cloud[seg.Start], cloud[seg.End]
		if !finite(start) || !finite(end) {
			ix.skipped++
			continue
		}

		bounds, err := rtreego.NewRectFromPoints(
			rtreego.Point{math.Min(start.X, end.X) - tolerance, math.Min(start.Y, end.Y) - tolerance},
			rtreego.Point{math.Max(start.X, end.X) + tolerance, math.Max(start.Y, end.Y) + tolerance},
		)
		if err != nil {
			return nil, fmt.Errorf("segment %d bounds: %w", i, err)
		}
		e := &Entry{Index: i, Segment: seg, Start: start, End: end, bounds: bounds}
		ix.entries = append(ix.entries, e)
		objs = append(objs, e)
	}

	ix.tree = rtreego.NewTree(dimensions, minChildren, maxChildren, objs...)
	return ix, nil
}

func finite(p l2frames.Point2D) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Len returns the number of indexed segments.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Skipped returns how many segments Build could not index.
func (ix *Index) Skipped() int {
	return ix.skipped
}

// SearchBox returns the segments whose bounding boxes intersect the box, in
// segment order. Corners may be given in either order.
func (ix *Index) SearchBox(minX, minY, maxX, maxY float64) ([]*Entry, error) {
	bb, err := rtreego.NewRectFromPoints(rtreego.Point{minX, minY}, rtreego.Point{maxX, maxY})
	if err != nil {
		return nil, fmt.Errorf("search box: %w", err)
	}
	return sortByIndex(ix.tree.SearchIntersect(bb)), nil
}

// Nearest returns up to k segments closest to (x, y), nearest first, ranked
// by true point-to-segment distance. Ties keep segment order.
func (ix *Index) Nearest(x, y float64, k int) []Match {
	if k <= 0 || len(ix.entries) == 0 {
		return nil
	}
	p := l2frames.Point2D{X: x, Y: y}

	// Bounding-box distance never exceeds true distance, so the k-th true
	// distance among a bbox-kNN sample bounds the search radius.
	sample := ix.tree.NearestNeighbors(min(k*candidateFactor, len(ix.entries)), rtreego.Point{x, y})
	matches := rank(p, sample)
	radius := matches[min(k, len(matches))-1].Distance

	bb, err := rtreego.NewRectFromPoints(
		rtreego.Point{x - radius - tolerance, y - radius - tolerance},
		rtreego.Point{x + radius + tolerance, y + radius + tolerance},
	)
	if err == nil {
		matches = rank(p, ix.tree.SearchIntersect(bb))
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func rank(p l2frames.Point2D, objs []rtreego.Spatial) []Match {
	matches := make([]Match, len(objs))
	for i, obj := range objs {
		e := obj.(*Entry)
		matches[i] = Match{Entry: e, Distance: SegmentDistance(p, e.Start, e.End)}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Index < matches[j].Index
	})
	return matches
}

func sortByIndex(objs []rtreego.Spatial) []*Entry {
	out := make([]*Entry, len(objs))
	for i, obj := range objs {
		out[i] = obj.(*Entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// SegmentDistance is the distance from p to the closed segment [a, b].
func SegmentDistance(p, a, b l2frames.Point2D) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
