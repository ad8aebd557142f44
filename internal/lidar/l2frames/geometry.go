package l2frames

import (
	"fmt"
	"math"

	"github.com/banshee-data/scanline/internal/lidar/l1scans"
)

// Point2D is a Cartesian point in the sensor frame (metres).
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointCloud is the ordered projection of a scan's valid returns. Order
// follows the scan's angular order and encodes adjacency; segmentation only
// ever works on contiguous sub-ranges of it.
type PointCloud []Point2D

// PolarToCartesian converts a range and bearing (radians, counter-clockwise
// from +X) into sensor-frame coordinates.
func PolarToCartesian(r, angle float64) (x, y float64) {
	return r * math.Cos(angle), r * math.Sin(angle)
}

// Project converts one scan's ranges into a point cloud. Reading i lies at
// angleMin + i*angleIncrement. Infinite readings (no return) are dropped
// without a gap marker, so neighbouring points in the output may straddle an
// angular gap. NaN readings are projected as-is.
func Project(ranges []float64, angleMin, angleIncrement float64) (PointCloud, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: scan has no range readings", l1scans.ErrInvalidInput)
	}
	if math.IsNaN(angleMin) || math.IsInf(angleMin, 0) || math.IsNaN(angleIncrement) || math.IsInf(angleIncrement, 0) {
		return nil, fmt.Errorf("%w: angular metadata not finite (angle_min=%v, angle_increment=%v)",
			l1scans.ErrInvalidInput, angleMin, angleIncrement)
	}
	if last := angleMin + float64(len(ranges)-1)*angleIncrement; math.IsInf(last, 0) {
		return nil, fmt.Errorf("%w: bearing of reading %d overflows (angle_min=%v, angle_increment=%v)",
			l1scans.ErrInvalidInput, len(ranges)-1, angleMin, angleIncrement)
	}

	cloud := make(PointCloud, 0, len(ranges))
	for i, r := range ranges {
		if math.IsInf(r, 0) {
			continue
		}
		x, y := PolarToCartesian(r, angleMin+float64(i)*angleIncrement)
		cloud = append(cloud, Point2D{X: x, Y: y})
	}

	if dropped := len(ranges) - len(cloud); dropped > 0 {
		tracef("projected %d/%d readings, %d without return", len(cloud), len(ranges), dropped)
	}
	return cloud, nil
}

// ProjectScan validates scan and projects it.
func ProjectScan(scan *l1scans.RawScan) (PointCloud, error) {
	if err := scan.Validate(); err != nil {
		return nil, err
	}
	cloud, err := Project(scan.Ranges, scan.AngleMin, scan.AngleIncrement)
	if err != nil {
		return nil, err
	}
	if len(cloud) == 0 {
		diagf("scan sensor=%q stamp=%d has no valid returns", scan.SensorID, scan.StampNanos)
	}
	return cloud, nil
}

// Bounds returns the axis-aligned extent of the cloud. ok is false for an
// empty cloud.
func (c PointCloud) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if len(c) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = c[0].X, c[0].Y
	maxX, maxY = minX, minY
	for _, p := range c[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY, true
}
