package sqlite

import (
	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
)

// Type aliases to avoid import cycles.
//
// The storage layer persists types owned by the geometry and perception
// layers; local aliases point at their canonical definitions.

// Point2D is a sensor-frame point from L2 (frames layer).
type Point2D = l2frames.Point2D

// PointCloud is an ordered projected scan from L2 (frames layer).
type PointCloud = l2frames.PointCloud

// Segment is an index range over a PointCloud from L4 (perception layer).
type Segment = l4perception.Segment

// SegmentFeatures summarises a Segment, from L4 (perception layer).
type SegmentFeatures = l4perception.SegmentFeatures
