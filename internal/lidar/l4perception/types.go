package l4perception

import "github.com/banshee-data/scanline/internal/lidar/l2frames"

// Type aliases re-export the L2 geometry types so perception callers need
// only one import.

// Point2D is a sensor-frame Cartesian point.
type Point2D = l2frames.Point2D

// PointCloud is an ordered projection of one scan.
type PointCloud = l2frames.PointCloud
