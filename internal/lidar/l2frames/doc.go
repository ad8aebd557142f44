// Package l2frames owns Layer 2 (Frames) of the 2D LiDAR data model.
//
// Responsibilities: projecting a scan's polar samples into an ordered
// Cartesian point cloud in the sensor frame.
// Key types: Point2D, PointCloud.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2frames
