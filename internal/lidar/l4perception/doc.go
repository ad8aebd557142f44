// Package l4perception owns Layer 4 (Perception) of the 2D LiDAR data model.
//
// Responsibilities: the point-to-line residual metric, recursive split
// segmentation of an ordered point cloud into straight-line segments, and
// per-segment features.
// Key types: Segment, SplitParams, RecursiveSplitter.
//
// Dependency rule: L4 may depend on L1-L2, but never on L5+.
// No SQL/database code is allowed in this package.
package l4perception
