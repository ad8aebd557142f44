// Package pipeline provides the scan segmentation pipeline.
//
// It is the composition root: it validates a raw scan (L1), projects it
// into a point cloud (L2), splits the cloud into line segments (L4), and
// hands results to an optional persistence sink. None of the layer
// packages import pipeline/.
package pipeline
