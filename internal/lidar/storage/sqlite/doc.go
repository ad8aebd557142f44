// Package sqlite contains SQLite repository implementations for scan
// segmentation results.
//
// All database read/write operations for segmentation runs and their
// segments belong here rather than in the layer packages (L1-L4). This keeps
// domain logic free of SQL noise and makes it easier to swap storage
// backends for testing.
package sqlite
