// Package l1scans owns Layer 1 (Scans) of the 2D LiDAR data model.
//
// Responsibilities: the RawScan tuple (ordered ranges plus angular
// metadata), its validation, and reading scans from JSON and JSON Lines
// recordings. This layer produces the raw range arrays consumed by L2
// (Frames).
//
// Dependency rule: L1 has no inward dependencies on higher layers.
package l1scans
