package l4perception_test

import (
	"testing"

	"github.com/banshee-data/scanline/internal/lidar/l2frames"
	"github.com/banshee-data/scanline/internal/lidar/l4perception"
)

// TestAliasesCompile verifies that type aliases resolve correctly.
func TestAliasesCompile(t *testing.T) {
	var p l4perception.Point2D = l2frames.Point2D{X: 1, Y: 2}
	if p.X != 1 || p.Y != 2 {
		t.Fatalf("Point2D alias broken: %+v", p)
	}

	cloud := l4perception.PointCloud{p}
	var l2 l2frames.PointCloud = cloud
	if len(l2) != 1 {
		t.Fatalf("PointCloud alias broken")
	}
}
