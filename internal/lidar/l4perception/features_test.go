package l4perception

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFeatures(t *testing.T) {
	cloud := PointCloud{{0, 0}, {1, 0.1}, {2, -0.1}, {3, 0}}

	f := ComputeFeatures(cloud, Segment{Start: 0, End: 3})

	assert.Equal(t, 4, f.PointCount)
	assert.Equal(t, Point2D{0, 0}, f.StartPoint)
	assert.Equal(t, Point2D{3, 0}, f.EndPoint)
	assert.InDelta(t, 3.0, f.Length, 1e-12)
	assert.InDelta(t, 0.0, f.HeadingRad, 1e-12)
	assert.InDelta(t, 0.1, f.MaxResidual, 1e-12)
	assert.InDelta(t, math.Sqrt(0.02/4), f.RMSResidual, 1e-12)
}

func TestComputeFeatures_Heading(t *testing.T) {
	cloud := PointCloud{{1, 1}, {1, 3}}
	f := ComputeFeatures(cloud, Segment{Start: 0, End: 1})
	assert.InDelta(t, math.Pi/2, f.HeadingRad, 1e-12)
	assert.InDelta(t, 2.0, f.Length, 1e-12)
	assert.Zero(t, f.MaxResidual)
}

func TestComputeFeatures_SinglePoint(t *testing.T) {
	cloud := PointCloud{{2, 5}}
	f := ComputeFeatures(cloud, Segment{Start: 0, End: 0})
	assert.Equal(t, 1, f.PointCount)
	assert.Zero(t, f.Length)
	assert.Zero(t, f.MaxResidual)
	assert.Zero(t, f.RMSResidual)
}

func TestComputeAllFeatures(t *testing.T) {
	cloud := PointCloud{{0, 0}, {1, 0}, {2, 1}, {3, 0}, {4, 0}}
	segs := Split(cloud, 0.5)
	feats := ComputeAllFeatures(cloud, segs)
	assert.Len(t, feats, len(segs))
	for i, f := range feats {
		assert.Equal(t, segs[i], f.Segment)
		assert.Less(t, f.MaxResidual, 0.5)
	}
}
