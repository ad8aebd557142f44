package l4perception

import (
	"context"
	"sync"
)

// Segmenter abstracts the segmentation algorithm so pipelines can be tested
// with stubs and tuned at runtime.
type Segmenter interface {
	// SplitWithParams segments an ordered cloud with explicit parameters.
	// Segments are returned in cloud order and together cover every point.
	SplitWithParams(ctx context.Context, cloud PointCloud, params SplitParams) ([]Segment, SplitStats, error)

	// GetParams returns the current default parameters.
	GetParams() SplitParams

	// SetParams replaces the parameters for subsequent calls.
	SetParams(params SplitParams)
}

// RecursiveSplitter is the split-only line segmenter. It never merges
// adjacent collinear segments. Safe for concurrent use; each call works on
// its own scratch buffers.
type RecursiveSplitter struct {
	mu     sync.RWMutex
	params SplitParams
}

// NewRecursiveSplitter returns a splitter with the given parameters.
func NewRecursiveSplitter(params SplitParams) *RecursiveSplitter {
	return &RecursiveSplitter{params: params}
}

// SplitContext segments cloud with the current parameters, returning
// ctx.Err() if the context ends first.
func (s *RecursiveSplitter) SplitContext(ctx context.Context, cloud PointCloud) ([]Segment, SplitStats, error) {
	return s.SplitWithParams(ctx, cloud, s.GetParams())
}

// SplitWithParams segments cloud with params, leaving the stored defaults
// untouched.
func (s *RecursiveSplitter) SplitWithParams(ctx context.Context, cloud PointCloud, params SplitParams) ([]Segment, SplitStats, error) {
	segments, stats, err := splitRanges(ctx, cloud, params)
	if err != nil {
		return nil, stats, err
	}
	if stats.DepthLimited > 0 {
		opsf("split depth limit %d reached on %d runs (%d points)", params.MaxDepth, stats.DepthLimited, len(cloud))
	}
	tracef("split %d points into %d segments (threshold=%.4f splits=%d depth=%d)",
		len(cloud), len(segments), params.Threshold, stats.Splits, stats.MaxDepth)
	return segments, stats, nil
}

// GetParams returns the current parameters.
func (s *RecursiveSplitter) GetParams() SplitParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParams replaces the parameters.
func (s *RecursiveSplitter) SetParams(params SplitParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if params != s.params {
		diagf("split params updated: threshold %.4f -> %.4f, max_depth %d -> %d",
			s.params.Threshold, params.Threshold, s.params.MaxDepth, params.MaxDepth)
	}
	s.params = params
}
