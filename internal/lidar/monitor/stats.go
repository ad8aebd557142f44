package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/scanline/internal/monitoring"
	"github.com/banshee-data/scanline/internal/timeutil"
)

// StatsSnapshot is the rate summary of one logging interval.
type StatsSnapshot struct {
	ScansPerSec    float64   `json:"scans_per_sec"`
	PointsPerSec   float64   `json:"points_per_sec"`
	SegmentsPerSec float64   `json:"segments_per_sec"`
	RejectedCount  int64     `json:"rejected"`
	Timestamp      time.Time `json:"timestamp"`
}

// StatsTotals are cumulative counts since the server started.
type StatsTotals struct {
	Scans    int64 `json:"scans"`
	Points   int64 `json:"points"`
	Segments int64 `json:"segments"`
	Rejected int64 `json:"rejected"`
}

// SegmentStats tracks segmentation throughput with thread-safe operations.
type SegmentStats struct {
	mu             sync.Mutex
	clock          timeutil.Clock
	scanCount      int64
	pointCount     int64
	segmentCount   int64
	rejectedCount  int64
	totals         StatsTotals
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewSegmentStats creates a SegmentStats. A nil clock uses the real clock.
func NewSegmentStats(clock timeutil.Clock) *SegmentStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	now := clock.Now()
	return &SegmentStats{
		clock:     clock,
		lastReset: now,
		startTime: now,
	}
}

// AddResult records one segmented scan.
func (s *SegmentStats) AddResult(points, segments int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCount++
	s.pointCount += int64(points)
	s.segmentCount += int64(segments)
	s.totals.Scans++
	s.totals.Points += int64(points)
	s.totals.Segments += int64(segments)
}

// AddRejected records a scan refused as invalid input.
func (s *SegmentStats) AddRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectedCount++
	s.totals.Rejected++
}

// GetAndReset returns the interval counters and resets them. Totals are
// not reset.
func (s *SegmentStats) GetAndReset() (scans, points, segments, rejected int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	duration = now.Sub(s.lastReset)
	scans, points, segments, rejected = s.scanCount, s.pointCount, s.segmentCount, s.rejectedCount

	s.scanCount = 0
	s.pointCount = 0
	s.segmentCount = 0
	s.rejectedCount = 0
	s.lastReset = now
	return
}

// LogStats logs the interval rates and stores a snapshot for the status
// endpoint. Idle intervals are not logged.
func (s *SegmentStats) LogStats() {
	scans, points, segments, rejected, duration := s.GetAndReset()
	if (scans == 0 && rejected == 0) || duration <= 0 {
		return
	}
	secs := duration.Seconds()
	snap := &StatsSnapshot{
		ScansPerSec:    float64(scans) / secs,
		PointsPerSec:   float64(points) / secs,
		SegmentsPerSec: float64(segments) / secs,
		RejectedCount:  rejected,
		Timestamp:      s.clock.Now(),
	}
	s.mu.Lock()
	s.latestSnapshot = snap
	s.mu.Unlock()

	msg := fmt.Sprintf("Segment stats (/sec): %.1f scans, %s points, %.1f segments",
		snap.ScansPerSec, FormatWithCommas(int64(snap.PointsPerSec)), snap.SegmentsPerSec)
	if rejected > 0 {
		msg += fmt.Sprintf(", %d rejected", rejected)
	}
	monitoring.Logf("%s", msg)
}

// GetUptime returns the time since the stats were created.
func (s *SegmentStats) GetUptime() time.Duration {
	return s.clock.Since(s.startTime)
}

// GetTotals returns the cumulative counts.
func (s *SegmentStats) GetTotals() StatsTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// GetLatestSnapshot returns a copy of the most recent snapshot, or nil.
func (s *SegmentStats) GetLatestSnapshot() *StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestSnapshot == nil {
		return nil
	}
	snapshot := *s.latestSnapshot
	return &snapshot
}

// FormatWithCommas formats a number with thousands separators
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
