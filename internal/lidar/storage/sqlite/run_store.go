package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanRun is one persisted segmentation of a scan.
type ScanRun struct {
	RunID          string     `json:"run_id"`
	SensorID       string     `json:"sensor_id,omitempty"`
	FrameID        string     `json:"frame_id,omitempty"`
	StampNanos     int64      `json:"stamp_ns,omitempty"`
	Threshold      float64    `json:"threshold"`
	MaxDepth       int        `json:"max_depth,omitempty"`
	RangeCount     int        `json:"range_count"`
	PointCount     int        `json:"point_count"`
	SegmentCount   int        `json:"segment_count"`
	Splits         int        `json:"splits"`
	DurationMicros int64      `json:"duration_us"`
	CreatedAtNanos int64      `json:"created_at_ns"`
	Points         PointCloud `json:"points,omitempty"`
}

// ScanSegment is one persisted line segment of a ScanRun.
type ScanSegment struct {
	RunID        string  `json:"run_id"`
	SegmentIndex int     `json:"segment_index"`
	StartIndex   int     `json:"start_index"`
	EndIndex     int     `json:"end_index"`
	StartX       float64 `json:"start_x"`
	StartY       float64 `json:"start_y"`
	EndX         float64 `json:"end_x"`
	EndY         float64 `json:"end_y"`
	LengthM      float64 `json:"length_m"`
	HeadingRad   float64 `json:"heading_rad"`
	MaxResidual  float64 `json:"max_residual"`
	RMSResidual  float64 `json:"rms_residual"`
}

// Segment returns the index range the row describes.
func (s ScanSegment) Segment() Segment {
	return Segment{Start: s.StartIndex, End: s.EndIndex}
}

// ScanSegmentFromFeatures builds the row for the index-th segment of a run.
func ScanSegmentFromFeatures(runID string, index int, f SegmentFeatures) ScanSegment {
	return ScanSegment{
		RunID:        runID,
		SegmentIndex: index,
		StartIndex:   f.Segment.Start,
		EndIndex:     f.Segment.End,
		StartX:       f.StartPoint.X,
		StartY:       f.StartPoint.Y,
		EndX:         f.EndPoint.X,
		EndY:         f.EndPoint.Y,
		LengthM:      f.Length,
		HeadingRad:   f.HeadingRad,
		MaxResidual:  f.MaxResidual,
		RMSResidual:  f.RMSResidual,
	}
}

// RunStore provides persistence for segmentation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun writes run and its segments in one transaction.
// If run.RunID is empty, a new UUID is generated and written back to run
// and to every segment.
func (s *RunStore) InsertRun(run *ScanRun, segments []ScanSegment) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNanos == 0 {
		run.CreatedAtNanos = time.Now().UnixNano()
	}
	run.SegmentCount = len(segments)
	if run.PointCount == 0 {
		run.PointCount = len(run.Points)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert scan run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scan_runs (
			run_id, sensor_id, frame_id, stamp_ns, threshold, max_depth,
			range_count, point_count, segment_count, splits, duration_us,
			points_blob, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		nullString(run.SensorID),
		nullString(run.FrameID),
		run.StampNanos,
		run.Threshold,
		run.MaxDepth,
		run.RangeCount,
		run.PointCount,
		run.SegmentCount,
		run.Splits,
		run.DurationMicros,
		encodePoints(run.Points),
		run.CreatedAtNanos,
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO scan_segments (
			run_id, segment_index, start_index, end_index,
			start_x, start_y, end_x, end_y,
			length_m, heading_rad, max_residual, rms_residual
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert scan segment: %w", err)
	}
	defer stmt.Close()

	for i := range segments {
		seg := &segments[i]
		seg.RunID = run.RunID
		_, err := stmt.Exec(
			seg.RunID, seg.SegmentIndex, seg.StartIndex, seg.EndIndex,
			nullFloat(seg.StartX), nullFloat(seg.StartY), nullFloat(seg.EndX), nullFloat(seg.EndY),
			nullFloat(seg.LengthM), nullFloat(seg.HeadingRad), nullFloat(seg.MaxResidual), nullFloat(seg.RMSResidual),
		)
		if err != nil {
			return fmt.Errorf("insert scan segment %d: %w", seg.SegmentIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan run: %w", err)
	}
	return nil
}

const runColumns = `run_id, sensor_id, frame_id, stamp_ns, threshold, max_depth,
	range_count, point_count, segment_count, splits, duration_us, created_at_ns`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner, extra ...interface{}) (*ScanRun, error) {
	r := &ScanRun{}
	var sensorID, frameID sql.NullString
	dest := []interface{}{
		&r.RunID, &sensorID, &frameID, &r.StampNanos, &r.Threshold, &r.MaxDepth,
		&r.RangeCount, &r.PointCount, &r.SegmentCount, &r.Splits, &r.DurationMicros, &r.CreatedAtNanos,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.SensorID = stringFromNull(sensorID)
	r.FrameID = stringFromNull(frameID)
	return r, nil
}

// GetRun returns the run with its point cloud. A missing run yields an
// error wrapping sql.ErrNoRows.
func (s *RunStore) GetRun(runID string) (*ScanRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+`, points_blob FROM scan_runs WHERE run_id = ?`, runID)

	var blob []byte
	run, err := scanRun(row, &blob)
	if err != nil {
		return nil, fmt.Errorf("get scan run %s: %w", runID, err)
	}
	if run.Points, err = decodePoints(blob); err != nil {
		return nil, fmt.Errorf("get scan run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, without point clouds.
// limit <= 0 returns every run.
func (s *RunStore) ListRuns(limit int) ([]*ScanRun, error) {
	query := `SELECT ` + runColumns + ` FROM scan_runs ORDER BY created_at_ns DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	defer rows.Close()

	var runs []*ScanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListSegments returns a run's segments in cloud order. NULL features read
// back as NaN.
func (s *RunStore) ListSegments(runID string) ([]ScanSegment, error) {
	rows, err := s.db.Query(`
		SELECT run_id, segment_index, start_index, end_index,
		       start_x, start_y, end_x, end_y,
		       length_m, heading_rad, max_residual, rms_residual
		FROM scan_segments
		WHERE run_id = ?
		ORDER BY segment_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list scan segments: %w", err)
	}
	defer rows.Close()

	var segments []ScanSegment
	for rows.Next() {
		var seg ScanSegment
		var f [8]sql.NullFloat64
		err := rows.Scan(
			&seg.RunID, &seg.SegmentIndex, &seg.StartIndex, &seg.EndIndex,
			&f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &f[7],
		)
		if err != nil {
			return nil, fmt.Errorf("scan scan segment: %w", err)
		}
		seg.StartX, seg.StartY = floatFromNull(f[0]), floatFromNull(f[1])
		seg.EndX, seg.EndY = floatFromNull(f[2]), floatFromNull(f[3])
		seg.LengthM, seg.HeadingRad = floatFromNull(f[4]), floatFromNull(f[5])
		seg.MaxResidual, seg.RMSResidual = floatFromNull(f[6]), floatFromNull(f[7])
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// DeleteRun removes a run and its segments. Returns sql.ErrNoRows if the
// run does not exist.
func (s *RunStore) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete scan run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM scan_segments WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete scan segments: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM scan_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete scan run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scan run rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
