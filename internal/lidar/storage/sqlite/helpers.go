package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func stringFromNull(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}

// nullFloat maps NaN to NULL; SQLite has no NaN.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func floatFromNull(v sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	return math.NaN()
}

// encodePoints packs a cloud as little-endian float64 (x, y) pairs. A blob
// rather than JSON keeps NaN coordinates intact.
func encodePoints(cloud PointCloud) []byte {
	buf := make([]byte, 16*len(cloud))
	for i, p := range cloud {
		binary.LittleEndian.PutUint64(buf[16*i:], math.Float64bits(p.X))
		binary.LittleEndian.PutUint64(buf[16*i+8:], math.Float64bits(p.Y))
	}
	return buf
}

func decodePoints(blob []byte) (PointCloud, error) {
	if len(blob)%16 != 0 {
		return nil, fmt.Errorf("points blob length %d is not a multiple of 16", len(blob))
	}
	cloud := make(PointCloud, len(blob)/16)
	for i := range cloud {
		cloud[i].X = math.Float64frombits(binary.LittleEndian.Uint64(blob[16*i:]))
		cloud[i].Y = math.Float64frombits(binary.LittleEndian.Uint64(blob[16*i+8:]))
	}
	return cloud, nil
}
