package l1scans

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidInput is returned for empty or malformed scans. Callers match it
// with errors.Is; the wrapped message carries the specific defect.
var ErrInvalidInput = errors.New("invalid input")

// angleCountSlack is how many samples a scan may differ from the count
// implied by angle_min, angle_max and angle_increment. Drivers disagree on
// whether angle_max is inclusive.
const angleCountSlack = 1

// RawScan is one sweep of a rotating 2D rangefinder. Only Ranges, AngleMin
// and AngleIncrement drive segmentation; the remaining fields mirror the
// ROS LaserScan message and are carried through for storage and display.
type RawScan struct {
	Ranges         Ranges   `json:"ranges"`
	AngleMin       float64  `json:"angle_min"`
	AngleIncrement float64  `json:"angle_increment"`
	AngleMax       *float64 `json:"angle_max,omitempty"`
	RangeMin       float64  `json:"range_min,omitempty"`
	RangeMax       float64  `json:"range_max,omitempty"`
	StampNanos     int64    `json:"stamp_ns,omitempty"`
	FrameID        string   `json:"frame_id,omitempty"`
	SensorID       string   `json:"sensor_id,omitempty"`
}

// Validate reports ErrInvalidInput when the scan cannot be projected.
func (s *RawScan) Validate() error {
	if s == nil || len(s.Ranges) == 0 {
		return fmt.Errorf("%w: scan has no range readings", ErrInvalidInput)
	}
	if !isFinite(s.AngleMin) {
		return fmt.Errorf("%w: angle_min is not finite (%v)", ErrInvalidInput, s.AngleMin)
	}
	if !isFinite(s.AngleIncrement) {
		return fmt.Errorf("%w: angle_increment is not finite (%v)", ErrInvalidInput, s.AngleIncrement)
	}
	if s.AngleMax != nil {
		if !isFinite(*s.AngleMax) {
			return fmt.Errorf("%w: angle_max is not finite (%v)", ErrInvalidInput, *s.AngleMax)
		}
		if s.AngleIncrement != 0 {
			expected := (*s.AngleMax-s.AngleMin)/s.AngleIncrement + 1
			if math.Abs(expected-float64(len(s.Ranges))) > angleCountSlack+1e-6 {
				return fmt.Errorf("%w: %d ranges do not match angle span [%g, %g] at increment %g (expected ~%.0f)",
					ErrInvalidInput, len(s.Ranges), s.AngleMin, *s.AngleMax, s.AngleIncrement, expected)
			}
		}
	}
	return nil
}

// ValidReturns counts the readings that carry a return.
func (s *RawScan) ValidReturns() int {
	n := 0
	for _, r := range s.Ranges {
		if !math.IsInf(r, 0) {
			n++
		}
	}
	return n
}

// Ranges is the ordered range array of a scan. JSON has no encoding for
// infinity, so a missing return is written as null and read back from null
// or one of the strings "inf", "+inf", "-inf", "infinity". NaN readings are
// not returns but are kept as the string "NaN" so they survive a round trip.
type Ranges []float64

// MarshalJSON writes infinite readings as null and NaN as "NaN".
func (r Ranges) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	out := make([]interface{}, len(r))
	for i, v := range r {
		switch {
		case math.IsInf(v, 0):
			out[i] = nil
		case math.IsNaN(v):
			out[i] = "NaN"
		default:
			out[i] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts numbers, null, "NaN" and the infinity spellings
// above.
func (r *Ranges) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ranges: %w", err)
	}
	out := make(Ranges, len(raw))
	for i, item := range raw {
		v, err := parseRange(item)
		if err != nil {
			return fmt.Errorf("ranges[%d]: %w", i, err)
		}
		out[i] = v
	}
	*r = out
	return nil
}

func parseRange(item json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(item))
	if s == "null" {
		return math.Inf(1), nil
	}
	if strings.HasPrefix(s, `"`) {
		var word string
		if err := json.Unmarshal(item, &word); err != nil {
			return 0, err
		}
		switch strings.ToLower(word) {
		case "inf", "+inf", "infinity", "+infinity":
			return math.Inf(1), nil
		case "-inf", "-infinity":
			return math.Inf(-1), nil
		case "nan":
			return math.NaN(), nil
		}
		return 0, fmt.Errorf("unrecognised range value %q", word)
	}
	var v float64
	if err := json.Unmarshal(item, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
