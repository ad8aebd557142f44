package l1scans

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestRanges_UnmarshalInfinitySpellings(t *testing.T) {
	var r Ranges
	err := json.Unmarshal([]byte(`[1.5, null, "inf", "+inf", "-inf", "Infinity", 2]`), &r)
	require.NoError(t, err)
	require.Len(t, r, 7)

	assert.Equal(t, 1.5, r[0])
	for i := 1; i <= 5; i++ {
		assert.True(t, math.IsInf(r[i], 0), "index %d should be infinite, got %v", i, r[i])
	}
	assert.True(t, math.IsInf(r[4], -1))
	assert.Equal(t, 2.0, r[6])
}

func TestRanges_UnmarshalRejectsUnknownWord(t *testing.T) {
	var r Ranges
	err := json.Unmarshal([]byte(`[1, "far"]`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranges[1]")
}

func TestRanges_MarshalWritesNullForNoReturn(t *testing.T) {
	data, err := json.Marshal(Ranges{1, math.Inf(1), 2.25})
	require.NoError(t, err)
	assert.JSONEq(t, `[1, null, 2.25]`, string(data))

	var back Ranges
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1.0, back[0])
	assert.True(t, math.IsInf(back[1], 1))
	assert.Equal(t, 2.25, back[2])
}

func TestRanges_NaNSurvivesRoundTrip(t *testing.T) {
	data, err := json.Marshal(Ranges{math.NaN(), 3})
	require.NoError(t, err)
	assert.JSONEq(t, `["NaN", 3]`, string(data))

	var back Ranges
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back[0]))
	assert.Equal(t, 3.0, back[1])
}

func TestRawScan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scan    *RawScan
		wantErr bool
	}{
		{"nil scan", nil, true},
		{"empty ranges", &RawScan{AngleIncrement: 0.1}, true},
		{"nan angle_min", &RawScan{Ranges: Ranges{1}, AngleMin: math.NaN(), AngleIncrement: 0.1}, true},
		{"inf increment", &RawScan{Ranges: Ranges{1}, AngleIncrement: math.Inf(1)}, true},
		{"nan angle_max", &RawScan{Ranges: Ranges{1}, AngleIncrement: 0.1, AngleMax: ptr(math.NaN())}, true},
		{"single reading", &RawScan{Ranges: Ranges{1}}, false},
		{"all no-return", &RawScan{Ranges: Ranges{math.Inf(1), math.Inf(1)}, AngleIncrement: 0.1}, false},
		{
			name: "matching angle span",
			scan: &RawScan{Ranges: make(Ranges, 5), AngleMin: 0, AngleIncrement: 0.25, AngleMax: ptr(1.0)},
		},
		{
			name: "exclusive angle_max tolerated",
			scan: &RawScan{Ranges: make(Ranges, 4), AngleMin: 0, AngleIncrement: 0.25, AngleMax: ptr(1.0)},
		},
		{
			name:    "mismatched angle span",
			scan:    &RawScan{Ranges: make(Ranges, 10), AngleMin: 0, AngleIncrement: 0.25, AngleMax: ptr(1.0)},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scan.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRawScan_ValidReturns(t *testing.T) {
	scan := RawScan{Ranges: Ranges{1, math.Inf(1), 2, math.Inf(-1), math.NaN()}}
	// NaN is not a "no return" marker; it is passed through to projection.
	assert.Equal(t, 3, scan.ValidReturns())
}

func TestDecode(t *testing.T) {
	scan, err := Decode(strings.NewReader(`{
		"ranges": [1.0, null, 2.0],
		"angle_min": 0,
		"angle_increment": 1.5707963267948966,
		"frame_id": "laser",
		"stamp_ns": 42
	}`))
	require.NoError(t, err)
	assert.Len(t, scan.Ranges, 3)
	assert.Equal(t, "laser", scan.FrameID)
	assert.Equal(t, int64(42), scan.StampNanos)
	assert.Nil(t, scan.AngleMax)
}

func TestDecode_EmptyRangesIsInvalidInput(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"ranges": [], "angle_min": 0, "angle_increment": 0.1}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
