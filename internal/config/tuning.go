package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for segmentation tuning.
// The schema is flat so the same JSON can be used for startup configuration
// and for runtime updates through the web API.
type TuningConfig struct {
	// Splitter params
	SplitThreshold *float64 `json:"split_threshold,omitempty"` // metres
	MaxSplitDepth  *int     `json:"max_split_depth,omitempty"` // 0 = unbounded

	// Pipeline params
	BatchWorkers *int    `json:"batch_workers,omitempty"`
	SplitTimeout *string `json:"split_timeout,omitempty"` // duration string like "250ms", "" = none

	// Monitor params
	ChartAssetsHost *string `json:"chart_assets_host,omitempty"`
	NearestK        *int    `json:"nearest_k,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// value its getter falls back to.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	return &TuningConfig{
		SplitThreshold:  ptrFloat64(empty.GetSplitThreshold()),
		MaxSplitDepth:   ptrInt(empty.GetMaxSplitDepth()),
		BatchWorkers:    ptrInt(empty.GetBatchWorkers()),
		SplitTimeout:    ptrString(""),
		ChartAssetsHost: ptrString(empty.GetChartAssetsHost()),
		NearestK:        ptrInt(empty.GetNearestK()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseTuningConfig(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTuningConfig decodes and validates a JSON tuning document.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lidar/monitor/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SplitThreshold != nil && (math.IsNaN(*c.SplitThreshold) || math.IsInf(*c.SplitThreshold, 0)) {
		return fmt.Errorf("split_threshold must be finite, got %v", *c.SplitThreshold)
	}
	if c.MaxSplitDepth != nil && *c.MaxSplitDepth < 0 {
		return fmt.Errorf("max_split_depth must be non-negative, got %d", *c.MaxSplitDepth)
	}
	if c.BatchWorkers != nil && *c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be at least 1, got %d", *c.BatchWorkers)
	}
	if c.SplitTimeout != nil && *c.SplitTimeout != "" {
		d, err := time.ParseDuration(*c.SplitTimeout)
		if err != nil {
			return fmt.Errorf("invalid split_timeout '%s': %w", *c.SplitTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("split_timeout must be non-negative, got %s", *c.SplitTimeout)
		}
	}
	if c.NearestK != nil && *c.NearestK < 1 {
		return fmt.Errorf("nearest_k must be at least 1, got %d", *c.NearestK)
	}
	return nil
}

// Merge overlays every field set in other onto c.
func (c *TuningConfig) Merge(other *TuningConfig) {
	if other == nil {
		return
	}
	if other.SplitThreshold != nil {
		c.SplitThreshold = other.SplitThreshold
	}
	if other.MaxSplitDepth != nil {
		c.MaxSplitDepth = other.MaxSplitDepth
	}
	if other.BatchWorkers != nil {
		c.BatchWorkers = other.BatchWorkers
	}
	if other.SplitTimeout != nil {
		c.SplitTimeout = other.SplitTimeout
	}
	if other.ChartAssetsHost != nil {
		c.ChartAssetsHost = other.ChartAssetsHost
	}
	if other.NearestK != nil {
		c.NearestK = other.NearestK
	}
}

// GetSplitThreshold returns the split_threshold value or the default.
func (c *TuningConfig) GetSplitThreshold() float64 {
	if c.SplitThreshold == nil {
		return 0.05 // default: 5 cm
	}
	return *c.SplitThreshold
}

// GetMaxSplitDepth returns the max_split_depth value or the default.
func (c *TuningConfig) GetMaxSplitDepth() int {
	if c.MaxSplitDepth == nil {
		return 0 // unbounded
	}
	return *c.MaxSplitDepth
}

// GetBatchWorkers returns the batch_workers value or the default.
func (c *TuningConfig) GetBatchWorkers() int {
	if c.BatchWorkers == nil {
		return 4
	}
	return *c.BatchWorkers
}

// GetSplitTimeout parses and returns the SplitTimeout as a time.Duration.
// Zero means no timeout.
func (c *TuningConfig) GetSplitTimeout() time.Duration {
	if c.SplitTimeout == nil || *c.SplitTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.SplitTimeout)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}

// GetChartAssetsHost returns the chart_assets_host value or the default.
func (c *TuningConfig) GetChartAssetsHost() string {
	if c.ChartAssetsHost == nil || *c.ChartAssetsHost == "" {
		return "https://go-echarts.github.io/go-echarts-assets/assets/"
	}
	return *c.ChartAssetsHost
}

// GetNearestK returns the nearest_k value or the default.
func (c *TuningConfig) GetNearestK() int {
	if c.NearestK == nil {
		return 5
	}
	return *c.NearestK
}
