// Package monitoring times pipeline stages and records their heap growth.
package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StageMetrics is the measurement of one pipeline stage.
type StageMetrics struct {
	Stage      string        `json:"stage"`
	Duration   time.Duration `json:"duration_ns"`
	Seconds    float64       `json:"seconds"`
	MemoryUsed int64         `json:"memory_used"` // heap growth, may be negative after a GC
	Rows       int           `json:"rows,omitempty"`
	Err        string        `json:"error,omitempty"`
}

// MetricsCollector collects stage measurements. It is safe for concurrent use.
type MetricsCollector struct {
	mu      sync.RWMutex
	stages  []StageMetrics
	enabled bool
}

// NewMetricsCollector creates a new collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		stages:  make([]StageMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordStage runs fn and records its duration and heap growth. The stage is
// recorded even when fn fails; the error is returned unchanged.
func (mc *MetricsCollector) RecordStage(stage string, fn func() error) error {
	return mc.RecordRows(stage, func() (int, error) {
		return 0, fn()
	})
}

// RecordRows is RecordStage for stages that report how many rows they produced.
func (mc *MetricsCollector) RecordRows(stage string, fn func() (int, error)) error {
	if !mc.IsEnabled() {
		_, err := fn()
		return err
	}

	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	rows, err := fn()

	duration := time.Since(start)
	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	m := StageMetrics{
		Stage:      stage,
		Duration:   duration,
		Seconds:    duration.Seconds(),
		MemoryUsed: int64(after.HeapAlloc) - int64(before.HeapAlloc), //nolint:gosec // heap sizes fit in int64
		Rows:       rows,
	}
	if err != nil {
		m.Err = err.Error()
	}

	mc.mu.Lock()
	mc.stages = append(mc.stages, m)
	mc.mu.Unlock()
	return err
}

// Stages returns a copy of the recorded stages in recording order.
func (mc *MetricsCollector) Stages() []StageMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]StageMetrics, len(mc.stages))
	copy(result, mc.stages)
	return result
}

// Clear removes all recorded stages.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.stages = mc.stages[:0]
}

// Summary aggregates the recorded stages.
func (mc *MetricsCollector) Summary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.stages) == 0 {
		return MetricsSummary{}
	}

	var s MetricsSummary
	var slowest time.Duration
	for _, m := range mc.stages {
		s.TotalDuration += m.Duration
		s.TotalMemory += m.MemoryUsed
		if m.Err != "" {
			s.FailedStages++
		}
		if m.Duration >= slowest {
			slowest = m.Duration
			s.SlowestStage = m.Stage
		}
	}
	s.TotalStages = len(mc.stages)
	s.TotalSeconds = s.TotalDuration.Seconds()
	s.AverageDuration = s.TotalDuration / time.Duration(len(mc.stages))
	return s
}

// MetricsSummary provides aggregate statistics over the recorded stages.
type MetricsSummary struct {
	TotalStages     int           `json:"total_stages"`
	FailedStages    int           `json:"failed_stages"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
	TotalSeconds    float64       `json:"total_seconds"`
	TotalMemory     int64         `json:"total_memory"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	SlowestStage    string        `json:"slowest_stage"`
}

// MarshalZerologObject lets a summary be logged with Object().
func (s MetricsSummary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("stages", s.TotalStages).
		Int("failed", s.FailedStages).
		Dur("total", s.TotalDuration).
		Dur("average", s.AverageDuration).
		Int64("memory_bytes", s.TotalMemory).
		Str("slowest", s.SlowestStage)
}
