package optimizer

import (
	"sync"

	domainimage "pixelmill-server-go/internal/domain/image"
)

// EMA smoothing: 90% history, 10% newest sample.
const (
	emaOld = 0.9
	emaNew = 0.1
)

// Metrics aggregates process-wide pipeline counters. All methods are safe
// for concurrent batch workers.
type Metrics struct {
	mu sync.Mutex

	totalImages        int64
	totalSizeOriginal  int64
	totalSizeOptimized int64
	perFormatCount     map[domainimage.Format]int64

	avgDurationMs       float64
	avgCompressionRatio float64
	seeded              bool
}

// MetricsSnapshot is a point-in-time copy for stats endpoints and storage.
type MetricsSnapshot struct {
	TotalImages        int64                        `json:"total_images"`
	TotalSizeOriginal  int64                        `json:"total_size_original"`
	TotalSizeOptimized int64                        `json:"total_size_optimized"`
	PerFormatCount     map[domainimage.Format]int64 `json:"per_format_count"`
	AverageDurationMs  float64                      `json:"average_duration_ms"`
	AverageCompression float64                      `json:"average_compression_ratio"`
	TotalSavingsBytes  int64                        `json:"total_savings_bytes"`
}

func NewMetrics() *Metrics {
	return &Metrics{perFormatCount: make(map[domainimage.Format]int64)}
}

// Record folds one successful optimization into the aggregates.
func (m *Metrics) Record(originalSize, optimizedSize int64, formats []domainimage.Format, durationMs float64) {
	ratio := 1.0
	if originalSize > 0 {
		ratio = float64(optimizedSize) / float64(originalSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalImages++
	m.totalSizeOriginal += originalSize
	m.totalSizeOptimized += optimizedSize
	for _, f := range formats {
		m.perFormatCount[f]++
	}

	if !m.seeded {
		m.avgDurationMs = durationMs
		m.avgCompressionRatio = ratio
		m.seeded = true
		return
	}
	m.avgDurationMs = m.avgDurationMs*emaOld + durationMs*emaNew
	m.avgCompressionRatio = m.avgCompressionRatio*emaOld + ratio*emaNew
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[domainimage.Format]int64, len(m.perFormatCount))
	for f, n := range m.perFormatCount {
		counts[f] = n
	}
	return MetricsSnapshot{
		TotalImages:        m.totalImages,
		TotalSizeOriginal:  m.totalSizeOriginal,
		TotalSizeOptimized: m.totalSizeOptimized,
		PerFormatCount:     counts,
		AverageDurationMs:  m.avgDurationMs,
		AverageCompression: m.avgCompressionRatio,
		TotalSavingsBytes:  m.totalSizeOriginal - m.totalSizeOptimized,
	}
}

// Reset zeroes all aggregates.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalImages = 0
	m.totalSizeOriginal = 0
	m.totalSizeOptimized = 0
	m.perFormatCount = make(map[domainimage.Format]int64)
	m.avgDurationMs = 0
	m.avgCompressionRatio = 0
	m.seeded = false
}
