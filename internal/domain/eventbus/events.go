package eventbus

// Topics published by the pipeline.
const (
	EventOptimizeStarted   = "optimize:started"
	EventOptimizeCompleted = "optimize:completed"
	EventOptimizeFailed    = "optimize:failed"

	EventBatchStarted   = "batch:started"
	EventBatchCompleted = "batch:completed"

	EventCacheCleared = "cache:cleared"

	EventSystemError = "system:error"
	EventSystemInfo  = "system:info"
)

type OptimizeEventData struct {
	SourcePath   string  `json:"source_path"`
	Variants     int     `json:"variants"`
	SavingsBytes int64   `json:"savings_bytes"`
	Ratio        float64 `json:"ratio"`
	DurationMs   int64   `json:"duration_ms"`
	Error        string  `json:"error,omitempty"`
}

type BatchEventData struct {
	JobID      string `json:"job_id"`
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
}

type SystemEventData struct {
	Level   string      `json:"level"` // error, warn, info
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
