package eventbus

import (
	"log"
)

// EventHandler consumes pipeline events.
type EventHandler interface {
	Handle(eventType string, data interface{})
}

// DefaultEventHandler logs a one-line summary per event.
type DefaultEventHandler struct{}

func NewDefaultEventHandler() *DefaultEventHandler {
	return &DefaultEventHandler{}
}

func (h *DefaultEventHandler) Handle(eventType string, data interface{}) {
	switch eventType {
	case EventOptimizeCompleted:
		h.handleOptimizeCompleted(data.(OptimizeEventData))
	case EventOptimizeFailed:
		h.handleOptimizeFailed(data.(OptimizeEventData))
	case EventBatchCompleted:
		h.handleBatchCompleted(data.(BatchEventData))
	case EventCacheCleared:
		log.Printf("[events] conversion cache cleared")
	case EventSystemError:
		h.handleSystemError(data.(SystemEventData))
	default:
		log.Printf("[events] unhandled event type: %s", eventType)
	}
}

func (h *DefaultEventHandler) handleOptimizeCompleted(data OptimizeEventData) {
	log.Printf("[events] optimized %s: %d variants, saved %d bytes (ratio %.2f) in %dms",
		data.SourcePath, data.Variants, data.SavingsBytes, data.Ratio, data.DurationMs)
}

func (h *DefaultEventHandler) handleOptimizeFailed(data OptimizeEventData) {
	log.Printf("[events] optimize failed for %s: %s", data.SourcePath, data.Error)
}

func (h *DefaultEventHandler) handleBatchCompleted(data BatchEventData) {
	log.Printf("[events] batch %s finished: %d/%d succeeded, %d failed in %dms",
		data.JobID, data.Succeeded, data.Total, data.Failed, data.DurationMs)
}

func (h *DefaultEventHandler) handleSystemError(data SystemEventData) {
	log.Printf("[events] system %s: %s", data.Level, data.Message)
}

// SetupEventHandlers subscribes the default handler to the pipeline topics.
func SetupEventHandlers() {
	handler := NewDefaultEventHandler()

	for _, topic := range []string{
		EventOptimizeCompleted,
		EventOptimizeFailed,
		EventBatchCompleted,
		EventCacheCleared,
		EventSystemError,
	} {
		topic := topic
		Subscribe(topic, func(args ...interface{}) {
			var data interface{}
			if len(args) > 0 {
				data = args[0]
			}
			handler.Handle(topic, data)
		})
	}
}
