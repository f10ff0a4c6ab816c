package domain

import "time"

// Event is the envelope broadcast to WebSocket subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
	UserID    string    `json:"user_id"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

func newEvent(t EventType, s *State, data any) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserID:    s.UserID,
		RequestID: s.RequestID,
		Data:      data,
	}
}

// ProcessingStarted announces that the pipeline accepted a request.
func ProcessingStarted(s *State) Event {
	return newEvent(EventProcessingStarted, s, map[string]any{
		"word":            s.Word,
		"source_language": s.SourceLanguage,
		"target_language": s.TargetLanguage,
	})
}

// ChunkUpdate carries the state snapshot produced by one merged delta.
func ChunkUpdate(s *State, d Delta) Event {
	return newEvent(EventChunkUpdate, s, d)
}

// StepUpdate reports one quality-gate attempt for a tool.
func StepUpdate(s *State, tool ToolName, attempt int, status string, score float64) Event {
	return newEvent(EventStepUpdate, s, map[string]any{
		"tool":    tool,
		"attempt": attempt,
		"status":  status,
		"score":   Quantize4(score),
	})
}

// ProcessingCompleted closes the request with the persisted artifact.
func ProcessingCompleted(s *State, entry *VocabEntry) Event {
	return newEvent(EventProcessingCompleted, s, map[string]any{
		"word":                  s.Word,
		"entry":                 entry,
		"overall_quality_score": entry.OverallQualityScore,
	})
}

// ProcessingFailed closes the request with an error message and, for
// validation failures, up to three alternative suggestions.
func ProcessingFailed(s *State, msg string, suggestions []string) Event {
	data := map[string]any{
		"word":  s.Word,
		"error": msg,
	}
	if len(suggestions) > 0 {
		if len(suggestions) > 3 {
			suggestions = suggestions[:3]
		}
		data["suggestions"] = suggestions
	}
	return newEvent(EventProcessingFailed, s, data)
}

// CacheHit closes the request with the already-stored artifacts.
func CacheHit(s *State, items []ExistingItem) Event {
	return newEvent(EventCacheHit, s, map[string]any{
		"word":           s.Word,
		"existing_items": items,
	})
}
