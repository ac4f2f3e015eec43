package events

import "time"

const (
	TypeTurnCompleted    = "TURN_COMPLETED"
	TypeTaskExecuted     = "TASK_EXECUTED"
	TypeTaskAborted      = "TASK_ABORTED"
	TypeFeedbackReceived = "FEEDBACK_RECEIVED"
	TypeMemoryCleared    = "MEMORY_CLEARED"
)

// NewTurnCompletedEvent fires after every committed turn.
func NewTurnCompletedEvent(sessionId, intent, confidence string, cacheHit bool) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"intent":     intent,
			"confidence": confidence,
			"cache_hit":  cacheHit,
		},
		OccurredAt: time.Now(),
	}
}

// NewTaskExecutedEvent fires when a tool ran successfully and the turn was
// summarized.
func NewTaskExecutedEvent(sessionId, intent string, slots map[string]string) Event {
	slotData := make(map[string]interface{}, len(slots))
	for k, v := range slots {
		slotData[k] = v
	}
	return BaseEvent{
		Type: TypeTaskExecuted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"intent":     intent,
			"slots":      slotData,
		},
		OccurredAt: time.Now(),
	}
}

// NewTaskAbortedEvent fires when the tool retry budget is exhausted.
func NewTaskAbortedEvent(sessionId, intent string, failures int) Event {
	return BaseEvent{
		Type: TypeTaskAborted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"intent":     intent,
			"failures":   failures,
		},
		OccurredAt: time.Now(),
	}
}

func NewFeedbackReceivedEvent(sessionId string, helpful bool) Event {
	return BaseEvent{
		Type: TypeFeedbackReceived,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"helpful":    helpful,
		},
		OccurredAt: time.Now(),
	}
}

func NewMemoryClearedEvent(sessionId string, removed int64) Event {
	return BaseEvent{
		Type: TypeMemoryCleared,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"removed":    removed,
		},
		OccurredAt: time.Now(),
	}
}
