package dto

// CacheStoreMessage is the watermill payload published after a successful
// tool execution; the consumer writes it into the semantic cache.
type CacheStoreMessage struct {
	SessionId string         `json:"session_id"`
	Vector    []float32      `json:"vector"`
	Reply     string         `json:"reply"`
	Bullets   []string       `json:"bullets,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}
