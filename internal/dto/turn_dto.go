package dto

import (
	"github.com/google/uuid"
)

// TurnRequest is one inbound user utterance for a session.
type TurnRequest struct {
	SessionId uuid.UUID         `json:"session_id" validate:"required"`
	UserId    string            `json:"user_id,omitempty"`
	Text      string            `json:"text" validate:"required"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// RouteDTO reports how the utterance was classified.
type RouteDTO struct {
	Intent     string  `json:"intent"`
	Confidence string  `json:"confidence"` // none | low | medium | high
	Score      float64 `json:"score"`      // similarity, 1 - distance
}

// ProposalDTO is the structured result of a completed tool execution.
type ProposalDTO struct {
	Bullets []string               `json:"bullets"`
	Data    map[string]interface{} `json:"data"`
}

// TurnResponse is the engine's reply for one turn.
type TurnResponse struct {
	Reply          string       `json:"reply"`
	Pending        []string     `json:"pending"`
	Route          RouteDTO     `json:"route"`
	Proposal       *ProposalDTO `json:"proposal,omitempty"`
	FeedbackPrompt bool         `json:"feedback_prompt"`
	CacheHit       bool         `json:"cache_hit"`
}

// FeedbackRequest carries the helpfulness signal for a session.
type FeedbackRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
	Helpful   *bool     `json:"helpful" validate:"required"`
}

type FeedbackResponse struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message"`
	Cleared bool   `json:"cleared"`
}
