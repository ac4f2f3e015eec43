package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// DialogueState is the live task state of one session. It only exists
// between the first routed turn and the task reset; durable history lives
// in the message store.
type DialogueState struct {
	Intent           string
	Filled           map[string]string
	Pending          []string
	ToolFailures     int
	AwaitingFeedback bool
	LastSummary      string
	TurnCount        int
	UpdatedAt        time.Time
}

func NewDialogueState() *DialogueState {
	return &DialogueState{
		Filled:  make(map[string]string),
		Pending: []string{},
	}
}

// HasActiveIntent reports whether the session is mid-task.
func (s *DialogueState) HasActiveIntent() bool {
	return s.Intent != ""
}

// ResetTask clears the task-scoped fields while keeping the turn counter.
func (s *DialogueState) ResetTask() {
	s.Intent = ""
	s.Filled = make(map[string]string)
	s.Pending = []string{}
	s.ToolFailures = 0
	s.AwaitingFeedback = false
	s.LastSummary = ""
}

type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(sessionID string, state *DialogueState) {
	state.UpdatedAt = time.Now()
	r.cache.Set(sessionID, state, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*DialogueState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*DialogueState), true
	}
	return nil, false
}

func (r *SessionRepository) GetOrCreate(sessionID string) *DialogueState {
	if state, found := r.Get(sessionID); found {
		return state
	}
	state := NewDialogueState()
	r.Save(sessionID, state)
	return state
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
