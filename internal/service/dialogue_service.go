package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/config"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/constant"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/dto"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/pkg/logger"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/pkg/validation"
	memrepo "github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/memory"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/embedding"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/events"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/memorystore"
	pktNats "github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/nats"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/semcache"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/slots"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/tools"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type IDialogueService interface {
	Turn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
	Feedback(ctx context.Context, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error)
}

type dialogueService struct {
	cfg config.AgentConfig
	log logger.ILogger

	embedder  embedding.EmbeddingProvider
	index     *routing.Index
	extractor slots.Extractor
	registry  *tools.Registry
	memory    memorystore.Store
	cache     semcache.Cache
	states    *memrepo.SessionRepository

	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher

	tracer trace.Tracer

	// Per-session serialization. Distinct sessions run in parallel; locks
	// expire with the same idle TTL as the dialogue state.
	locksMu sync.Mutex
	locks   *gocache.Cache
}

func NewDialogueService(
	cfg config.AgentConfig,
	log logger.ILogger,
	embedder embedding.EmbeddingProvider,
	index *routing.Index,
	extractor slots.Extractor,
	registry *tools.Registry,
	memory memorystore.Store,
	cache semcache.Cache,
	states *memrepo.SessionRepository,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IDialogueService {
	return &dialogueService{
		cfg:              cfg,
		log:              log,
		embedder:         embedder,
		index:            index,
		extractor:        extractor,
		registry:         registry,
		memory:           memory,
		cache:            cache,
		states:           states,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		tracer:           otel.Tracer("dialogue-service"),
		locks:            gocache.New(1*time.Hour, 10*time.Minute),
	}
}

func (s *dialogueService) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if x, found := s.locks.Get(sessionID); found {
		lock := x.(*sync.Mutex)
		s.locks.Set(sessionID, lock, gocache.DefaultExpiration)
		return lock
	}
	lock := &sync.Mutex{}
	s.locks.Set(sessionID, lock, gocache.DefaultExpiration)
	return lock
}

func (s *dialogueService) Turn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}

	sessionID := req.SessionId.String()
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := s.tracer.Start(ctx, "dialogue.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	// Work on a copy. State and memory commit together at the end of the
	// turn; a failed turn leaves both untouched.
	state := s.loadStateCopy(sessionID)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.CapabilityTimeout)
	defer cancel()

	vector, err := s.embedUtterance(cctx, req.Text)
	if err != nil {
		s.log.Error("dialogue", "embedding failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return s.capabilityDownResponse(state), nil
	}

	// 1. Semantic cache. Only consulted outside an active task: mid-task
	// answers like "24" must reach the slot merge, not replay an old reply.
	if s.cfg.CacheEnabled && !state.HasActiveIntent() {
		if resp := s.checkCache(cctx, vector); resp != nil {
			if err := s.commitTurn(cctx, req, state, vector, resp); err != nil {
				return s.capabilityDownResponse(state), nil
			}
			return resp, nil
		}
	}

	// 2. Route. tier none falls back to the configured policy.
	route := s.routeUtterance(cctx, req.SessionId, vector, state)
	if route == nil {
		resp := &dto.TurnResponse{
			Reply:   constant.ReplyUnknownIntent,
			Pending: copyPending(state.Pending),
			Route:   dto.RouteDTO{Confidence: string(routing.TierNone)},
		}
		if err := s.commitTurn(cctx, req, state, vector, resp); err != nil {
			return s.capabilityDownResponse(state), nil
		}
		return resp, nil
	}

	intent, ok := s.index.Intent(route.Intent)
	if !ok {
		// registry and index are seeded together, this is a wiring bug
		s.log.Error("dialogue", "routed to unregistered intent", map[string]interface{}{
			"intent": route.Intent,
		})
		return s.capabilityDownResponse(state), nil
	}

	// 3. Intent adoption or switch. Slots are intent-scoped: switching
	// drops everything collected for the old task.
	if state.Intent != intent.Name {
		state.Intent = intent.Name
		state.Filled = make(map[string]string)
		state.Pending = copyPending(intent.RequiredSlots)
		state.ToolFailures = 0
		state.AwaitingFeedback = false
	}

	routeDTO := dto.RouteDTO{
		Intent:     route.Intent,
		Confidence: string(route.Tier),
		Score:      math.Round(route.Score*1000) / 1000,
	}

	// 4. Merge slots.
	if len(intent.RequiredSlots) > 0 {
		if err := s.mergeSlots(cctx, req.Text, intent, state); err != nil {
			s.log.Error("dialogue", "slot extraction failed", map[string]interface{}{
				"session_id": sessionID,
				"intent":     intent.Name,
				"error":      err.Error(),
			})
			return s.capabilityDownResponse(state), nil
		}
	}

	// 5. Ask or execute.
	if len(state.Pending) > 0 {
		resp := &dto.TurnResponse{
			Reply:   askQuestion(state.Pending[0]),
			Pending: copyPending(state.Pending),
			Route:   routeDTO,
		}
		if err := s.commitTurn(cctx, req, state, vector, resp); err != nil {
			return s.capabilityDownResponse(state), nil
		}
		return resp, nil
	}

	resp := s.execute(cctx, req, state, routeDTO, vector)
	if err := s.commitTurn(cctx, req, state, vector, resp); err != nil {
		return s.capabilityDownResponse(state), nil
	}
	return resp, nil
}

// routeUtterance classifies the query vector and applies the route-none
// policy. A nil result means the turn should ask for clarification.
func (s *dialogueService) routeUtterance(ctx context.Context, sessionId uuid.UUID, vector []float32, state *memrepo.DialogueState) *routing.RouteResult {
	ctx, span := s.tracer.Start(ctx, "dialogue.route")
	defer span.End()

	result := s.index.RouteVector(vector)
	span.SetAttributes(
		attribute.String("route.intent", result.Intent),
		attribute.String("route.tier", string(result.Tier)),
	)

	if result.Tier == routing.TierNone {
		if state.HasActiveIntent() {
			if s.cfg.RouteNonePolicy == config.RouteNonePolicyClarify {
				return nil
			}
			// Mid-task utterances like "24" rarely route on their own;
			// keep the task going under the current intent.
			return s.reuseCurrentIntent(state)
		}
		// Outside a task, fall back to conversation memory: an utterance
		// close to an earlier exchange resumes that exchange's intent.
		return s.recallIntent(ctx, sessionId, vector)
	}

	// A weak match never steals an active task.
	if state.HasActiveIntent() && result.Intent != state.Intent && result.Tier == routing.TierLow {
		return s.reuseCurrentIntent(state)
	}

	return result
}

// recallIntent searches conversation memory beyond the recent window for a
// user message near the query vector and resumes its recorded intent. The
// exclusion keeps the relevance set disjoint from the recent one.
func (s *dialogueService) recallIntent(ctx context.Context, sessionId uuid.UUID, vector []float32) *routing.RouteResult {
	recent, err := s.memory.Recent(ctx, sessionId, s.cfg.RecentWindow)
	if err != nil {
		s.log.Warn("dialogue", "recent window read failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return nil
	}

	exclude := make([]uuid.UUID, 0, len(recent))
	for _, msg := range recent {
		exclude = append(exclude, msg.Id)
	}

	related, err := s.memory.Relevant(ctx, sessionId, vector, s.cfg.RelevantLimit, s.cfg.RelevantDistance, exclude)
	if err != nil {
		s.log.Warn("dialogue", "relevance query failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return nil
	}

	for _, hit := range related {
		msg := hit.Message
		if msg.Role != constant.ChatMessageRoleUser || msg.Intent == "" {
			continue
		}
		if _, registered := s.index.Intent(msg.Intent); !registered {
			continue
		}
		return &routing.RouteResult{
			Intent:   msg.Intent,
			Tier:     routing.TierLow,
			Score:    1 - hit.Distance,
			Distance: hit.Distance,
		}
	}
	return nil
}

func (s *dialogueService) reuseCurrentIntent(state *memrepo.DialogueState) *routing.RouteResult {
	return &routing.RouteResult{
		Intent:   state.Intent,
		Tier:     routing.TierHigh,
		Score:    0.95,
		Distance: 0.05,
	}
}

func (s *dialogueService) embedUtterance(ctx context.Context, text string) ([]float32, error) {
	_, span := s.tracer.Start(ctx, "dialogue.embed")
	defer span.End()
	return s.embedder.Generate(ctx, text)
}

func (s *dialogueService) checkCache(ctx context.Context, vector []float32) *dto.TurnResponse {
	entry, hit, err := s.cache.Check(ctx, vector)
	if err != nil {
		// a broken cache never breaks the turn
		s.log.Warn("dialogue", "semantic cache check failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if !hit {
		return nil
	}

	resp := &dto.TurnResponse{
		Reply:    entry.Reply,
		Pending:  []string{},
		Route:    dto.RouteDTO{Confidence: string(routing.TierNone)},
		CacheHit: true,
	}
	if len(entry.Bullets) > 0 || len(entry.Data) > 0 {
		resp.Proposal = &dto.ProposalDTO{Bullets: entry.Bullets, Data: entry.Data}
	}
	return resp
}

func (s *dialogueService) mergeSlots(ctx context.Context, text string, intent *routing.Intent, state *memrepo.DialogueState) error {
	ctx, span := s.tracer.Start(ctx, "dialogue.extract_slots")
	defer span.End()

	extracted, err := s.extractor.Extract(ctx, text, copyPending(state.Pending), state.Filled)
	if err != nil {
		return err
	}

	pendingSet := make(map[string]bool, len(state.Pending))
	for _, slot := range state.Pending {
		pendingSet[slot] = true
	}

	for slot, value := range extracted {
		_, alreadyFilled := state.Filled[slot]
		switch {
		case pendingSet[slot]:
			state.Filled[slot] = value.Value
		case alreadyFilled && value.Corrected:
			state.Filled[slot] = value.Value
		default:
			// filled slots are never silently overwritten
		}
	}

	// pending = required - filled, in declared order
	state.Pending = state.Pending[:0]
	for _, slot := range intent.RequiredSlots {
		if _, ok := state.Filled[slot]; !ok {
			state.Pending = append(state.Pending, slot)
		}
	}
	return nil
}

func (s *dialogueService) execute(ctx context.Context, req *dto.TurnRequest, state *memrepo.DialogueState, routeDTO dto.RouteDTO, vector []float32) *dto.TurnResponse {
	ctx, span := s.tracer.Start(ctx, "dialogue.execute_tool",
		trace.WithAttributes(attribute.String("tool.name", state.Intent)))
	defer span.End()

	result, err := s.registry.Execute(ctx, state.Intent, tools.Invocation{
		Slots:     state.Filled,
		Utterance: req.Text,
	})
	if err != nil {
		if errors.Is(err, tools.ErrNotRegistered) {
			s.log.Error("dialogue", "no tool for routed intent", map[string]interface{}{
				"intent": state.Intent,
			})
			state.ResetTask()
			return &dto.TurnResponse{
				Reply:   constant.ReplyNoHandler,
				Pending: []string{},
				Route:   routeDTO,
			}
		}

		state.ToolFailures++
		s.log.Warn("dialogue", "tool execution failed", map[string]interface{}{
			"session_id": req.SessionId.String(),
			"intent":     state.Intent,
			"failures":   state.ToolFailures,
			"error":      err.Error(),
		})

		if state.ToolFailures >= s.cfg.MaxToolFailures {
			s.publishEvent(ctx, events.NewTaskAbortedEvent(req.SessionId.String(), state.Intent, state.ToolFailures))
			state.ResetTask()
			return &dto.TurnResponse{
				Reply:   constant.ReplyTaskAborted,
				Pending: []string{},
				Route:   routeDTO,
			}
		}

		return &dto.TurnResponse{
			Reply:   constant.ReplyToolFailed,
			Pending: copyPending(state.Pending),
			Route:   routeDTO,
		}
	}

	// SUMMARIZE
	state.ToolFailures = 0
	state.AwaitingFeedback = true
	state.LastSummary = result.Summary

	s.publishEvent(ctx, events.NewTaskExecutedEvent(req.SessionId.String(), state.Intent, state.Filled))
	s.publishCacheStore(ctx, req.SessionId.String(), vector, result)

	return &dto.TurnResponse{
		Reply:          result.Summary,
		Pending:        []string{},
		Route:          routeDTO,
		Proposal:       &dto.ProposalDTO{Bullets: result.Bullets, Data: result.Data},
		FeedbackPrompt: true,
	}
}

// publishCacheStore hands the completed answer to the cache-store topic.
// Ask-replies never get here: only summarized tool results are cacheable.
func (s *dialogueService) publishCacheStore(ctx context.Context, sessionID string, vector []float32, result *tools.Result) {
	if !s.cfg.CacheEnabled || s.publisherService == nil {
		return
	}

	payload, err := json.Marshal(dto.CacheStoreMessage{
		SessionId: sessionID,
		Vector:    vector,
		Reply:     result.Summary,
		Bullets:   result.Bullets,
		Data:      result.Data,
	})
	if err != nil {
		s.log.Warn("dialogue", "failed to marshal cache-store message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.log.Warn("dialogue", "failed to publish cache-store message", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// commitTurn appends both turn halves to memory and persists the dialogue
// state. Nothing is saved when the append fails.
func (s *dialogueService) commitTurn(ctx context.Context, req *dto.TurnRequest, state *memrepo.DialogueState, vector []float32, resp *dto.TurnResponse) error {
	messages := []memorystore.Message{
		{
			Role:       constant.ChatMessageRoleUser,
			Text:       req.Text,
			Embedding:  vector,
			Intent:     resp.Route.Intent,
			Confidence: resp.Route.Confidence,
			Score:      resp.Route.Score,
		},
		{
			Role: constant.ChatMessageRoleAssistant,
			Text: resp.Reply,
		},
	}

	if err := s.memory.Append(ctx, req.SessionId, req.UserId, messages...); err != nil {
		s.log.Error("dialogue", "memory append failed, turn not committed", map[string]interface{}{
			"session_id": req.SessionId.String(),
			"error":      err.Error(),
		})
		return err
	}

	state.TurnCount++
	s.states.Save(req.SessionId.String(), state)

	s.publishEvent(ctx, events.NewTurnCompletedEvent(
		req.SessionId.String(), resp.Route.Intent, resp.Route.Confidence, resp.CacheHit))
	return nil
}

func (s *dialogueService) Feedback(ctx context.Context, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}

	sessionID := req.SessionId.String()
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := s.tracer.Start(ctx, "dialogue.feedback",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	helpful := *req.Helpful
	state, found := s.states.Get(sessionID)
	if found && !state.AwaitingFeedback {
		// feedback outside the prompt window is accepted, not an error
		s.log.Info("dialogue", "unsolicited feedback", map[string]interface{}{
			"session_id": sessionID,
			"helpful":    helpful,
		})
	}

	s.publishEvent(ctx, events.NewFeedbackReceivedEvent(sessionID, helpful))

	if !helpful {
		if found && state.AwaitingFeedback {
			state.AwaitingFeedback = false
			s.states.Save(sessionID, state)
		}
		return &dto.FeedbackResponse{
			Ok:      true,
			Message: constant.ReplyFeedbackKept,
			Cleared: false,
		}, nil
	}

	removed, err := s.memory.Clear(ctx, req.SessionId)
	if err != nil {
		return nil, fmt.Errorf("clear conversation memory: %w", err)
	}

	// The awaiting flag gates the state transition; unsolicited feedback
	// clears memory but leaves a running task untouched.
	if found && state.AwaitingFeedback {
		state.ResetTask()
		s.states.Save(sessionID, state)
	}

	s.publishEvent(ctx, events.NewMemoryClearedEvent(sessionID, removed))

	return &dto.FeedbackResponse{
		Ok:      true,
		Message: constant.ReplyFeedbackThanks,
		Cleared: true,
	}, nil
}

func (s *dialogueService) loadStateCopy(sessionID string) *memrepo.DialogueState {
	existing, found := s.states.Get(sessionID)
	if !found {
		return memrepo.NewDialogueState()
	}

	clone := *existing
	clone.Filled = make(map[string]string, len(existing.Filled))
	for k, v := range existing.Filled {
		clone.Filled[k] = v
	}
	clone.Pending = copyPending(existing.Pending)
	return &clone
}

func (s *dialogueService) capabilityDownResponse(state *memrepo.DialogueState) *dto.TurnResponse {
	return &dto.TurnResponse{
		Reply:   constant.ReplyCapabilityDown,
		Pending: copyPending(state.Pending),
		Route:   dto.RouteDTO{Confidence: string(routing.TierNone)},
	}
}

func (s *dialogueService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.log.Warn("dialogue", "failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func askQuestion(slot string) string {
	if question, ok := constant.SlotQuestions[slot]; ok {
		return question
	}
	return fmt.Sprintf("Could you provide: %s?", slot)
}

func copyPending(pending []string) []string {
	out := make([]string, len(pending))
	copy(out, pending)
	return out
}
