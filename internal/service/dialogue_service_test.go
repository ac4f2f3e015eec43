package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/config"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/constant"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/dto"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/pkg/logger"
	memrepo "github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/memory"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/memorystore"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/semcache"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/slots"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/tools"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps utterances to fixed vectors. Unknown text gets a far-off
// default so it routes to none.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Generate(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

// patternExtractor runs the deterministic pattern rules, LLM-free.
type patternExtractor struct{}

func (patternExtractor) Extract(_ context.Context, utterance string, pending []string, filled map[string]string) (map[string]slots.ExtractedValue, error) {
	known := make(map[string]bool, len(pending)+len(filled))
	for _, slot := range pending {
		known[slot] = true
	}
	for slot := range filled {
		known[slot] = true
	}

	result := make(map[string]slots.ExtractedValue)
	for slot, value := range slots.ParseCorrections(utterance, known) {
		result[slot] = slots.ExtractedValue{Value: value, Corrected: filled[slot] != ""}
	}
	for slot, value := range slots.ExtractPatterns(utterance, pending) {
		if _, ok := result[slot]; !ok {
			result[slot] = slots.ExtractedValue{Value: value}
		}
	}
	return result, nil
}

// scriptedExtractor returns a fixed result.
type scriptedExtractor struct {
	result map[string]slots.ExtractedValue
	err    error
}

func (s *scriptedExtractor) Extract(context.Context, string, []string, map[string]string) (map[string]slots.ExtractedValue, error) {
	return s.result, s.err
}

var (
	loanVector     = []float32{1, 0, 0}
	cardVector     = []float32{0, 1, 0}
	offTopicVector = []float32{0, 0, 1}
	emiVector      = []float32{0.8, 0, 0.6} // loan-adjacent, distance 0.2 from the centroid
)

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"I want a personal loan":               loanVector,
		"I want to apply for a credit card":    cardVector,
		"what is the meaning of life":          offTopicVector,
		"What's the EMI for a 10 lakh loan?":   emiVector,
		"I need 10 lakhs for 60 months at 10%": loanVector,
	}
}

type fixture struct {
	service   IDialogueService
	states    *memrepo.SessionRepository
	memory    *memorystore.MemoryStore
	cache     semcache.Cache
	registry  *tools.Registry
	toolCalls *int
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	agent     config.AgentConfig
	embedder  *stubEmbedder
	extractor slots.Extractor
	loanTool  tools.Handler
	cache     semcache.Cache
}

func withAgentConfig(agent config.AgentConfig) fixtureOption {
	return func(fc *fixtureConfig) { fc.agent = agent }
}

func withExtractor(e slots.Extractor) fixtureOption {
	return func(fc *fixtureConfig) { fc.extractor = e }
}

func withEmbedder(e *stubEmbedder) fixtureOption {
	return func(fc *fixtureConfig) { fc.embedder = e }
}

func withLoanTool(h tools.Handler) fixtureOption {
	return func(fc *fixtureConfig) { fc.loanTool = h }
}

func withCache(c semcache.Cache) fixtureOption {
	return func(fc *fixtureConfig) { fc.cache = c }
}

func defaultAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		HighDistance:      0.2,
		MediumDistance:    0.35,
		CacheEnabled:      false,
		CacheDistance:     0.2,
		RouteNonePolicy:   config.RouteNonePolicyReuse,
		MaxToolFailures:   3,
		RecentWindow:      10,
		RelevantLimit:     5,
		RelevantDistance:  0.5,
		CapabilityTimeout: 5 * time.Second,
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	toolCalls := 0
	fc := &fixtureConfig{
		agent:     defaultAgentConfig(),
		embedder:  &stubEmbedder{vectors: testVectors()},
		extractor: patternExtractor{},
		cache:     semcache.NewNoopCache(),
		loanTool: tools.HandlerFunc(func(_ context.Context, inv tools.Invocation) (*tools.Result, error) {
			return &tools.Result{
				Summary: "Your EMI will be computed.",
				Bullets: []string{"Principal: " + inv.Slots["amount"]},
				Data:    map[string]any{"principal": inv.Slots["amount"]},
			}, nil
		}),
	}
	for _, opt := range opts {
		opt(fc)
	}

	index := routing.NewIndex(fc.embedder, fc.agent.HighDistance, fc.agent.MediumDistance)
	require.NoError(t, index.Register(routing.Intent{
		Name:            constant.IntentLoan,
		RequiredSlots:   []string{"amount", "tenure", "interest_rate"},
		RejectThreshold: 0.4,
		Priority:        1,
	}))
	require.NoError(t, index.Register(routing.Intent{
		Name:            constant.IntentCreditCard,
		RequiredSlots:   []string{"income", "card_type"},
		RejectThreshold: 0.4,
		Priority:        2,
	}))
	require.NoError(t, index.AddReferenceVector(constant.IntentLoan, loanVector))
	require.NoError(t, index.AddReferenceVector(constant.IntentCreditCard, cardVector))

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(constant.IntentLoan, tools.HandlerFunc(
		func(ctx context.Context, inv tools.Invocation) (*tools.Result, error) {
			toolCalls++
			return fc.loanTool.Execute(ctx, inv)
		})))
	require.NoError(t, registry.Register(constant.IntentCreditCard, tools.HandlerFunc(
		func(_ context.Context, _ tools.Invocation) (*tools.Result, error) {
			toolCalls++
			return &tools.Result{Summary: "Card recommended."}, nil
		})))

	states := memrepo.NewSessionRepository()
	memory := memorystore.NewMemoryStore(nil)

	svc := NewDialogueService(
		fc.agent,
		logger.NewNopLogger(),
		fc.embedder,
		index,
		fc.extractor,
		registry,
		memory,
		fc.cache,
		states,
		nil,
		nil,
	)

	return &fixture{
		service:   svc,
		states:    states,
		memory:    memory,
		cache:     fc.cache,
		registry:  registry,
		toolCalls: &toolCalls,
	}
}

func turn(t *testing.T, f *fixture, sessionId uuid.UUID, text string) *dto.TurnResponse {
	t.Helper()
	resp, err := f.service.Turn(context.Background(), &dto.TurnRequest{
		SessionId: sessionId,
		UserId:    "user-1",
		Text:      text,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestTurnValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Turn(context.Background(), &dto.TurnRequest{Text: "hello"})
	assert.Error(t, err, "missing session id must fail validation")

	_, err = f.service.Turn(context.Background(), &dto.TurnRequest{SessionId: uuid.New()})
	assert.Error(t, err, "missing text must fail validation")
}

func TestLoanSlotFillingAcrossTurns(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	// Turn 1: route to loan, nothing extractable, ask for the first slot.
	resp := turn(t, f, sessionId, "I want a personal loan")
	assert.Equal(t, constant.IntentLoan, resp.Route.Intent)
	assert.Equal(t, "high", resp.Route.Confidence)
	assert.Equal(t, []string{"amount", "tenure", "interest_rate"}, resp.Pending)
	assert.Equal(t, constant.SlotQuestions["amount"], resp.Reply)
	assert.False(t, resp.FeedbackPrompt)

	// Turn 2: short answer routes to none, intent reused, amount filled.
	resp = turn(t, f, sessionId, "10 lakhs")
	assert.Equal(t, constant.IntentLoan, resp.Route.Intent)
	assert.Equal(t, []string{"tenure", "interest_rate"}, resp.Pending)
	assert.Equal(t, constant.SlotQuestions["tenure"], resp.Reply)

	// Turn 3: tenure in years converts to months.
	resp = turn(t, f, sessionId, "5 years")
	assert.Equal(t, []string{"interest_rate"}, resp.Pending)
	assert.Equal(t, constant.SlotQuestions["interest_rate"], resp.Reply)

	// Turn 4: last slot closes the task, tool runs, summary + feedback.
	resp = turn(t, f, sessionId, "10.5%")
	assert.Empty(t, resp.Pending)
	assert.Equal(t, "Your EMI will be computed.", resp.Reply)
	require.NotNil(t, resp.Proposal)
	assert.Equal(t, []string{"Principal: 1000000"}, resp.Proposal.Bullets)
	assert.True(t, resp.FeedbackPrompt)
	assert.Equal(t, 1, *f.toolCalls)

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.True(t, state.AwaitingFeedback)
	assert.Equal(t, 4, state.TurnCount)

	// Every turn half landed in memory.
	recent, err := f.memory.Recent(context.Background(), sessionId, 100)
	require.NoError(t, err)
	assert.Len(t, recent, 8)
}

func TestUnknownIntentAsksForClarification(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	resp := turn(t, f, sessionId, "what is the meaning of life")
	assert.Equal(t, constant.ReplyUnknownIntent, resp.Reply)
	assert.Equal(t, "", resp.Route.Intent)
	assert.Equal(t, "none", resp.Route.Confidence)
	assert.Zero(t, *f.toolCalls)

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.False(t, state.HasActiveIntent())
}

func TestUnroutedUtteranceResumesEarlierIntent(t *testing.T) {
	agent := defaultAgentConfig()
	agent.RecentWindow = 2
	f := newFixture(t, withAgentConfig(agent))
	sessionId := uuid.New()
	ctx := context.Background()

	base := time.Now().Add(-10 * time.Minute)
	require.NoError(t, f.memory.Append(ctx, sessionId, "user-1",
		memorystore.Message{
			Id:        uuid.New(),
			Role:      constant.ChatMessageRoleUser,
			Text:      "I want a personal loan",
			Embedding: offTopicVector,
			Intent:    constant.IntentLoan,
			CreatedAt: base,
		},
		memorystore.Message{
			Id:        uuid.New(),
			Role:      constant.ChatMessageRoleAssistant,
			Text:      constant.SlotQuestions["amount"],
			Embedding: loanVector,
			CreatedAt: base.Add(time.Second),
		},
		// The last two messages are the recent window. The user one sits at
		// distance zero as well, but recency keeps it out of the relevance set.
		memorystore.Message{
			Id:        uuid.New(),
			Role:      constant.ChatMessageRoleUser,
			Text:      "I want to apply for a credit card",
			Embedding: offTopicVector,
			Intent:    constant.IntentCreditCard,
			CreatedAt: base.Add(2 * time.Second),
		},
		memorystore.Message{
			Id:        uuid.New(),
			Role:      constant.ChatMessageRoleAssistant,
			Text:      constant.SlotQuestions["income"],
			Embedding: cardVector,
			CreatedAt: base.Add(3 * time.Second),
		},
	))

	// Unroutable on its own, but lands on the older loan exchange.
	resp := turn(t, f, sessionId, "let's pick that back up")
	assert.Equal(t, constant.IntentLoan, resp.Route.Intent)
	assert.Equal(t, "low", resp.Route.Confidence)
	assert.Equal(t, []string{"amount", "tenure", "interest_rate"}, resp.Pending)
	assert.Equal(t, constant.SlotQuestions["amount"], resp.Reply)
}

func TestRouteNoneClarifyPolicyMidTask(t *testing.T) {
	agent := defaultAgentConfig()
	agent.RouteNonePolicy = config.RouteNonePolicyClarify
	f := newFixture(t, withAgentConfig(agent))
	sessionId := uuid.New()

	turn(t, f, sessionId, "I want a personal loan")
	resp := turn(t, f, sessionId, "10 lakhs")

	assert.Equal(t, constant.ReplyUnknownIntent, resp.Reply)

	// the clarify policy leaves the task where it was
	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, constant.IntentLoan, state.Intent)
	assert.Empty(t, state.Filled)
}

func TestIntentSwitchDropsSlots(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	turn(t, f, sessionId, "I want a personal loan")
	turn(t, f, sessionId, "10 lakhs")

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	require.Equal(t, "1000000", state.Filled["amount"])

	resp := turn(t, f, sessionId, "I want to apply for a credit card")
	assert.Equal(t, constant.IntentCreditCard, resp.Route.Intent)
	assert.Equal(t, []string{"income", "card_type"}, resp.Pending)

	state, found = f.states.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, constant.IntentCreditCard, state.Intent)
	assert.Empty(t, state.Filled, "slots are intent-scoped and must be dropped on switch")
}

func TestCorrectionProtocolOverwritesFilledSlot(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	turn(t, f, sessionId, "I want a personal loan")
	turn(t, f, sessionId, "10 lakhs")

	resp := turn(t, f, sessionId, "change the amount to 750000")
	assert.Equal(t, constant.SlotQuestions["tenure"], resp.Reply, "correction must not advance the slot question")

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, "750000", state.Filled["amount"])
}

func TestFilledSlotNeverSilentlyOverwritten(t *testing.T) {
	f := newFixture(t, withExtractor(&scriptedExtractor{
		result: map[string]slots.ExtractedValue{
			"amount": {Value: "999"},
		},
	}))
	sessionId := uuid.New()

	turn(t, f, sessionId, "I want a personal loan")

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	require.Equal(t, "999", state.Filled["amount"], "pending slot accepts the extracted value")

	// Same uncorrected value arrives again for a now-filled slot.
	state.Filled["amount"] = "1000000"
	f.states.Save(sessionId.String(), state)

	turn(t, f, sessionId, "10 lakhs")

	state, found = f.states.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, "1000000", state.Filled["amount"], "uncorrected value must not replace a filled slot")
}

func TestToolRetryBudgetAbortsTask(t *testing.T) {
	f := newFixture(t, withLoanTool(tools.HandlerFunc(
		func(context.Context, tools.Invocation) (*tools.Result, error) {
			return nil, errors.New("downstream unavailable")
		})))
	sessionId := uuid.New()

	resp := turn(t, f, sessionId, "I need 10 lakhs for 60 months at 10%")
	assert.Equal(t, constant.ReplyToolFailed, resp.Reply)
	assert.False(t, resp.FeedbackPrompt)

	resp = turn(t, f, sessionId, "please try again")
	assert.Equal(t, constant.ReplyToolFailed, resp.Reply)

	resp = turn(t, f, sessionId, "try once more")
	assert.Equal(t, constant.ReplyTaskAborted, resp.Reply)

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.False(t, state.HasActiveIntent(), "aborted task must clear the intent")
	assert.Zero(t, state.ToolFailures)
}

func TestCapabilityFailureCommitsNothing(t *testing.T) {
	f := newFixture(t, withEmbedder(&stubEmbedder{err: errors.New("connection refused")}))
	sessionId := uuid.New()

	resp := turn(t, f, sessionId, "I want a personal loan")
	assert.Equal(t, constant.ReplyCapabilityDown, resp.Reply)

	_, found := f.states.Get(sessionId.String())
	assert.False(t, found, "failed turn must not create state")

	recent, err := f.memory.Recent(context.Background(), sessionId, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "failed turn must not append to memory")
}

func TestExtractionFailureCommitsNothing(t *testing.T) {
	f := newFixture(t, withExtractor(&scriptedExtractor{err: errors.New("llm capability unavailable")}))
	sessionId := uuid.New()

	resp := turn(t, f, sessionId, "I want a personal loan")
	assert.Equal(t, constant.ReplyCapabilityDown, resp.Reply)

	_, found := f.states.Get(sessionId.String())
	assert.False(t, found)
}

func TestCacheHitSkipsPipelineButFeedsMemory(t *testing.T) {
	agent := defaultAgentConfig()
	agent.CacheEnabled = true
	cache := semcache.NewMemoryCache(agent.CacheDistance, 100)
	f := newFixture(t, withAgentConfig(agent), withCache(cache))
	sessionId := uuid.New()

	require.NoError(t, cache.Store(context.Background(), semcache.Entry{
		Vector:  emiVector,
		Reply:   "Your EMI will be ₹21,494 per month.",
		Bullets: []string{"Monthly EMI: ₹21,494"},
	}))

	resp := turn(t, f, sessionId, "What's the EMI for a 10 lakh loan?")
	assert.True(t, resp.CacheHit)
	assert.Equal(t, "Your EMI will be ₹21,494 per month.", resp.Reply)
	assert.Equal(t, "none", resp.Route.Confidence, "cache hits report no route")
	require.NotNil(t, resp.Proposal)
	assert.Zero(t, *f.toolCalls, "cache hit must skip router, extractor and tools")

	recent, err := f.memory.Recent(context.Background(), sessionId, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2, "cached replies still land in memory")
}

func TestCacheBypassedMidTask(t *testing.T) {
	agent := defaultAgentConfig()
	agent.CacheEnabled = true
	agent.CacheDistance = 0.1
	cache := semcache.NewMemoryCache(agent.CacheDistance, 100)
	f := newFixture(t, withAgentConfig(agent), withCache(cache))
	sessionId := uuid.New()

	require.NoError(t, cache.Store(context.Background(), semcache.Entry{
		Vector: emiVector,
		Reply:  "stale cached answer",
	}))

	turn(t, f, sessionId, "I want a personal loan")
	resp := turn(t, f, sessionId, "What's the EMI for a 10 lakh loan?")

	assert.False(t, resp.CacheHit, "active task must bypass the cache")
	assert.NotEqual(t, "stale cached answer", resp.Reply)
}

func TestTurnIsDeterministic(t *testing.T) {
	var first *dto.TurnResponse
	for i := 0; i < 5; i++ {
		f := newFixture(t)
		sessionId := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

		turn(t, f, sessionId, "I want a personal loan")
		resp := turn(t, f, sessionId, "10 lakhs")
		if first == nil {
			first = resp
			continue
		}
		assert.Equal(t, first.Reply, resp.Reply)
		assert.Equal(t, first.Pending, resp.Pending)
		assert.Equal(t, first.Route, resp.Route)
	}
}

func TestFeedbackHelpfulClearsMemoryAndState(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	turn(t, f, sessionId, "I need 10 lakhs for 60 months at 10%")

	helpful := true
	resp, err := f.service.Feedback(context.Background(), &dto.FeedbackRequest{
		SessionId: sessionId,
		Helpful:   &helpful,
	})
	require.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.True(t, resp.Cleared)
	assert.Equal(t, constant.ReplyFeedbackThanks, resp.Message)

	recent, err := f.memory.Recent(context.Background(), sessionId, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.False(t, state.HasActiveIntent())
	assert.False(t, state.AwaitingFeedback)
}

func TestFeedbackNotHelpfulKeepsMemory(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	turn(t, f, sessionId, "I need 10 lakhs for 60 months at 10%")

	helpful := false
	resp, err := f.service.Feedback(context.Background(), &dto.FeedbackRequest{
		SessionId: sessionId,
		Helpful:   &helpful,
	})
	require.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.False(t, resp.Cleared)
	assert.Equal(t, constant.ReplyFeedbackKept, resp.Message)

	recent, err := f.memory.Recent(context.Background(), sessionId, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, recent, "unhelpful feedback keeps the conversation")

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, constant.IntentLoan, state.Intent, "slots survive for refinement")
}

func TestUnsolicitedFeedbackPreservesTaskState(t *testing.T) {
	f := newFixture(t)
	sessionId := uuid.New()

	// Mid-task: amount filled, no feedback prompt pending.
	turn(t, f, sessionId, "I want a personal loan")
	turn(t, f, sessionId, "10 lakhs")

	helpful := true
	resp, err := f.service.Feedback(context.Background(), &dto.FeedbackRequest{
		SessionId: sessionId,
		Helpful:   &helpful,
	})
	require.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.True(t, resp.Cleared)

	state, found := f.states.Get(sessionId.String())
	require.True(t, found)
	assert.Equal(t, constant.IntentLoan, state.Intent, "feedback outside the prompt window must not reset the task")
	assert.Equal(t, "1000000", state.Filled["amount"])
	assert.Equal(t, []string{"tenure", "interest_rate"}, state.Pending)

	recent, err := f.memory.Recent(context.Background(), sessionId, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "memory clear applies regardless of the prompt window")
}

func TestSessionLockReusedUntilEvicted(t *testing.T) {
	f := newFixture(t)
	svc := f.service.(*dialogueService)

	first := svc.sessionLock("session-a")
	assert.Same(t, first, svc.sessionLock("session-a"))
	assert.NotSame(t, first, svc.sessionLock("session-b"))

	svc.locks.Delete("session-a")
	assert.NotSame(t, first, svc.sessionLock("session-a"), "evicted sessions get a fresh lock")
}

func TestFeedbackWithoutSessionIsAccepted(t *testing.T) {
	f := newFixture(t)

	helpful := true
	resp, err := f.service.Feedback(context.Background(), &dto.FeedbackRequest{
		SessionId: uuid.New(),
		Helpful:   &helpful,
	})
	require.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.True(t, resp.Cleared, "clearing an empty session is a no-op, not an error")
}
