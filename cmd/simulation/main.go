package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/bootstrap"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/config"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/constant"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/dto"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/pkg/logger"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/memory"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/service"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/tracer"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/database"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/memorystore"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/semcache"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	userColor   = color.New(color.FgCyan, color.Bold)
	agentColor  = color.New(color.FgGreen)
	routeColor  = color.New(color.FgYellow)
	bulletColor = color.New(color.FgWhite)
	cacheColor  = color.New(color.FgMagenta, color.Bold)
	titleColor  = color.New(color.FgHiBlue, color.Bold)
)

func main() {
	live := flag.Bool("live", false, "wire real providers (Ollama, Postgres, Redis, NATS) from the environment")
	interactive := flag.Bool("interactive", false, "drop into a chat prompt after the scripted scenarios")
	flag.Parse()

	ctx := context.Background()

	var svc service.IDialogueService
	if *live {
		shutdownTracer := tracer.InitTracer()
		defer shutdownTracer(ctx)

		cfg := config.Load()
		var db *gorm.DB
		if cfg.Database.Connection == "" {
			log.Println("[WARN] DB_CONNECTION_STRING not set, running without durable memory")
		} else {
			var err error
			db, err = database.NewGormDBFromDSN(cfg.Database.Connection)
			if err != nil {
				log.Fatalf("Unable to connect to GORM DB: %v", err)
			}
		}
		container := bootstrap.NewContainer(db, cfg, newBankingRegistry())
		go func() {
			if err := container.ConsumerService.Consume(ctx); err != nil {
				log.Printf("Background Consumer Error: %v", err)
			}
		}()
		svc = container.DialogueService
	} else {
		svc = newOfflineService(ctx)
	}

	titleColor.Println("=== Banking Dialogue Agent Simulation ===")
	runScript(ctx, svc)

	if *interactive {
		repl(ctx, svc)
	}
}

// newOfflineService wires the engine entirely in process: hash embeddings,
// pattern-only slot extraction, in-memory conversation store and cache. The
// hash embedder is coarse, so the routing bands are widened accordingly.
func newOfflineService(ctx context.Context) service.IDialogueService {
	agent := config.AgentConfig{
		HighDistance:      0.55,
		MediumDistance:    0.75,
		CacheEnabled:      true,
		CacheDistance:     0.15,
		CacheMaxSize:      100,
		RouteNonePolicy:   config.RouteNonePolicyReuse,
		MaxToolFailures:   3,
		RecentWindow:      10,
		RelevantLimit:     5,
		RelevantDistance:  0.9,
		CapabilityTimeout: 5 * time.Second,
	}

	sysLogger := logger.NewNopLogger()
	embedder := newHashEmbedder()

	index := routing.NewIndex(embedder, agent.HighDistance, agent.MediumDistance)
	for _, seed := range constant.IntentSeeds {
		if err := index.Register(routing.Intent{
			Name:            seed.Name,
			DisplayName:     seed.DisplayName,
			RequiredSlots:   seed.RequiredSlots,
			RejectThreshold: 0.9, // hash vectors sit much farther apart than model vectors
			Priority:        seed.Priority,
		}); err != nil {
			log.Fatalf("Failed to register intent %s: %v", seed.Name, err)
		}
		for _, phrase := range seed.References {
			if err := index.AddReference(ctx, seed.Name, phrase); err != nil {
				log.Fatalf("Failed to embed reference for %s: %v", seed.Name, err)
			}
		}
	}

	cache := semcache.NewMemoryCache(agent.CacheDistance, agent.CacheMaxSize)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	publisherService := service.NewPublisherService(constant.TopicCacheStore, pubSub)
	consumerService := service.NewConsumerService(pubSub, constant.TopicCacheStore, cache, sysLogger)
	go func() {
		if err := consumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	return service.NewDialogueService(
		agent,
		sysLogger,
		embedder,
		index,
		patternExtractor{},
		newBankingRegistry(),
		memorystore.NewMemoryStore(embedder),
		cache,
		memory.NewSessionRepository(),
		publisherService,
		nil, // no NATS offline
	)
}

func runScript(ctx context.Context, svc service.IDialogueService) {
	loanSession := uuid.New()
	titleColor.Println("\n--- Scenario: loan EMI across turns ---")
	turn(ctx, svc, loanSession, "I need a personal loan")
	turn(ctx, svc, loanSession, "around 10 lakhs")
	turn(ctx, svc, loanSession, "5 years")
	turn(ctx, svc, loanSession, "10.5%")
	feedback(ctx, svc, loanSession, true)

	correctionSession := uuid.New()
	titleColor.Println("\n--- Scenario: correcting a filled slot ---")
	turn(ctx, svc, correctionSession, "I need a personal loan")
	turn(ctx, svc, correctionSession, "10 lakhs")
	turn(ctx, svc, correctionSession, "change the amount to 750000")
	turn(ctx, svc, correctionSession, "3 years")
	turn(ctx, svc, correctionSession, "9%")
	feedback(ctx, svc, correctionSession, false)

	policySession := uuid.New()
	titleColor.Println("\n--- Scenario: policy question, no slots ---")
	turn(ctx, svc, policySession, "What are your branch timings?")

	titleColor.Println("\n--- Scenario: semantic cache across sessions ---")
	turn(ctx, svc, uuid.New(), "I want to invest 200000 in a fixed deposit for 12 months")
	time.Sleep(200 * time.Millisecond) // let the cache-store consumer catch up
	turn(ctx, svc, uuid.New(), "I want to invest 200000 in a fixed deposit for 12 months")
}

func turn(ctx context.Context, svc service.IDialogueService, sessionId uuid.UUID, text string) *dto.TurnResponse {
	userColor.Printf("\nUSER: %s\n", text)

	resp, err := svc.Turn(ctx, &dto.TurnRequest{
		SessionId: sessionId,
		UserId:    "simulation",
		Text:      text,
	})
	if err != nil {
		color.Red("Error: %v", err)
		return nil
	}

	if resp.CacheHit {
		cacheColor.Println("[CACHE HIT]")
	} else if resp.Route.Intent != "" {
		routeColor.Printf("[route: %s, confidence=%s, score=%.3f]\n",
			resp.Route.Intent, resp.Route.Confidence, resp.Route.Score)
	}
	agentColor.Printf("AGENT: %s\n", resp.Reply)
	if resp.Proposal != nil {
		for _, bullet := range resp.Proposal.Bullets {
			bulletColor.Printf("  - %s\n", bullet)
		}
	}
	if resp.FeedbackPrompt {
		agentColor.Printf("AGENT: %s\n", constant.FeedbackQuestion)
	}
	return resp
}

func feedback(ctx context.Context, svc service.IDialogueService, sessionId uuid.UUID, helpful bool) {
	answer := "no"
	if helpful {
		answer = "yes"
	}
	userColor.Printf("\nUSER: %s\n", answer)

	resp, err := svc.Feedback(ctx, &dto.FeedbackRequest{
		SessionId: sessionId,
		Helpful:   &helpful,
	})
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	agentColor.Printf("AGENT: %s\n", resp.Message)
	if resp.Cleared {
		routeColor.Println("[conversation memory cleared]")
	}
}

func repl(ctx context.Context, svc service.IDialogueService) {
	sessionId := uuid.New()
	titleColor.Printf("\n--- Interactive mode (session %s) - type 'exit' to quit ---\n", sessionId)

	scanner := bufio.NewScanner(os.Stdin)
	awaitingFeedback := false
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			return
		}

		if awaitingFeedback {
			if answer := strings.ToLower(text); answer == "yes" || answer == "no" {
				helpful := answer == "yes"
				resp, err := svc.Feedback(ctx, &dto.FeedbackRequest{SessionId: sessionId, Helpful: &helpful})
				if err != nil {
					color.Red("Error: %v", err)
				} else {
					agentColor.Printf("AGENT: %s\n", resp.Message)
				}
				awaitingFeedback = false
				continue
			}
		}

		resp := turn(ctx, svc, sessionId, text)
		awaitingFeedback = resp != nil && resp.FeedbackPrompt
	}
}
