package service

import (
	"context"
	"encoding/json"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/dto"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/pkg/logger"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/semcache"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the cache-store topic and writes completed answers
// into the semantic cache, off the request path.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	cache     semcache.Cache
	log       logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	cache semcache.Cache,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		cache:     cache,
		log:       log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.CacheStoreMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal cache-store message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	err := cs.cache.Store(ctx, semcache.Entry{
		Vector:  payload.Vector,
		Reply:   payload.Reply,
		Bullets: payload.Bullets,
		Data:    payload.Data,
	})
	if err != nil {
		cs.log.Error("consumer", "failed to store cache entry", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		msg.Nack() // Nack for retriable errors
		return
	}

	cs.log.Info("consumer", "cached completed answer", map[string]interface{}{
		"session_id": payload.SessionId,
	})
	msg.Ack()
}
