package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const streamPrefix = "manimatic:events:"

// streamSubscriber is one registered handler. It receives events until its
// context is done.
type streamSubscriber struct {
	ctx     context.Context
	handler ports.EventHandler
}

// StreamsEventBus implements EventBus using Redis Streams. Each topic has a
// single consumer-group reader per process; events read from the stream fan
// out to every subscriber, so short-lived subscribers (websocket
// connections) never compete with the worker pool for deliveries.
type StreamsEventBus struct {
	client        *redis.Client
	logger        *zap.Logger
	consumerGroup string
	consumerName  string

	cancel context.CancelFunc
	root   context.Context
	wg     sync.WaitGroup

	mu      sync.Mutex
	subs    map[string][]*streamSubscriber
	reading map[string]bool
}

// NewStreamsEventBus creates a new Redis Streams event bus
func NewStreamsEventBus(client *redis.Client, consumerGroup, consumerName string, logger *zap.Logger) *StreamsEventBus {
	root, cancel := context.WithCancel(context.Background())
	return &StreamsEventBus{
		client:        client,
		logger:        logger,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		cancel:        cancel,
		root:          root,
		subs:          make(map[string][]*streamSubscriber),
		reading:       make(map[string]bool),
	}
}

// Publish appends an event to the topic's stream (ports.EventBus interface)
func (e *StreamsEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: streamPrefix + topic,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}
	if _, err := e.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("generation_id", event.GenerationID),
		zap.String("topic", topic))

	return nil
}

// Subscribe registers a handler for a topic (ports.EventBus interface).
// The first subscription on a topic starts the topic's group reader; the
// handler stops receiving events once ctx is done.
func (e *StreamsEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	streamKey := streamPrefix + topic
	sub := &streamSubscriber{ctx: ctx, handler: handler}

	e.mu.Lock()
	e.subs[topic] = append(e.subs[topic], sub)
	first := !e.reading[topic]
	if first {
		e.reading[topic] = true
	}
	e.mu.Unlock()

	if !first {
		return nil
	}

	err := e.client.XGroupCreateMkStream(ctx, streamKey, e.consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		e.mu.Lock()
		e.reading[topic] = false
		e.dropSubscriberLocked(topic, sub)
		e.mu.Unlock()
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	e.logger.Info("subscribed to event stream",
		zap.String("stream", streamKey),
		zap.String("consumer_group", e.consumerGroup),
		zap.String("consumer", e.consumerName))

	e.wg.Add(1)
	go e.readStream(streamKey, topic)

	return nil
}

// Close stops all stream readers (ports.EventBus interface)
func (e *StreamsEventBus) Close() error {
	e.cancel()
	e.wg.Wait()
	return nil
}

func (e *StreamsEventBus) dropSubscriberLocked(topic string, sub *streamSubscriber) {
	subs := e.subs[topic]
	for i, s := range subs {
		if s == sub {
			e.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (e *StreamsEventBus) readStream(streamKey, topic string) {
	defer e.wg.Done()

	for {
		select {
		case <-e.root.Done():
			return
		default:
		}

		streams, err := e.client.XReadGroup(e.root, &redis.XReadGroupArgs{
			Group:    e.consumerGroup,
			Consumer: e.consumerName,
			Streams:  []string{streamKey, ">"},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if e.root.Err() != nil {
				return
			}
			e.logger.Error("failed to read from stream",
				zap.String("stream", streamKey),
				zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				e.processMessage(streamKey, topic, message)
			}
		}
	}
}

func (e *StreamsEventBus) processMessage(streamKey, topic string, message redis.XMessage) {
	data, ok := message.Values["data"].(string)
	if !ok {
		e.logger.Error("invalid message format",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID))
		return
	}

	var event domain.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		e.logger.Error("failed to unmarshal event",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	e.deliver(topic, event)

	if err := e.client.XAck(e.root, streamKey, e.consumerGroup, message.ID).Err(); err != nil {
		e.logger.Error("failed to acknowledge message",
			zap.String("stream", streamKey),
			zap.String("message_id", message.ID),
			zap.Error(err))
	}
}

// deliver fans an event out to every live subscriber on the topic and drops
// subscribers whose contexts are done.
func (e *StreamsEventBus) deliver(topic string, event domain.Event) {
	e.mu.Lock()
	subs := e.subs[topic]
	kept := subs[:0]
	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		kept = append(kept, s)
	}
	e.subs[topic] = kept
	active := append([]*streamSubscriber(nil), kept...)
	e.mu.Unlock()

	for _, s := range active {
		if err := s.handler(s.ctx, event); err != nil {
			e.logger.Error("handler error",
				zap.String("topic", topic),
				zap.String("event_id", event.ID),
				zap.String("generation_id", event.GenerationID),
				zap.Error(err))
		}
	}
}
