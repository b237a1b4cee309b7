package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// TurnEvent is one step of a chat turn as written to its event stream.
type TurnEvent struct {
	ID         string // stream entry id, set on read
	TurnID     string
	Type       string
	Content    string
	Name       string
	ToolCallID string
	Status     string
	Iteration  int
	At         time.Time
}

// Terminal reports whether no further events follow ev on its stream.
func (ev TurnEvent) Terminal() bool {
	return ev.Type == EventTypeDone || ev.Type == EventTypeError
}

const (
	EventTypeDone  = "done"
	EventTypeError = "error"
)

type Producer interface {
	Publish(ctx context.Context, ev TurnEvent) error
	Close() error
}

type ProducerConfig struct {
	StreamPrefix string        // streams are named StreamPrefix + turn id
	MaxLen       int64         // approximate cap on entries per stream
	TTL          time.Duration // streams expire this long after their last event
}

type redisProducer struct {
	client *redis.Client
	cfg    ProducerConfig
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, cfg ProducerConfig, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = DefaultStreamPrefix
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 500
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &redisProducer{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, ev TurnEvent) error {
	if ev.TurnID == "" {
		return fmt.Errorf("publish turn event: missing turn id")
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	stream := TurnStreamName(p.cfg.StreamPrefix, ev.TurnID)
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: p.cfg.MaxLen,
			Approx: true,
			Values: eventValues(ev),
		})
		pipe.Expire(ctx, stream, p.cfg.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish turn event: %w", err)
	}

	p.logger.DebugContext(ctx, "published turn event", "stream", stream, "event_type", ev.Type, "iteration", ev.Iteration)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

type nopProducer struct{}

// NopProducer drops every event. It is used when no redis is configured.
func NopProducer() Producer {
	return nopProducer{}
}

func (nopProducer) Publish(context.Context, TurnEvent) error { return nil }
func (nopProducer) Close() error                             { return nil }

const DefaultStreamPrefix = "factoryops:turn:"

func TurnStreamName(prefix, turnID string) string {
	return prefix + turnID
}

func eventValues(ev TurnEvent) map[string]any {
	values := map[string]any{
		"turn_id":   ev.TurnID,
		"type":      ev.Type,
		"iteration": ev.Iteration,
		"at":        ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.Content != "" {
		values["content"] = ev.Content
	}
	if ev.Name != "" {
		values["name"] = ev.Name
	}
	if ev.ToolCallID != "" {
		values["tool_call_id"] = ev.ToolCallID
	}
	if ev.Status != "" {
		values["status"] = ev.Status
	}
	return values
}
