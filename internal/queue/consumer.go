package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"factoryops.app/assistant/common/logger"
)

// ErrTurnNotFound means the turn has no event stream, either because it never
// ran with redis configured or because the stream expired.
var ErrTurnNotFound = errors.New("turn events not found")

type ReaderConfig struct {
	StreamPrefix string
	BatchSize    int64         // entries per read
	Block        time.Duration // how long one Tail call waits for new entries
}

// RedisReader reads turn event streams for replay and live tailing.
type RedisReader struct {
	client *redis.Client
	cfg    ReaderConfig
}

func NewRedisReader(client *redis.Client, cfg ReaderConfig) *RedisReader {
	if cfg.StreamPrefix == "" {
		cfg.StreamPrefix = DefaultStreamPrefix
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &RedisReader{client: client, cfg: cfg}
}

// Replay returns every event recorded for the turn, oldest first.
func (r *RedisReader) Replay(ctx context.Context, turnID string) ([]TurnEvent, error) {
	stream := TurnStreamName(r.cfg.StreamPrefix, turnID)

	msgs, err := r.client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("reading turn stream: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTurnNotFound, turnID)
	}
	return r.parseAll(ctx, stream, msgs), nil
}

// Tail returns events after afterID, blocking up to the configured Block
// when none are there yet. An empty result means the wait timed out.
func (r *RedisReader) Tail(ctx context.Context, turnID, afterID string) ([]TurnEvent, error) {
	if afterID == "" {
		afterID = "0"
	}
	stream := TurnStreamName(r.cfg.StreamPrefix, turnID)

	streams, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, afterID},
		Count:   r.cfg.BatchSize,
		Block:   r.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []TurnEvent{}, nil
		}
		return nil, fmt.Errorf("tailing turn stream: %w", err)
	}

	var events []TurnEvent
	// Only one stream is read, so this runs once.
	for _, s := range streams {
		events = append(events, r.parseAll(ctx, stream, s.Messages)...)
	}
	return events, nil
}

func (r *RedisReader) parseAll(ctx context.Context, stream string, msgs []redis.XMessage) []TurnEvent {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "factoryops.queue.reader"})

	events := make([]TurnEvent, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := ParseEvent(msg)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse turn event",
				"error", err,
				"raw_message_id", msg.ID,
				"stream", stream)
			continue
		}
		events = append(events, ev)
	}
	return events
}

func ParseEvent(msg redis.XMessage) (TurnEvent, error) {
	turnID, err := parseString(msg.Values, "turn_id")
	if err != nil {
		return TurnEvent{}, err
	}
	eventType, err := parseString(msg.Values, "type")
	if err != nil {
		return TurnEvent{}, err
	}
	iteration, err := parseOptionalInt(msg.Values, "iteration")
	if err != nil {
		return TurnEvent{}, err
	}

	var at time.Time
	if raw := parseOptionalString(msg.Values, "at"); raw != "" {
		at, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return TurnEvent{}, fmt.Errorf("parsing at: %w", err)
		}
	}

	return TurnEvent{
		ID:         msg.ID,
		TurnID:     turnID,
		Type:       eventType,
		Content:    parseOptionalString(msg.Values, "content"),
		Name:       parseOptionalString(msg.Values, "name"),
		ToolCallID: parseOptionalString(msg.Values, "tool_call_id"),
		Status:     parseOptionalString(msg.Values, "status"),
		Iteration:  iteration,
		At:         at,
	}, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
