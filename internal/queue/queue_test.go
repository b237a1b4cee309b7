package queue_test

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"factoryops.app/assistant/internal/queue"
)

var _ = Describe("ParseEvent", func() {
	It("reads a complete entry", func() {
		ev, err := queue.ParseEvent(redis.XMessage{
			ID: "1731578400000-0",
			Values: map[string]any{
				"turn_id":      "turn-1",
				"type":         "tool_result",
				"name":         "calculate_oee",
				"tool_call_id": "call_1",
				"status":       "complete",
				"iteration":    "2",
				"at":           "2024-11-14T10:00:00Z",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.ID).To(Equal("1731578400000-0"))
		Expect(ev.Type).To(Equal("tool_result"))
		Expect(ev.Iteration).To(Equal(2))
		Expect(ev.At).To(Equal(time.Date(2024, 11, 14, 10, 0, 0, 0, time.UTC)))
		Expect(ev.Content).To(BeEmpty())
		Expect(ev.Terminal()).To(BeFalse())
	})

	DescribeTable("rejects malformed entries",
		func(values map[string]any, fragment string) {
			_, err := queue.ParseEvent(redis.XMessage{ID: "1-0", Values: values})
			Expect(err).To(MatchError(ContainSubstring(fragment)))
		},
		Entry("missing turn id", map[string]any{"type": "done"}, "missing turn_id"),
		Entry("missing type", map[string]any{"turn_id": "t"}, "missing type"),
		Entry("bad iteration", map[string]any{"turn_id": "t", "type": "status", "iteration": "x"}, "parsing iteration"),
		Entry("bad timestamp", map[string]any{"turn_id": "t", "type": "status", "at": "yesterday"}, "parsing at"),
	)

	It("treats done and error as terminal", func() {
		Expect(queue.TurnEvent{Type: queue.EventTypeDone}.Terminal()).To(BeTrue())
		Expect(queue.TurnEvent{Type: queue.EventTypeError}.Terminal()).To(BeTrue())
	})
})

var _ = Describe("NopProducer", func() {
	It("accepts events without a backend", func() {
		p := queue.NopProducer()
		Expect(p.Publish(context.Background(), queue.TurnEvent{TurnID: "t", Type: "status"})).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})
})

var _ = Describe("Redis turn streams", func() {
	var (
		ctx      context.Context
		client   *redis.Client
		producer queue.Producer
		reader   *queue.RedisReader
		prefix   string
	)

	BeforeEach(func() {
		url := os.Getenv("REDIS_URL")
		if url == "" {
			Skip("REDIS_URL not set")
		}
		opts, err := redis.ParseURL(url)
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
		client = redis.NewClient(opts)
		prefix = "factoryops-test:" + uuid.NewString() + ":"
		producer = queue.NewRedisProducer(client, queue.ProducerConfig{StreamPrefix: prefix, TTL: time.Minute}, nil)
		reader = queue.NewRedisReader(client, queue.ReaderConfig{StreamPrefix: prefix, Block: 50 * time.Millisecond})
		DeferCleanup(producer.Close)
	})

	It("replays published events in order", func() {
		for _, typ := range []string{"status", "tool_call", "tool_result", "delta", "done"} {
			Expect(producer.Publish(ctx, queue.TurnEvent{TurnID: "turn-1", Type: typ, Iteration: 1})).To(Succeed())
		}

		events, err := reader.Replay(ctx, "turn-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(5))
		Expect(events[0].Type).To(Equal("status"))
		Expect(events[4].Terminal()).To(BeTrue())

		ttl, err := client.TTL(ctx, queue.TurnStreamName(prefix, "turn-1")).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(ttl).To(BeNumerically(">", 0))
	})

	It("tails only events after the given id", func() {
		Expect(producer.Publish(ctx, queue.TurnEvent{TurnID: "turn-2", Type: "status"})).To(Succeed())
		first, err := reader.Replay(ctx, "turn-2")
		Expect(err).NotTo(HaveOccurred())

		Expect(producer.Publish(ctx, queue.TurnEvent{TurnID: "turn-2", Type: "done", Content: "ok"})).To(Succeed())
		next, err := reader.Tail(ctx, "turn-2", first[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(HaveLen(1))
		Expect(next[0].Content).To(Equal("ok"))

		empty, err := reader.Tail(ctx, "turn-2", next[0].ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(empty).To(BeEmpty())
	})

	It("reports unknown turns", func() {
		_, err := reader.Replay(ctx, "nope")
		Expect(err).To(MatchError(queue.ErrTurnNotFound))
	})
})
