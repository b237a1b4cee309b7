package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/http/dto"
	"factoryops.app/assistant/internal/queue"
	"factoryops.app/assistant/internal/service"
)

const TurnIDHeader = "X-Turn-Id"

// TurnEventReader reads the recorded events of a turn. It is nil when no
// redis is configured.
type TurnEventReader interface {
	Replay(ctx context.Context, turnID string) ([]queue.TurnEvent, error)
	Tail(ctx context.Context, turnID, afterID string) ([]queue.TurnEvent, error)
}

type ChatHandler struct {
	chat   service.ChatService
	events TurnEventReader
}

func NewChatHandler(chat service.ChatService, events TurnEventReader) *ChatHandler {
	return &ChatHandler{chat: chat, events: events}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.chat.Chat(ctx, req.ToService(""))
	if err != nil {
		respondError(c, err, "failed to process chat message")
		return
	}

	c.Header(TurnIDHeader, res.TurnID)
	c.JSON(http.StatusOK, dto.ToChatResponse(res))
}

// Stream runs a turn and sends each step as a server-sent event. Errors found
// before the first event are plain JSON responses.
func (h *ChatHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	turnID := uuid.NewString()
	started := false
	obs := brain.ObserverFunc(func(_ context.Context, ev brain.Event) {
		if !started {
			started = true
			setSSEHeaders(c.Writer)
			c.Header(TurnIDHeader, turnID)
			c.Status(http.StatusOK)
		}
		sseWrite(c.Writer, string(ev.Type), toStreamEvent(turnID, ev))
		flusher.Flush()
	})

	_, err := h.chat.Stream(ctx, req.ToService(turnID), obs)
	if err == nil {
		return
	}
	if !started {
		respondError(c, err, "failed to process chat message")
		return
	}
	// Transport failures already produced an error event.
	if !errors.Is(err, brain.ErrTransport) {
		slog.ErrorContext(ctx, "chat stream failed", "error", err)
		sseWrite(c.Writer, string(brain.EventError), dto.StreamEvent{TurnID: turnID, Type: string(brain.EventError), Content: "failed to process chat message"})
		flusher.Flush()
	}
}

// TurnEvents replays a turn's recorded events, then follows the stream until
// the turn finishes or the client leaves. last_id resumes after an event id.
func (h *ChatHandler) TurnEvents(c *gin.Context) {
	ctx := c.Request.Context()
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "turn event stream not configured"})
		return
	}

	turnID := c.Param("turn_id")
	lastID := c.Query("last_id")

	var (
		events []queue.TurnEvent
		err    error
	)
	if lastID == "" {
		events, err = h.events.Replay(ctx, turnID)
		if err != nil {
			respondError(c, err, "failed to read turn events")
			return
		}
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)

	for {
		for _, ev := range events {
			lastID = ev.ID
			sseWriteID(c.Writer, ev.ID, ev.Type, dto.StreamEvent{
				TurnID:     ev.TurnID,
				Type:       ev.Type,
				Content:    ev.Content,
				Name:       ev.Name,
				ToolCallID: ev.ToolCallID,
				Status:     ev.Status,
				Iteration:  ev.Iteration,
			})
			flusher.Flush()
			if ev.Terminal() {
				return
			}
		}

		if ctx.Err() != nil {
			return
		}

		events, err = h.events.Tail(ctx, turnID, lastID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "turn event tail failed", "turn_id", turnID, "error", err)
			sseWrite(c.Writer, "error", map[string]string{"error": "turn event stream unavailable"})
			flusher.Flush()
			return
		}
		if len(events) == 0 {
			sseWrite(c.Writer, "ping", time.Now().UTC().Format(time.RFC3339Nano))
			flusher.Flush()
		}
	}
}

func toStreamEvent(turnID string, ev brain.Event) dto.StreamEvent {
	out := dto.StreamEvent{
		TurnID:     turnID,
		Type:       string(ev.Type),
		Content:    ev.Content,
		Name:       ev.Name,
		ToolCallID: ev.ToolCallID,
		Status:     ev.Status,
		Iteration:  ev.Iteration,
	}
	if ev.Type == brain.EventDone {
		out.History = dto.FromLLMMessages(ev.History)
	}
	return out
}
