package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/queue"
)

var ErrInvalidHistory = errors.New("invalid conversation history")

type ChatRequest struct {
	TurnID  string // generated when empty
	Message string
	History []llm.Message
}

type ChatResult struct {
	TurnID   string
	Response string
	History  []llm.Message
	Outcome  brain.Outcome
}

type ChatService interface {
	// Chat runs one turn and returns the answer with the updated history.
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
	// Stream is Chat with every turn event also sent to obs.
	Stream(ctx context.Context, req ChatRequest, obs brain.Observer) (*ChatResult, error)
}

type chatService struct {
	orchestrator *brain.Orchestrator
	source       data.Source
	memory       *memory.Repository
	factoryName  string
	producer     queue.Producer
}

func NewChatService(orchestrator *brain.Orchestrator, source data.Source, mem *memory.Repository, factoryName string, producer queue.Producer) ChatService {
	if producer == nil {
		producer = queue.NopProducer()
	}
	return &chatService{
		orchestrator: orchestrator,
		source:       source,
		memory:       mem,
		factoryName:  factoryName,
		producer:     producer,
	}
}

func (s *chatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	return s.Stream(ctx, req, nil)
}

func (s *chatService) Stream(ctx context.Context, req ChatRequest, obs brain.Observer) (*ChatResult, error) {
	if err := validateHistory(req.History); err != nil {
		return nil, err
	}

	turnID := req.TurnID
	if turnID == "" {
		turnID = uuid.NewString()
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "factoryops.service.chat",
		TurnID:    logger.Ptr(turnID),
	})

	publisher := &turnPublisher{producer: s.producer, turnID: turnID}
	observers := brain.Observers{publisher, obs}

	// One snapshot per turn: a reload mid-turn must not split the prompt's
	// data window from the data the tools read.
	snap := s.source.Snapshot()
	prompt := s.systemPrompt(ctx, snap)
	res, err := s.orchestrator.RunWithSnapshot(ctx, snap, prompt, req.History, req.Message, observers)
	if err != nil {
		var terr *brain.TransportError
		if errors.As(err, &terr) {
			observers.OnEvent(ctx, brain.Event{Type: brain.EventError, Content: "The language model is unavailable right now. Please try again."})
		}
		return nil, err
	}

	return &ChatResult{
		TurnID:   turnID,
		Response: res.Answer,
		History:  res.History,
		Outcome:  res.Outcome,
	}, nil
}

// systemPrompt renders the prompt for one turn. A failing memory backend
// degrades to a prompt without the memory section.
func (s *chatService) systemPrompt(ctx context.Context, snap *model.Snapshot) string {
	pc := brain.PromptContext{
		FactoryName: s.factoryName,
		Snapshot:    snap,
		Today:       s.memory.Today(),
	}

	summary, err := s.memory.ShiftSummary(ctx)
	if err != nil {
		slog.WarnContext(ctx, "memory digest unavailable, building prompt without it", "error", err)
	} else {
		pc.Memory = brain.DigestFromShiftSummary(summary)
	}

	return brain.BuildSystemPrompt(pc)
}

// Clients send back the history a previous turn returned. System messages are
// server-side only, and tool results must answer a tool call.
func validateHistory(history []llm.Message) error {
	for i, m := range history {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant:
		case llm.RoleTool:
			if m.ToolCallID == "" {
				return fmt.Errorf("%w: tool message %d has no tool_call_id", ErrInvalidHistory, i)
			}
		default:
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	return nil
}

// turnPublisher copies turn events to the turn's redis stream. Publishing
// failures are logged and never fail the turn.
type turnPublisher struct {
	producer queue.Producer
	turnID   string
}

func (p *turnPublisher) OnEvent(ctx context.Context, ev brain.Event) {
	err := p.producer.Publish(ctx, queue.TurnEvent{
		TurnID:     p.turnID,
		Type:       string(ev.Type),
		Content:    ev.Content,
		Name:       ev.Name,
		ToolCallID: ev.ToolCallID,
		Status:     ev.Status,
		Iteration:  ev.Iteration,
		At:         time.Now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish turn event", "event_type", string(ev.Type), "error", err)
	}
}
