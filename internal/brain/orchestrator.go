package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/model"
)

const DefaultMaxIterations = 6

const (
	// RefusalMessage answers input the sanitizer rejected. No model call is made.
	RefusalMessage = "I can't help with that request. Please ask about factory metrics, investigations, or actions."
	// FallbackMessage answers turns that hit the iteration bound.
	FallbackMessage = "I wasn't able to complete that request within the allowed number of steps. Please try a narrower question, for example a single machine or a shorter date range."
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport     = errors.New("language model transport failure")
	ErrEmptyMessage  = errors.New("message is empty")
	errNoModelClient = errors.New("no language model client configured")
)

// TransportError is the only error Converse returns once a turn has started.
// Tool and handler failures never surface here; they are fed back to the model.
type TransportError struct {
	Err        error
	Timeout    bool
	Retryable  bool
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("language model call failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Outcome says how a turn ended.
type Outcome string

const (
	OutcomeAnswered       Outcome = "answered"
	OutcomeRefused        Outcome = "refused"
	OutcomeIterationLimit Outcome = "iteration_limit"
)

type OrchestratorConfig struct {
	MaxIterations int // bound on model calls per turn
	MaxTokens     int
	Temperature   *float64
}

type Orchestrator struct {
	cfg        OrchestratorConfig
	llm        llm.AgentClient
	dispatcher *Dispatcher
	sanitizer  *Sanitizer
	source     data.Source
	tools      []llm.Tool
}

func NewOrchestrator(cfg OrchestratorConfig, client llm.AgentClient, dispatcher *Dispatcher, sanitizer *Sanitizer, source data.Source) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if sanitizer == nil {
		sanitizer = NewSanitizer(SanitizerModeLog)
	}
	return &Orchestrator{
		cfg:        cfg,
		llm:        client,
		dispatcher: dispatcher,
		sanitizer:  sanitizer,
		source:     source,
		tools:      Definitions(),
	}
}

// TurnResult is the full record of one turn.
type TurnResult struct {
	Answer     string
	History    []llm.Message
	Outcome    Outcome
	Iterations int
	ToolCalls  int
}

// Converse runs one turn. history is never modified; the returned history
// is a new slice holding history plus this turn's messages.
func (o *Orchestrator) Converse(ctx context.Context, systemPrompt string, history []llm.Message, userMessage string) (string, []llm.Message, error) {
	res, err := o.Run(ctx, systemPrompt, history, userMessage, nil)
	if err != nil {
		return "", nil, err
	}
	return res.Answer, res.History, nil
}

type turnState int

const (
	stateSanitize turnState = iota
	stateBuild
	stateCallModel
	stateDispatch
	stateDone
)

// Run is Converse with per-step events sent to obs.
func (o *Orchestrator) Run(ctx context.Context, systemPrompt string, history []llm.Message, userMessage string, obs Observer) (*TurnResult, error) {
	var snap *model.Snapshot
	if o.source != nil {
		snap = o.source.Snapshot()
	}
	return o.RunWithSnapshot(ctx, snap, systemPrompt, history, userMessage, obs)
}

// RunWithSnapshot runs a turn whose tools compute over snap. Callers that
// render the system prompt from a snapshot pass that same snapshot here.
func (o *Orchestrator) RunWithSnapshot(ctx context.Context, snap *model.Snapshot, systemPrompt string, history []llm.Message, userMessage string, obs Observer) (*TurnResult, error) {
	if obs == nil {
		obs = nopObserver{}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "factoryops.brain.orchestrator"})
	sc := logger.StartSpan(ctx, "brain.converse")
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()

	var (
		state     = stateSanitize
		sanitized string
		messages  []llm.Message
		pending   *llm.AgentResponse
		result    = &TurnResult{}
		promptTok int
		complTok  int
	)

	for state != stateDone {
		switch state {
		case stateSanitize:
			res := o.sanitizer.Sanitize(ctx, userMessage)
			if res.Rejected {
				slog.WarnContext(ctx, "user message rejected by sanitizer", "patterns", res.Matches)
				result.Answer = RefusalMessage
				result.Outcome = OutcomeRefused
				// Neither the rejected text nor the refusal enters the history:
				// replaying it would hand the blocked input to the model next
				// turn, and a lone refusal would open the history with an
				// assistant message.
				result.History = append([]llm.Message{}, history...)
				state = stateDone
				continue
			}
			if res.Text == "" {
				return nil, ErrEmptyMessage
			}
			if o.llm == nil {
				return nil, &TransportError{Err: errNoModelClient}
			}
			sanitized = res.Text
			state = stateBuild

		case stateBuild:
			messages = make([]llm.Message, 0, len(history)+2*o.cfg.MaxIterations+2)
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
			messages = append(messages, history...)
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: sanitized})
			obs.OnEvent(ctx, Event{Type: EventStatus, Content: "Thinking..."})
			state = stateCallModel

		case stateCallModel:
			if result.Iterations >= o.cfg.MaxIterations {
				slog.WarnContext(ctx, "iteration bound reached, returning fallback answer",
					"iterations", result.Iterations,
					"tool_calls", result.ToolCalls)
				result.Answer = FallbackMessage
				result.Outcome = OutcomeIterationLimit
				messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: FallbackMessage})
				state = stateDone
				continue
			}
			result.Iterations++

			callStart := time.Now()
			resp, err := o.llm.ChatWithTools(ctx, llm.AgentRequest{
				Messages:    messages,
				Tools:       o.tools,
				MaxTokens:   o.cfg.MaxTokens,
				Temperature: o.cfg.Temperature,
			})
			if err != nil {
				terr := &TransportError{
					Err:        err,
					Timeout:    llm.IsTimeout(err),
					Retryable:  llm.IsRetryable(ctx, err),
					StatusCode: llm.StatusCode(err),
				}
				sc.RecordError(terr)
				slog.ErrorContext(ctx, "model call failed",
					"iteration", result.Iterations,
					"timeout", terr.Timeout,
					"status_code", terr.StatusCode,
					"error", err)
				return nil, terr
			}

			promptTok += resp.PromptTokens
			complTok += resp.CompletionTokens
			slog.DebugContext(ctx, "model call completed",
				"iteration", result.Iterations,
				"tool_calls", len(resp.ToolCalls),
				"prompt_tokens", resp.PromptTokens,
				"completion_tokens", resp.CompletionTokens,
				"duration_ms", time.Since(callStart).Milliseconds())

			if len(resp.ToolCalls) == 0 {
				result.Answer = resp.Content
				result.Outcome = OutcomeAnswered
				messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
				state = stateDone
				continue
			}
			pending = resp
			state = stateDispatch

		case stateDispatch:
			messages = append(messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   pending.Content,
				ToolCalls: pending.ToolCalls,
			})

			// Sequential, in model order: later calls may depend on earlier ones.
			for _, tc := range pending.ToolCalls {
				obs.OnEvent(ctx, Event{Type: EventToolCall, Name: tc.Name, ToolCallID: tc.ID, Status: "executing", Iteration: result.Iterations})

				res := o.dispatcher.Dispatch(ctx, snap, tc)
				result.ToolCalls++

				status := "complete"
				if res.IsError() {
					status = "failed"
				}
				obs.OnEvent(ctx, Event{Type: EventToolResult, Name: tc.Name, ToolCallID: tc.ID, Status: status, Iteration: result.Iterations})

				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    res.Content(),
					ToolCallID: tc.ID,
					IsError:    res.IsError(),
				})
			}
			pending = nil
			obs.OnEvent(ctx, Event{Type: EventStatus, Content: "Analyzing results..."})
			state = stateCallModel
		}
	}

	if result.History == nil {
		result.History = slices.Clone(messages[1:])
	}

	sc.SetAttributes(
		attribute.String("turn.outcome", string(result.Outcome)),
		attribute.Int("turn.iterations", result.Iterations),
		attribute.Int("turn.tool_calls", result.ToolCalls),
	)
	slog.InfoContext(ctx, "turn completed",
		"outcome", string(result.Outcome),
		"iterations", result.Iterations,
		"tool_calls", result.ToolCalls,
		"prompt_tokens", promptTok,
		"completion_tokens", complTok,
		"duration_ms", time.Since(start).Milliseconds())

	if result.Answer != "" {
		obs.OnEvent(ctx, Event{Type: EventDelta, Content: result.Answer})
	}
	obs.OnEvent(ctx, Event{Type: EventDone, Content: result.Answer, History: result.History})
	return result, nil
}
