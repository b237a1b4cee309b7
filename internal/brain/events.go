package brain

import (
	"context"

	"factoryops.app/assistant/common/llm"
)

type EventType string

const (
	EventStatus     EventType = "status"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDelta      EventType = "delta"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one step of a turn as seen by streaming clients.
type Event struct {
	Type       EventType     `json:"type"`
	Content    string        `json:"content,omitempty"`
	Name       string        `json:"name,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Status     string        `json:"status,omitempty"`
	Iteration  int           `json:"iteration,omitempty"`
	History    []llm.Message `json:"history,omitempty"`
}

// Observer receives turn events in order. Implementations must not block for long;
// the turn waits on each call.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }

type nopObserver struct{}

func (nopObserver) OnEvent(context.Context, Event) {}

// Observers fans one event out to several observers.
type Observers []Observer

func (o Observers) OnEvent(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEvent(ctx, ev)
		}
	}
}
