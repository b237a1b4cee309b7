package dto

import (
	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/internal/service"
)

type ToolCall struct {
	ID        string `json:"id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Arguments string `json:"arguments"`
}

type Message struct {
	Role       string     `json:"role" binding:"required,oneof=user assistant tool"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" binding:"omitempty,dive"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

type ChatRequest struct {
	Message string    `json:"message" binding:"required"`
	History []Message `json:"history" binding:"omitempty,dive"`
}

type ChatResponse struct {
	TurnID   string    `json:"turn_id"`
	Response string    `json:"response"`
	History  []Message `json:"history"`
	Outcome  string    `json:"outcome"`
}

func (r ChatRequest) ToService(turnID string) service.ChatRequest {
	return service.ChatRequest{
		TurnID:  turnID,
		Message: r.Message,
		History: ToLLMMessages(r.History),
	}
}

func ToChatResponse(res *service.ChatResult) ChatResponse {
	return ChatResponse{
		TurnID:   res.TurnID,
		Response: res.Response,
		History:  FromLLMMessages(res.History),
		Outcome:  string(res.Outcome),
	}
}

func ToLLMMessages(msgs []Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		msg := llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			IsError:    m.IsError,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		out = append(out, msg)
	}
	return out
}

func FromLLMMessages(msgs []llm.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		msg := Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			IsError:    m.IsError,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		out = append(out, msg)
	}
	return out
}

// StreamEvent is one server-sent event of a chat turn.
type StreamEvent struct {
	TurnID     string    `json:"turn_id"`
	Type       string    `json:"type"`
	Content    string    `json:"content,omitempty"`
	Name       string    `json:"name,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Iteration  int       `json:"iteration,omitempty"`
	History    []Message `json:"history,omitempty"`
}
