package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// A chat turn sets TurnID once; the dispatcher adds ToolName/ToolCallID per call,
// so every log line below carries them without passing them around.
type LogFields struct {
	RequestID       *string // HTTP request ID (X-Request-Id)
	TurnID          *string // One conversation turn
	ToolName        *string
	ToolCallID      *string
	InvestigationID *string
	Component       string // e.g. "factoryops.brain.orchestrator"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.RequestID != nil {
		result.RequestID = next.RequestID
	}
	if next.TurnID != nil {
		result.TurnID = next.TurnID
	}
	if next.ToolName != nil {
		result.ToolName = next.ToolName
	}
	if next.ToolCallID != nil {
		result.ToolCallID = next.ToolCallID
	}
	if next.InvestigationID != nil {
		result.InvestigationID = next.InvestigationID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TurnID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
