package brain_test

import (
	"context"
	"sync"
	"time"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/model"
)

// stubModel implements llm.AgentClient and records every request.
type stubModel struct {
	mu        sync.Mutex
	respondFn func(call int, req llm.AgentRequest) (*llm.AgentResponse, error)
	requests  []llm.AgentRequest
	callCount int
}

func (m *stubModel) ChatWithTools(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	m.mu.Lock()
	m.callCount++
	call := m.callCount
	m.requests = append(m.requests, llm.AgentRequest{Messages: append([]llm.Message(nil), req.Messages...), Tools: req.Tools})
	m.mu.Unlock()

	if m.respondFn != nil {
		return m.respondFn(call, req)
	}
	return &llm.AgentResponse{Content: "ok", FinishReason: "stop"}, nil
}

func (m *stubModel) Model() string { return "stub" }

func (m *stubModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func toolCall(id string, name string, args string) *llm.AgentResponse {
	return &llm.AgentResponse{
		FinishReason: "tool_calls",
		ToolCalls:    []llm.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

func answer(text string) *llm.AgentResponse {
	return &llm.AgentResponse{Content: text, FinishReason: "stop"}
}

// slowModel blocks until its context is done.
type slowModel struct{}

func (slowModel) ChatWithTools(ctx context.Context, _ llm.AgentRequest) (*llm.AgentResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return answer("too late"), nil
	}
}

func (slowModel) Model() string { return "slow" }

// failingMemory implements brain.Memory with every call failing.
type failingMemory struct {
	err error
}

func (f failingMemory) CreateInvestigation(context.Context, memory.NewInvestigation) (*model.Investigation, error) {
	return nil, f.err
}

func (f failingMemory) UpdateInvestigation(context.Context, string, memory.InvestigationUpdate) (*model.Investigation, error) {
	return nil, f.err
}

func (f failingMemory) CreateAction(context.Context, memory.NewAction) (*model.Action, error) {
	return nil, f.err
}

func (f failingMemory) PendingFollowups(context.Context) ([]model.Action, error) {
	return nil, f.err
}

func (f failingMemory) RelevantMemories(context.Context, model.InvestigationFilter) (*memory.Relevant, error) {
	return nil, f.err
}

// scenarioSnapshot spans 2024-10-15..2024-11-14 with CNC-001 totalling
// 300h uptime, 20h downtime, 1000 parts, 940 good.
func scenarioSnapshot() *model.Snapshot {
	return &model.Snapshot{
		StartDate: "2024-10-15",
		EndDate:   "2024-11-14",
		Machines:  []model.Machine{{ID: 1, Name: "CNC-001", Type: "CNC Machining Center", IdealCycleTimeSecs: 45}},
		Shifts: []model.Shift{
			{ID: 1, Name: "Day", StartHour: 6, EndHour: 14},
			{ID: 2, Name: "Night", StartHour: 14, EndHour: 22},
		},
		Production: map[string]map[string]model.ProductionRecord{
			"2024-10-15": {"CNC-001": {PartsProduced: 600, GoodParts: 560, ScrapParts: 40, UptimeHours: 150, DowntimeHours: 12}},
			"2024-11-14": {"CNC-001": {PartsProduced: 400, GoodParts: 380, ScrapParts: 20, UptimeHours: 150, DowntimeHours: 8}},
		},
	}
}
