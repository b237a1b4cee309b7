package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
)

// ErrInvalidToolInvocation covers unknown tool names, malformed arguments,
// missing required fields, and wrong types. Handler failures are distinct.
var ErrInvalidToolInvocation = errors.New("invalid tool invocation")

// Memory is the part of the memory repository the tools use.
type Memory interface {
	CreateInvestigation(ctx context.Context, in memory.NewInvestigation) (*model.Investigation, error)
	UpdateInvestigation(ctx context.Context, investigationID string, upd memory.InvestigationUpdate) (*model.Investigation, error)
	CreateAction(ctx context.Context, in memory.NewAction) (*model.Action, error)
	PendingFollowups(ctx context.Context) ([]model.Action, error)
	RelevantMemories(ctx context.Context, filter model.InvestigationFilter) (*memory.Relevant, error)
}

// ToolResult pairs one tool call with its payload or error.
type ToolResult struct {
	ToolCallID string
	Name       string
	Payload    any
	Err        error
	Duration   time.Duration
}

func (r ToolResult) IsError() bool {
	return r.Err != nil
}

// Content is the JSON sent back to the model. Errors become {"error": "..."}.
func (r ToolResult) Content() string {
	if r.Err != nil {
		data, _ := json.Marshal(map[string]string{"error": r.Err.Error()})
		return string(data)
	}
	data, err := json.Marshal(r.Payload)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": "tool result could not be encoded"})
	}
	return string(data)
}

type Dispatcher struct {
	engine *metrics.Engine
	memory Memory
}

func NewDispatcher(engine *metrics.Engine, mem Memory) *Dispatcher {
	return &Dispatcher{engine: engine, memory: mem}
}

// Dispatch validates and runs one tool call against snap. It never returns
// an error directly; failures are carried in the result for the model.
func (d *Dispatcher) Dispatch(ctx context.Context, snap *model.Snapshot, call llm.ToolCall) (result ToolResult) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component:  "factoryops.brain.dispatcher",
		ToolName:   logger.Ptr(call.Name),
		ToolCallID: logger.Ptr(call.ID),
	})

	sc := logger.StartSpan(ctx, "brain.dispatch", attribute.String("tool.name", call.Name))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	result = ToolResult{ToolCallID: call.ID, Name: call.Name}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "tool handler panicked", "panic", fmt.Sprint(r))
			result.Payload = nil
			result.Err = fmt.Errorf("tool execution failed: %s", internalFailure(call.Name))
		}
		result.Duration = time.Since(start)
		if result.Err != nil {
			sc.RecordError(result.Err)
		}
	}()

	spec, ok := registry[ToolName(call.Name)]
	if !ok {
		slog.WarnContext(ctx, "unknown tool requested")
		result.Err = fmt.Errorf("%w: unknown tool %q", ErrInvalidToolInvocation, call.Name)
		return result
	}

	slog.InfoContext(ctx, "executing tool", "arguments", logger.Truncate(call.Arguments, 200))

	payload, err := spec.handle(ctx, d, snap, call.Arguments)
	if err != nil {
		if errors.Is(err, ErrInvalidToolInvocation) {
			slog.WarnContext(ctx, "tool invocation rejected", "error", err)
			result.Err = err
			return result
		}
		slog.ErrorContext(ctx, "tool execution failed", "error", err)
		result.Err = fmt.Errorf("tool execution failed: %s", modelSafeMessage(call.Name, err))
		return result
	}

	slog.DebugContext(ctx, "tool completed", "duration_ms", time.Since(start).Milliseconds())
	result.Payload = payload
	return result
}

// Errors whose text is written for users and safe to show the model.
var modelSafeErrors = []error{
	metrics.ErrInvalidDate,
	metrics.ErrInvalidRange,
	metrics.ErrNoData,
	metrics.ErrInvalidSeverity,
	memory.ErrInvestigationNotFound,
	memory.ErrActionNotFound,
	memory.ErrInvestigationClosed,
	memory.ErrInvalidTransition,
	memory.ErrInvalidInput,
}

func modelSafeMessage(tool string, err error) string {
	for _, safe := range modelSafeErrors {
		if errors.Is(err, safe) {
			return err.Error()
		}
	}
	return internalFailure(tool)
}

func internalFailure(tool string) string {
	return fmt.Sprintf("%s hit an internal error; try again later", tool)
}

type handlerFunc func(ctx context.Context, d *Dispatcher, snap *model.Snapshot, arguments string) (any, error)

type toolSpec struct {
	description string
	schema      *jsonschema.Schema
	handle      handlerFunc
}

type validator interface {
	validate() error
}

// bind decodes and validates arguments as P before calling fn.
func bind[P validator](fn func(ctx context.Context, d *Dispatcher, snap *model.Snapshot, p P) (any, error)) handlerFunc {
	return func(ctx context.Context, d *Dispatcher, snap *model.Snapshot, arguments string) (any, error) {
		params, err := llm.ParseToolArguments[P](arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToolInvocation, err)
		}
		if err := params.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToolInvocation, err)
		}
		return fn(ctx, d, snap, params)
	}
}

// registry is fixed at start-up; tools cannot be added at runtime.
var registry = map[ToolName]toolSpec{
	ToolCalculateOEE: {
		description: "Calculate Overall Equipment Effectiveness (OEE) for a date range. Returns OEE with its availability, performance, and quality components as ratios between 0 and 1, plus part counts.",
		schema:      llm.GenerateSchemaFrom(MetricsParams{}),
		handle:      bind(handleOEE),
	},
	ToolScrapMetrics: {
		description: "Get scrap metrics including total scrap, scrap rate as a percentage (0-100), and a breakdown by machine when no machine filter is given.",
		schema:      llm.GenerateSchemaFrom(MetricsParams{}),
		handle:      bind(handleScrap),
	},
	ToolQualityIssues: {
		description: "Get quality defect events with defect type, severity, affected parts, supplier details, and a breakdown by severity.",
		schema:      llm.GenerateSchemaFrom(QualityParams{}),
		handle:      bind(handleQuality),
	},
	ToolDowntimeAnalysis: {
		description: "Analyze downtime: total hours, hours by reason, and major incidents (single events longer than 2 hours).",
		schema:      llm.GenerateSchemaFrom(MetricsParams{}),
		handle:      bind(handleDowntime),
	},
	ToolSaveInvestigation: {
		description: "Create a new investigation to track an ongoing factory issue. Use this when the user reports a problem that needs follow-up, such as quality issues, machine anomalies, or supplier concerns. The investigation can be referenced in future conversations.",
		schema:      llm.GenerateSchemaFrom(SaveInvestigationParams{}),
		handle:      bind(handleSaveInvestigation),
	},
	ToolUpdateInvestigation: {
		description: "Update an existing investigation: append a finding or hypothesis, move its status forward, or record the root cause and resolution. Closed investigations cannot be changed.",
		schema:      llm.GenerateSchemaFrom(UpdateInvestigationParams{}),
		handle:      bind(handleUpdateInvestigation),
	},
	ToolLogAction: {
		description: "Record an action taken by the user with baseline metrics for impact tracking. Use this when the user makes a parameter change, schedules maintenance, or implements a process change. Enables proactive follow-up on results.",
		schema:      llm.GenerateSchemaFrom(LogActionParams{}),
		handle:      bind(handleLogAction),
	},
	ToolPendingFollowups: {
		description: "Check for actions that are due for follow-up: the follow-up date has passed and the actual impact has not been recorded. Use this proactively to remind users about checking on past improvements.",
		schema:      llm.GenerateSchemaFrom(PendingFollowupsParams{}),
		handle:      bind(handlePendingFollowups),
	},
	ToolMemoryContext: {
		description: "Retrieve investigations and actions related to a machine, supplier, or investigation status. Use this before answering questions about a specific machine or supplier.",
		schema:      llm.GenerateSchemaFrom(MemoryContextParams{}),
		handle:      bind(handleMemoryContext),
	},
}

func handleOEE(_ context.Context, d *Dispatcher, snap *model.Snapshot, p MetricsParams) (any, error) {
	return d.engine.OEE(snap, p.query())
}

func handleScrap(_ context.Context, d *Dispatcher, snap *model.Snapshot, p MetricsParams) (any, error) {
	return d.engine.Scrap(snap, p.query())
}

func handleQuality(_ context.Context, d *Dispatcher, snap *model.Snapshot, p QualityParams) (any, error) {
	return d.engine.QualityIssues(snap, metrics.Query{
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Machine:   p.MachineName,
		Severity:  p.Severity,
	})
}

func handleDowntime(_ context.Context, d *Dispatcher, snap *model.Snapshot, p MetricsParams) (any, error) {
	return d.engine.Downtime(snap, p.query())
}

type InvestigationSaved struct {
	Success         bool                      `json:"success"`
	InvestigationID string                    `json:"investigation_id"`
	Title           string                    `json:"title"`
	Status          model.InvestigationStatus `json:"status"`
	Message         string                    `json:"message"`
}

func handleSaveInvestigation(ctx context.Context, d *Dispatcher, _ *model.Snapshot, p SaveInvestigationParams) (any, error) {
	inv, err := d.memory.CreateInvestigation(ctx, memory.NewInvestigation{
		Title:              p.Title,
		InitialObservation: p.InitialObservation,
		MachineID:          p.MachineID,
		SupplierID:         p.SupplierID,
	})
	if err != nil {
		return nil, err
	}
	return InvestigationSaved{
		Success:         true,
		InvestigationID: inv.ID,
		Title:           inv.Title,
		Status:          inv.Status,
		Message:         fmt.Sprintf("Investigation '%s' created with ID %s", inv.Title, inv.ID),
	}, nil
}

type InvestigationUpdated struct {
	Success         bool                      `json:"success"`
	InvestigationID string                    `json:"investigation_id"`
	Status          model.InvestigationStatus `json:"status"`
	FindingsCount   int                       `json:"findings_count"`
	Message         string                    `json:"message"`
}

func handleUpdateInvestigation(ctx context.Context, d *Dispatcher, _ *model.Snapshot, p UpdateInvestigationParams) (any, error) {
	inv, err := d.memory.UpdateInvestigation(ctx, p.InvestigationID, memory.InvestigationUpdate{
		Status:     model.InvestigationStatus(p.Status),
		Finding:    p.Finding,
		Hypothesis: p.Hypothesis,
		RootCause:  p.RootCause,
		Resolution: p.Resolution,
	})
	if err != nil {
		return nil, err
	}
	return InvestigationUpdated{
		Success:         true,
		InvestigationID: inv.ID,
		Status:          inv.Status,
		FindingsCount:   len(inv.Findings),
		Message:         fmt.Sprintf("Investigation %s updated", inv.ID),
	}, nil
}

type ActionLogged struct {
	Success      bool             `json:"success"`
	ActionID     string           `json:"action_id"`
	Description  string           `json:"description"`
	ActionType   model.ActionType `json:"action_type"`
	FollowUpDate *string          `json:"follow_up_date"`
	Message      string           `json:"message"`
}

func handleLogAction(ctx context.Context, d *Dispatcher, _ *model.Snapshot, p LogActionParams) (any, error) {
	a, err := d.memory.CreateAction(ctx, memory.NewAction{
		Description:     p.Description,
		ActionType:      model.ActionType(p.ActionType),
		ExpectedImpact:  p.ExpectedImpact,
		MachineID:       p.MachineID,
		BaselineMetrics: p.BaselineMetrics,
		FollowUpDate:    p.FollowUpDate,
	})
	if err != nil {
		return nil, err
	}
	return ActionLogged{
		Success:      true,
		ActionID:     a.ID,
		Description:  a.Description,
		ActionType:   a.ActionType,
		FollowUpDate: a.FollowUpDate,
		Message:      fmt.Sprintf("Action logged with ID %s", a.ID),
	}, nil
}

type Followup struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	MachineID      string `json:"machine_id,omitempty"`
	ExpectedImpact string `json:"expected_impact"`
	FollowUpDate   string `json:"follow_up_date"`
}

type FollowupList struct {
	PendingFollowups []Followup `json:"pending_followups"`
	Count            int        `json:"count"`
	Message          string     `json:"message"`
}

func handlePendingFollowups(ctx context.Context, d *Dispatcher, _ *model.Snapshot, _ PendingFollowupsParams) (any, error) {
	pending, err := d.memory.PendingFollowups(ctx)
	if err != nil {
		return nil, err
	}

	list := FollowupList{PendingFollowups: make([]Followup, 0, len(pending))}
	for _, a := range pending {
		f := Followup{
			ID:             a.ID,
			Description:    a.Description,
			MachineID:      a.MachineID,
			ExpectedImpact: a.ExpectedImpact,
		}
		if a.FollowUpDate != nil {
			f.FollowUpDate = *a.FollowUpDate
		}
		list.PendingFollowups = append(list.PendingFollowups, f)
	}
	list.Count = len(list.PendingFollowups)
	if list.Count == 0 {
		list.Message = "No pending follow-ups"
	} else {
		list.Message = fmt.Sprintf("Found %d actions pending follow-up", list.Count)
	}
	return list, nil
}

func handleMemoryContext(ctx context.Context, d *Dispatcher, _ *model.Snapshot, p MemoryContextParams) (any, error) {
	return d.memory.RelevantMemories(ctx, model.InvestigationFilter{
		MachineID:  p.MachineID,
		SupplierID: p.SupplierID,
		Status:     model.InvestigationStatus(p.Status),
	})
}
