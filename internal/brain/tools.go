package brain

import (
	"fmt"
	"sort"
	"strings"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
)

// ToolName identifies one of the fixed, server-side tools the model may call.
type ToolName string

const (
	ToolCalculateOEE        ToolName = "calculate_oee"
	ToolScrapMetrics        ToolName = "get_scrap_metrics"
	ToolQualityIssues       ToolName = "get_quality_issues"
	ToolDowntimeAnalysis    ToolName = "get_downtime_analysis"
	ToolSaveInvestigation   ToolName = "save_investigation"
	ToolUpdateInvestigation ToolName = "update_investigation"
	ToolLogAction           ToolName = "log_action"
	ToolPendingFollowups    ToolName = "get_pending_followups"
	ToolMemoryContext       ToolName = "get_memory_context"
)

// AllTools lists tools in the order they are offered to the model.
var AllTools = []ToolName{
	ToolCalculateOEE,
	ToolScrapMetrics,
	ToolQualityIssues,
	ToolDowntimeAnalysis,
	ToolSaveInvestigation,
	ToolUpdateInvestigation,
	ToolLogAction,
	ToolPendingFollowups,
	ToolMemoryContext,
}

func (n ToolName) Valid() bool {
	_, ok := registry[n]
	return ok
}

// Tool parameter structs

// MetricsParams is shared by the OEE, scrap, and downtime tools.
type MetricsParams struct {
	StartDate   string `json:"start_date" jsonschema:"required,description=Start date (YYYY-MM-DD)"`
	EndDate     string `json:"end_date" jsonschema:"required,description=End date (YYYY-MM-DD)"`
	MachineName string `json:"machine_name,omitempty" jsonschema:"description=Optional machine name filter"`
}

func (p MetricsParams) validate() error {
	return requireFields(map[string]string{"start_date": p.StartDate, "end_date": p.EndDate})
}

func (p MetricsParams) query() metrics.Query {
	return metrics.Query{StartDate: p.StartDate, EndDate: p.EndDate, Machine: p.MachineName}
}

type QualityParams struct {
	StartDate   string `json:"start_date" jsonschema:"required,description=Start date (YYYY-MM-DD)"`
	EndDate     string `json:"end_date" jsonschema:"required,description=End date (YYYY-MM-DD)"`
	Severity    string `json:"severity,omitempty" jsonschema:"enum=Low,enum=Medium,enum=High,description=Optional severity filter"`
	MachineName string `json:"machine_name,omitempty" jsonschema:"description=Optional machine name filter"`
}

func (p QualityParams) validate() error {
	if err := requireFields(map[string]string{"start_date": p.StartDate, "end_date": p.EndDate}); err != nil {
		return err
	}
	if p.Severity != "" {
		if _, err := metrics.ParseSeverity(p.Severity); err != nil {
			return err
		}
	}
	return nil
}

type SaveInvestigationParams struct {
	Title              string `json:"title" jsonschema:"required,description=Brief investigation title (e.g. 'CNC-001 Surface Finish Degradation')"`
	InitialObservation string `json:"initial_observation" jsonschema:"required,description=What triggered this investigation: the initial problem or anomaly observed"`
	MachineID          string `json:"machine_id,omitempty" jsonschema:"description=Related machine name if applicable (e.g. 'CNC-001')"`
	SupplierID         string `json:"supplier_id,omitempty" jsonschema:"description=Related supplier ID if applicable (e.g. 'SUP-002')"`
}

func (p SaveInvestigationParams) validate() error {
	return requireFields(map[string]string{"title": p.Title, "initial_observation": p.InitialObservation})
}

type UpdateInvestigationParams struct {
	InvestigationID string `json:"investigation_id" jsonschema:"required,description=ID of the investigation to update (e.g. 'INV-20241114-ABC123')"`
	Status          string `json:"status,omitempty" jsonschema:"enum=open,enum=in_progress,enum=resolved,enum=closed,description=New status. Status only moves forward and closed is final."`
	Finding         string `json:"finding,omitempty" jsonschema:"description=A new finding to append"`
	Hypothesis      string `json:"hypothesis,omitempty" jsonschema:"description=A new hypothesis to append"`
	RootCause       string `json:"root_cause,omitempty" jsonschema:"description=Confirmed root cause"`
	Resolution      string `json:"resolution,omitempty" jsonschema:"description=How the issue was resolved"`
}

func (p UpdateInvestigationParams) validate() error {
	if err := requireFields(map[string]string{"investigation_id": p.InvestigationID}); err != nil {
		return err
	}
	if p.Status != "" && !model.InvestigationStatus(p.Status).Valid() {
		return fmt.Errorf("status must be one of open, in_progress, resolved, closed")
	}
	return nil
}

type LogActionParams struct {
	Description     string             `json:"description" jsonschema:"required,description=What action was taken (e.g. 'Increased feed rate from 100 to 120 mm/min')"`
	ActionType      string             `json:"action_type" jsonschema:"required,enum=parameter_change,enum=maintenance,enum=process_change,description=Category of the action"`
	ExpectedImpact  string             `json:"expected_impact" jsonschema:"required,description=What improvement is expected (e.g. 'Reduce scrap rate below 3%')"`
	MachineID       string             `json:"machine_id,omitempty" jsonschema:"description=Related machine name if applicable"`
	BaselineMetrics map[string]float64 `json:"baseline_metrics,omitempty" jsonschema:"description=Metrics captured before the action keyed by metric name (e.g. {\"oee\": 0.72})"`
	FollowUpDate    string             `json:"follow_up_date,omitempty" jsonschema:"description=When to check results (YYYY-MM-DD)"`
}

func (p LogActionParams) validate() error {
	if err := requireFields(map[string]string{
		"description":     p.Description,
		"action_type":     p.ActionType,
		"expected_impact": p.ExpectedImpact,
	}); err != nil {
		return err
	}
	if !model.ActionType(p.ActionType).Valid() {
		return fmt.Errorf("action_type must be one of parameter_change, maintenance, process_change")
	}
	return nil
}

type PendingFollowupsParams struct{}

func (PendingFollowupsParams) validate() error { return nil }

type MemoryContextParams struct {
	MachineID  string `json:"machine_id,omitempty" jsonschema:"description=Filter by machine name"`
	SupplierID string `json:"supplier_id,omitempty" jsonschema:"description=Filter by supplier ID"`
	Status     string `json:"status,omitempty" jsonschema:"enum=open,enum=in_progress,enum=resolved,enum=closed,description=Filter investigations by status"`
}

func (p MemoryContextParams) validate() error {
	if p.Status != "" && !model.InvestigationStatus(p.Status).Valid() {
		return fmt.Errorf("status must be one of open, in_progress, resolved, closed")
	}
	return nil
}

// requireFields fails on the first empty field in sorted key order.
func requireFields(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
}

// Definitions returns the tool schema offered to the model.
func Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(AllTools))
	for _, name := range AllTools {
		spec := registry[name]
		defs = append(defs, llm.Tool{
			Name:        string(name),
			Description: spec.description,
			Parameters:  spec.schema,
		})
	}
	return defs
}
