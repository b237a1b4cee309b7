package model

import "time"

type InvestigationStatus string

const (
	InvestigationStatusOpen       InvestigationStatus = "open"
	InvestigationStatusInProgress InvestigationStatus = "in_progress"
	InvestigationStatusResolved   InvestigationStatus = "resolved"
	InvestigationStatusClosed     InvestigationStatus = "closed"
)

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s InvestigationStatus) Rank() int {
	switch s {
	case InvestigationStatusOpen:
		return 0
	case InvestigationStatusInProgress:
		return 1
	case InvestigationStatusResolved:
		return 2
	case InvestigationStatusClosed:
		return 3
	}
	return -1
}

func (s InvestigationStatus) Valid() bool {
	return s.Rank() >= 0
}

// Active reports whether the investigation still needs attention: every
// status except closed. Resolved investigations stay on the shift summary
// until someone closes them.
func (s InvestigationStatus) Active() bool {
	return s.Valid() && s != InvestigationStatusClosed
}

type ActionType string

const (
	ActionTypeParameterChange ActionType = "parameter_change"
	ActionTypeMaintenance     ActionType = "maintenance"
	ActionTypeProcessChange   ActionType = "process_change"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionTypeParameterChange, ActionTypeMaintenance, ActionTypeProcessChange:
		return true
	}
	return false
}

type Investigation struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	MachineID          string              `json:"machine_id,omitempty"`
	SupplierID         string              `json:"supplier_id,omitempty"`
	Status             InvestigationStatus `json:"status"`
	InitialObservation string              `json:"initial_observation"`
	Findings           []string            `json:"findings"`
	Hypotheses         []string            `json:"hypotheses"`
	RootCause          string              `json:"root_cause,omitempty"`
	Resolution         string              `json:"resolution,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type Action struct {
	ID              string             `json:"id"`
	Description     string             `json:"description"`
	ActionType      ActionType         `json:"action_type"`
	MachineID       string             `json:"machine_id,omitempty"`
	BaselineMetrics map[string]float64 `json:"baseline_metrics"`
	ExpectedImpact  string             `json:"expected_impact"`
	ActualImpact    *string            `json:"actual_impact,omitempty"`
	FollowUpDate    *string            `json:"follow_up_date,omitempty"` // yyyy-mm-dd
	CreatedAt       time.Time          `json:"created_at"`
}

// PendingOn reports whether the action's follow-up is due on day and not yet answered.
func (a Action) PendingOn(day string) bool {
	if a.FollowUpDate == nil || *a.FollowUpDate == "" || a.ActualImpact != nil {
		return false
	}
	return *a.FollowUpDate <= day
}

type InvestigationFilter struct {
	MachineID  string
	SupplierID string
	Status     InvestigationStatus
}

func (f InvestigationFilter) Match(inv Investigation) bool {
	if f.MachineID != "" && inv.MachineID != f.MachineID {
		return false
	}
	if f.SupplierID != "" && inv.SupplierID != f.SupplierID {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	return true
}

type ActionFilter struct {
	MachineID string
}

func (f ActionFilter) Match(a Action) bool {
	return f.MachineID == "" || a.MachineID == f.MachineID
}

type ShiftSummary struct {
	Date                 string          `json:"date"`
	ActiveInvestigations []Investigation `json:"active_investigations"`
	TodaysActions        []Action        `json:"todays_actions"`
	PendingFollowups     []Action        `json:"pending_followups"`
}

type MemorySummary struct {
	TotalInvestigations    int            `json:"total_investigations"`
	TotalActions           int            `json:"total_actions"`
	InvestigationsByStatus map[string]int `json:"investigations_by_status"`
	ActionsByType          map[string]int `json:"actions_by_type"`
	PendingFollowupCount   int            `json:"pending_followup_count"`
}
