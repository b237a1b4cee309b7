// Package memory records investigations and actions across conversation turns
// and derives follow-up and shift-handoff views from them.
//
// Each write is a whole-entity put against the backing store. Updates are
// read-modify-write without cross-request locking, so concurrent updates to
// the same entity are last-write-wins.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"factoryops.app/assistant/common/id"
	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/store"
)

var (
	ErrInvestigationNotFound = errors.New("investigation not found")
	ErrActionNotFound        = errors.New("action not found")
	ErrInvestigationClosed   = errors.New("investigation is closed")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidInput          = errors.New("invalid input")
)

// Clock supplies the current time. Today's date is taken in the clock's location.
type Clock func() time.Time

type Option func(*Repository)

func WithClock(c Clock) Option {
	return func(r *Repository) { r.now = c }
}

type Repository struct {
	investigations store.InvestigationStore
	actions        store.ActionStore
	now            Clock
}

func NewRepository(stores *store.Stores, opts ...Option) *Repository {
	r := &Repository{
		investigations: stores.Investigations(),
		actions:        stores.Actions(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today returns the repository's current calendar date (yyyy-mm-dd).
func (r *Repository) Today() string {
	return r.now().Format(model.DateLayout)
}

type NewInvestigation struct {
	Title              string
	InitialObservation string
	MachineID          string
	SupplierID         string
}

func (r *Repository) CreateInvestigation(ctx context.Context, in NewInvestigation) (*model.Investigation, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	observation := strings.TrimSpace(in.InitialObservation)
	if observation == "" {
		return nil, fmt.Errorf("%w: initial_observation is required", ErrInvalidInput)
	}

	now := r.now()
	inv := model.Investigation{
		ID:                 id.Readable("INV", now),
		Title:              title,
		MachineID:          strings.TrimSpace(in.MachineID),
		SupplierID:         strings.TrimSpace(in.SupplierID),
		Status:             model.InvestigationStatusOpen,
		InitialObservation: observation,
		Findings:           []string{},
		Hypotheses:         []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := r.investigations.Put(ctx, inv); err != nil {
		return nil, fmt.Errorf("save investigation: %w", err)
	}

	slog.InfoContext(ctx, "investigation created",
		"investigation_id", inv.ID,
		"title", inv.Title,
		"machine_id", inv.MachineID)
	return &inv, nil
}

// InvestigationUpdate carries optional changes. Finding and Hypothesis are
// appended; the remaining fields replace the stored value.
type InvestigationUpdate struct {
	Status     model.InvestigationStatus
	Finding    string
	Hypothesis string
	RootCause  string
	Resolution string
}

func (u InvestigationUpdate) empty() bool {
	return u.Status == "" && u.Finding == "" && u.Hypothesis == "" && u.RootCause == "" && u.Resolution == ""
}

// UpdateInvestigation applies upd. Closed investigations reject every update,
// and status may only move forward along open, in_progress, resolved, closed
// (skipping is allowed).
func (r *Repository) UpdateInvestigation(ctx context.Context, investigationID string, upd InvestigationUpdate) (*model.Investigation, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{InvestigationID: logger.Ptr(investigationID)})

	upd.Finding = strings.TrimSpace(upd.Finding)
	upd.Hypothesis = strings.TrimSpace(upd.Hypothesis)
	upd.RootCause = strings.TrimSpace(upd.RootCause)
	upd.Resolution = strings.TrimSpace(upd.Resolution)
	if upd.empty() {
		return nil, fmt.Errorf("%w: no changes supplied", ErrInvalidInput)
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, upd.Status)
	}

	inv, err := r.investigations.Get(ctx, investigationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvestigationNotFound, investigationID)
		}
		return nil, fmt.Errorf("load investigation: %w", err)
	}

	if inv.Status == model.InvestigationStatusClosed {
		return nil, fmt.Errorf("%w: %s", ErrInvestigationClosed, investigationID)
	}
	if upd.Status != "" && upd.Status.Rank() < inv.Status.Rank() {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inv.Status, upd.Status)
	}

	previous := inv.Status
	if upd.Status != "" {
		inv.Status = upd.Status
	}
	if upd.Finding != "" {
		inv.Findings = append(inv.Findings, upd.Finding)
	}
	if upd.Hypothesis != "" {
		inv.Hypotheses = append(inv.Hypotheses, upd.Hypothesis)
	}
	if upd.RootCause != "" {
		inv.RootCause = upd.RootCause
	}
	if upd.Resolution != "" {
		inv.Resolution = upd.Resolution
	}
	inv.UpdatedAt = r.now()

	if err := r.investigations.Put(ctx, *inv); err != nil {
		return nil, fmt.Errorf("save investigation: %w", err)
	}

	slog.InfoContext(ctx, "investigation updated",
		"from_status", previous,
		"to_status", inv.Status,
		"findings", len(inv.Findings))
	return inv, nil
}

func (r *Repository) GetInvestigation(ctx context.Context, investigationID string) (*model.Investigation, error) {
	inv, err := r.investigations.Get(ctx, investigationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvestigationNotFound, investigationID)
	}
	return inv, err
}

func (r *Repository) ListInvestigations(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	list, err := r.investigations.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	return list, nil
}

type NewAction struct {
	Description     string
	ActionType      model.ActionType
	ExpectedImpact  string
	MachineID       string
	BaselineMetrics map[string]float64
	FollowUpDate    string // optional yyyy-mm-dd
}

func (r *Repository) CreateAction(ctx context.Context, in NewAction) (*model.Action, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !in.ActionType.Valid() {
		return nil, fmt.Errorf("%w: unknown action_type %q", ErrInvalidInput, in.ActionType)
	}
	expected := strings.TrimSpace(in.ExpectedImpact)
	if expected == "" {
		return nil, fmt.Errorf("%w: expected_impact is required", ErrInvalidInput)
	}
	followUp, err := optionalDate(in.FollowUpDate)
	if err != nil {
		return nil, err
	}

	baseline := maps.Clone(in.BaselineMetrics)
	if baseline == nil {
		baseline = map[string]float64{}
	}

	now := r.now()
	action := model.Action{
		ID:              id.Readable("ACT", now),
		Description:     description,
		ActionType:      in.ActionType,
		MachineID:       strings.TrimSpace(in.MachineID),
		BaselineMetrics: baseline,
		ExpectedImpact:  expected,
		FollowUpDate:    followUp,
		CreatedAt:       now,
	}

	if err := r.actions.Put(ctx, action); err != nil {
		return nil, fmt.Errorf("save action: %w", err)
	}

	slog.InfoContext(ctx, "action logged",
		"action_id", action.ID,
		"action_type", action.ActionType,
		"machine_id", action.MachineID)
	return &action, nil
}

type ActionImpactUpdate struct {
	ActualImpact string
	FollowUpDate string
}

// UpdateActionImpact records the observed impact and/or reschedules the follow-up.
func (r *Repository) UpdateActionImpact(ctx context.Context, actionID string, upd ActionImpactUpdate) (*model.Action, error) {
	impact := strings.TrimSpace(upd.ActualImpact)
	followUp, err := optionalDate(upd.FollowUpDate)
	if err != nil {
		return nil, err
	}
	if impact == "" && followUp == nil {
		return nil, fmt.Errorf("%w: actual_impact or follow_up_date is required", ErrInvalidInput)
	}

	action, err := r.actions.Get(ctx, actionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
		}
		return nil, fmt.Errorf("load action: %w", err)
	}

	if impact != "" {
		action.ActualImpact = &impact
	}
	if followUp != nil {
		action.FollowUpDate = followUp
	}

	if err := r.actions.Put(ctx, *action); err != nil {
		return nil, fmt.Errorf("save action: %w", err)
	}

	slog.InfoContext(ctx, "action impact updated", "action_id", action.ID, "has_impact", action.ActualImpact != nil)
	return action, nil
}

func (r *Repository) ListActions(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	list, err := r.actions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return list, nil
}

// PendingFollowups returns actions whose follow-up date is today or earlier
// and whose actual impact is still unset. It is computed on every read.
func (r *Repository) PendingFollowups(ctx context.Context) ([]model.Action, error) {
	return r.pendingOn(ctx, r.Today())
}

func (r *Repository) pendingOn(ctx context.Context, day string) ([]model.Action, error) {
	all, err := r.ListActions(ctx, model.ActionFilter{})
	if err != nil {
		return nil, err
	}
	pending := []model.Action{}
	for _, a := range all {
		if a.PendingOn(day) {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// ShiftSummary gathers what the next shift needs: active investigations,
// actions logged today, and due follow-ups.
func (r *Repository) ShiftSummary(ctx context.Context) (*model.ShiftSummary, error) {
	now := r.now()
	today := now.Format(model.DateLayout)

	investigations, err := r.ListInvestigations(ctx, model.InvestigationFilter{})
	if err != nil {
		return nil, err
	}
	actions, err := r.ListActions(ctx, model.ActionFilter{})
	if err != nil {
		return nil, err
	}

	summary := &model.ShiftSummary{
		Date:                 today,
		ActiveInvestigations: []model.Investigation{},
		TodaysActions:        []model.Action{},
		PendingFollowups:     []model.Action{},
	}
	for _, inv := range investigations {
		if inv.Status.Active() {
			summary.ActiveInvestigations = append(summary.ActiveInvestigations, inv)
		}
	}
	for _, a := range actions {
		if a.CreatedAt.In(now.Location()).Format(model.DateLayout) == today {
			summary.TodaysActions = append(summary.TodaysActions, a)
		}
		if a.PendingOn(today) {
			summary.PendingFollowups = append(summary.PendingFollowups, a)
		}
	}

	slog.InfoContext(ctx, "shift summary generated",
		"active_investigations", len(summary.ActiveInvestigations),
		"todays_actions", len(summary.TodaysActions),
		"pending_followups", len(summary.PendingFollowups))
	return summary, nil
}

// Relevant is the memory context for one machine, supplier, or status.
type Relevant struct {
	Investigations      []model.Investigation `json:"investigations"`
	Actions             []model.Action        `json:"actions"`
	TotalInvestigations int                   `json:"total_investigations"`
	TotalActions        int                   `json:"total_actions"`
}

// RelevantMemories filters investigations by all of filter's fields and
// actions by machine only.
func (r *Repository) RelevantMemories(ctx context.Context, filter model.InvestigationFilter) (*Relevant, error) {
	investigations, err := r.ListInvestigations(ctx, filter)
	if err != nil {
		return nil, err
	}
	actions, err := r.ListActions(ctx, model.ActionFilter{MachineID: filter.MachineID})
	if err != nil {
		return nil, err
	}
	return &Relevant{
		Investigations:      investigations,
		Actions:             actions,
		TotalInvestigations: len(investigations),
		TotalActions:        len(actions),
	}, nil
}

func (r *Repository) Summary(ctx context.Context) (*model.MemorySummary, error) {
	investigations, err := r.ListInvestigations(ctx, model.InvestigationFilter{})
	if err != nil {
		return nil, err
	}
	actions, err := r.ListActions(ctx, model.ActionFilter{})
	if err != nil {
		return nil, err
	}

	today := r.Today()
	summary := &model.MemorySummary{
		TotalInvestigations:    len(investigations),
		TotalActions:           len(actions),
		InvestigationsByStatus: make(map[string]int),
		ActionsByType:          make(map[string]int),
	}
	for _, inv := range investigations {
		summary.InvestigationsByStatus[string(inv.Status)]++
	}
	for _, a := range actions {
		summary.ActionsByType[string(a.ActionType)]++
		if a.PendingOn(today) {
			summary.PendingFollowupCount++
		}
	}
	return summary, nil
}

func optionalDate(v string) (*string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if _, err := model.ParseDate(v); err != nil {
		return nil, fmt.Errorf("%w: follow_up_date %q must be yyyy-mm-dd", ErrInvalidInput, v)
	}
	return &v, nil
}
