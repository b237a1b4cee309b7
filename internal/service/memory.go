package service

import (
	"context"
	"fmt"

	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/model"
)

// MemoryService is the read and follow-up surface of investigation memory
// used outside chat turns.
type MemoryService interface {
	Summary(ctx context.Context) (*model.MemorySummary, error)
	ShiftSummary(ctx context.Context) (*model.ShiftSummary, error)
	Investigations(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error)
	Investigation(ctx context.Context, id string) (*model.Investigation, error)
	Actions(ctx context.Context, filter model.ActionFilter) ([]model.Action, error)
	PendingFollowups(ctx context.Context) ([]model.Action, error)
	RecordImpact(ctx context.Context, actionID string, upd memory.ActionImpactUpdate) (*model.Action, error)
}

type memoryService struct {
	repo *memory.Repository
}

func NewMemoryService(repo *memory.Repository) MemoryService {
	return &memoryService{repo: repo}
}

func (s *memoryService) Summary(ctx context.Context) (*model.MemorySummary, error) {
	return s.repo.Summary(ctx)
}

func (s *memoryService) ShiftSummary(ctx context.Context) (*model.ShiftSummary, error) {
	return s.repo.ShiftSummary(ctx)
}

func (s *memoryService) Investigations(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", memory.ErrInvalidInput, filter.Status)
	}
	return s.repo.ListInvestigations(ctx, filter)
}

func (s *memoryService) Investigation(ctx context.Context, id string) (*model.Investigation, error) {
	return s.repo.GetInvestigation(ctx, id)
}

func (s *memoryService) Actions(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	return s.repo.ListActions(ctx, filter)
}

func (s *memoryService) PendingFollowups(ctx context.Context) ([]model.Action, error) {
	return s.repo.PendingFollowups(ctx)
}

func (s *memoryService) RecordImpact(ctx context.Context, actionID string, upd memory.ActionImpactUpdate) (*model.Action, error) {
	return s.repo.UpdateActionImpact(ctx, actionID, upd)
}
