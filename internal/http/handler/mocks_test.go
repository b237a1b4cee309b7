package handler_test

import (
	"context"

	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/queue"
	"factoryops.app/assistant/internal/service"
	"factoryops.app/assistant/internal/traceability"
)

type mockChatService struct {
	chatFn      func(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error)
	streamFn    func(ctx context.Context, req service.ChatRequest, obs brain.Observer) (*service.ChatResult, error)
	chatCalls   int
	streamCalls int
}

func (m *mockChatService) Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error) {
	m.chatCalls++
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return &service.ChatResult{}, nil
}

func (m *mockChatService) Stream(ctx context.Context, req service.ChatRequest, obs brain.Observer) (*service.ChatResult, error) {
	m.streamCalls++
	if m.streamFn != nil {
		return m.streamFn(ctx, req, obs)
	}
	return &service.ChatResult{}, nil
}

type mockMetricsService struct {
	oeeFn      func(ctx context.Context, q metrics.Query) (model.OEEMetrics, error)
	scrapFn    func(ctx context.Context, q metrics.Query) (model.ScrapMetrics, error)
	qualityFn  func(ctx context.Context, q metrics.Query) (model.QualityReport, error)
	downtimeFn func(ctx context.Context, q metrics.Query) (model.DowntimeReport, error)
	statsFn    func(ctx context.Context) (service.DataStats, error)
}

func (m *mockMetricsService) OEE(ctx context.Context, q metrics.Query) (model.OEEMetrics, error) {
	if m.oeeFn != nil {
		return m.oeeFn(ctx, q)
	}
	return model.OEEMetrics{}, nil
}

func (m *mockMetricsService) Scrap(ctx context.Context, q metrics.Query) (model.ScrapMetrics, error) {
	if m.scrapFn != nil {
		return m.scrapFn(ctx, q)
	}
	return model.ScrapMetrics{}, nil
}

func (m *mockMetricsService) Quality(ctx context.Context, q metrics.Query) (model.QualityReport, error) {
	if m.qualityFn != nil {
		return m.qualityFn(ctx, q)
	}
	return model.QualityReport{}, nil
}

func (m *mockMetricsService) Downtime(ctx context.Context, q metrics.Query) (model.DowntimeReport, error) {
	if m.downtimeFn != nil {
		return m.downtimeFn(ctx, q)
	}
	return model.DowntimeReport{}, nil
}

func (m *mockMetricsService) Stats(ctx context.Context) (service.DataStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return service.DataStats{}, nil
}

type mockMemoryService struct {
	summaryFn        func(ctx context.Context) (*model.MemorySummary, error)
	shiftSummaryFn   func(ctx context.Context) (*model.ShiftSummary, error)
	investigationsFn func(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error)
	investigationFn  func(ctx context.Context, id string) (*model.Investigation, error)
	actionsFn        func(ctx context.Context, filter model.ActionFilter) ([]model.Action, error)
	followupsFn      func(ctx context.Context) ([]model.Action, error)
	recordImpactFn   func(ctx context.Context, actionID string, upd memory.ActionImpactUpdate) (*model.Action, error)
}

func (m *mockMemoryService) Summary(ctx context.Context) (*model.MemorySummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx)
	}
	return &model.MemorySummary{}, nil
}

func (m *mockMemoryService) ShiftSummary(ctx context.Context) (*model.ShiftSummary, error) {
	if m.shiftSummaryFn != nil {
		return m.shiftSummaryFn(ctx)
	}
	return &model.ShiftSummary{}, nil
}

func (m *mockMemoryService) Investigations(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	if m.investigationsFn != nil {
		return m.investigationsFn(ctx, filter)
	}
	return []model.Investigation{}, nil
}

func (m *mockMemoryService) Investigation(ctx context.Context, id string) (*model.Investigation, error) {
	if m.investigationFn != nil {
		return m.investigationFn(ctx, id)
	}
	return nil, memory.ErrInvestigationNotFound
}

func (m *mockMemoryService) Actions(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	if m.actionsFn != nil {
		return m.actionsFn(ctx, filter)
	}
	return []model.Action{}, nil
}

func (m *mockMemoryService) PendingFollowups(ctx context.Context) ([]model.Action, error) {
	if m.followupsFn != nil {
		return m.followupsFn(ctx)
	}
	return []model.Action{}, nil
}

func (m *mockMemoryService) RecordImpact(ctx context.Context, actionID string, upd memory.ActionImpactUpdate) (*model.Action, error) {
	if m.recordImpactFn != nil {
		return m.recordImpactFn(ctx, actionID, upd)
	}
	return nil, nil
}

type mockTurnEventReader struct {
	replayFn   func(ctx context.Context, turnID string) ([]queue.TurnEvent, error)
	tailFn     func(ctx context.Context, turnID, afterID string) ([]queue.TurnEvent, error)
	tailCalls  int
	lastTailID string
}

func (m *mockTurnEventReader) Replay(ctx context.Context, turnID string) ([]queue.TurnEvent, error) {
	if m.replayFn != nil {
		return m.replayFn(ctx, turnID)
	}
	return nil, queue.ErrTurnNotFound
}

func (m *mockTurnEventReader) Tail(ctx context.Context, turnID, afterID string) ([]queue.TurnEvent, error) {
	m.tailCalls++
	m.lastTailID = afterID
	if m.tailFn != nil {
		return m.tailFn(ctx, turnID, afterID)
	}
	return []queue.TurnEvent{}, nil
}

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type mockTraceabilityService struct {
	suppliersFn    func(ctx context.Context, status string) ([]model.Supplier, error)
	supplierFn     func(ctx context.Context, id string) (model.Supplier, error)
	impactFn       func(ctx context.Context, id string, r traceability.DateRange) (model.SupplierImpact, error)
	batchesFn      func(ctx context.Context, f traceability.BatchFilter) ([]model.ProductionBatch, error)
	batchFn        func(ctx context.Context, id string) (model.ProductionBatch, error)
	backwardFn     func(ctx context.Context, batchID string) (model.BackwardTrace, error)
	forwardFn      func(ctx context.Context, supplierID string, r traceability.DateRange) (model.ForwardTrace, error)
	ordersFn       func(ctx context.Context, f traceability.OrderFilter) ([]model.Order, error)
	orderFn        func(ctx context.Context, id string) (model.Order, error)
	orderBatchesFn func(ctx context.Context, id string) ([]model.ProductionBatch, error)
}

func (m *mockTraceabilityService) Suppliers(ctx context.Context, status string) ([]model.Supplier, error) {
	if m.suppliersFn != nil {
		return m.suppliersFn(ctx, status)
	}
	return []model.Supplier{}, nil
}

func (m *mockTraceabilityService) Supplier(ctx context.Context, id string) (model.Supplier, error) {
	if m.supplierFn != nil {
		return m.supplierFn(ctx, id)
	}
	return model.Supplier{ID: id}, nil
}

func (m *mockTraceabilityService) SupplierImpact(ctx context.Context, id string, r traceability.DateRange) (model.SupplierImpact, error) {
	if m.impactFn != nil {
		return m.impactFn(ctx, id, r)
	}
	return model.SupplierImpact{}, nil
}

func (m *mockTraceabilityService) Batches(ctx context.Context, f traceability.BatchFilter) ([]model.ProductionBatch, error) {
	if m.batchesFn != nil {
		return m.batchesFn(ctx, f)
	}
	return []model.ProductionBatch{}, nil
}

func (m *mockTraceabilityService) Batch(ctx context.Context, id string) (model.ProductionBatch, error) {
	if m.batchFn != nil {
		return m.batchFn(ctx, id)
	}
	return model.ProductionBatch{BatchID: id}, nil
}

func (m *mockTraceabilityService) BackwardTrace(ctx context.Context, batchID string) (model.BackwardTrace, error) {
	if m.backwardFn != nil {
		return m.backwardFn(ctx, batchID)
	}
	return model.BackwardTrace{}, nil
}

func (m *mockTraceabilityService) ForwardTrace(ctx context.Context, supplierID string, r traceability.DateRange) (model.ForwardTrace, error) {
	if m.forwardFn != nil {
		return m.forwardFn(ctx, supplierID, r)
	}
	return model.ForwardTrace{}, nil
}

func (m *mockTraceabilityService) Orders(ctx context.Context, f traceability.OrderFilter) ([]model.Order, error) {
	if m.ordersFn != nil {
		return m.ordersFn(ctx, f)
	}
	return []model.Order{}, nil
}

func (m *mockTraceabilityService) Order(ctx context.Context, id string) (model.Order, error) {
	if m.orderFn != nil {
		return m.orderFn(ctx, id)
	}
	return model.Order{ID: id}, nil
}

func (m *mockTraceabilityService) OrderBatches(ctx context.Context, id string) ([]model.ProductionBatch, error) {
	if m.orderBatchesFn != nil {
		return m.orderBatchesFn(ctx, id)
	}
	return []model.ProductionBatch{}, nil
}
