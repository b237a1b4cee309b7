package service

import (
	"context"
	"log/slog"

	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/traceability"
)

type TraceabilityService interface {
	Suppliers(ctx context.Context, status string) ([]model.Supplier, error)
	Supplier(ctx context.Context, id string) (model.Supplier, error)
	SupplierImpact(ctx context.Context, id string, r traceability.DateRange) (model.SupplierImpact, error)
	Batches(ctx context.Context, f traceability.BatchFilter) ([]model.ProductionBatch, error)
	Batch(ctx context.Context, id string) (model.ProductionBatch, error)
	BackwardTrace(ctx context.Context, batchID string) (model.BackwardTrace, error)
	ForwardTrace(ctx context.Context, supplierID string, r traceability.DateRange) (model.ForwardTrace, error)
	Orders(ctx context.Context, f traceability.OrderFilter) ([]model.Order, error)
	Order(ctx context.Context, id string) (model.Order, error)
	OrderBatches(ctx context.Context, id string) ([]model.ProductionBatch, error)
}

type traceabilityService struct {
	source data.Source
}

func NewTraceabilityService(source data.Source) TraceabilityService {
	return &traceabilityService{source: source}
}

func (s *traceabilityService) snapshot() (*model.Snapshot, error) {
	snap := s.source.Snapshot()
	if snap == nil {
		return nil, metrics.ErrNoData
	}
	return snap, nil
}

// serve runs one query against the current snapshot and logs the outcome.
func serve[T any](ctx context.Context, s *traceabilityService, query, subject string, fn func(*model.Snapshot) (T, error)) (T, error) {
	snap, err := s.snapshot()
	if err != nil {
		var zero T
		return zero, err
	}
	res, err := fn(snap)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "factoryops.service.traceability"})
	if err != nil {
		slog.DebugContext(ctx, "traceability query rejected", "query", query, "subject", subject, "error", err)
	} else {
		slog.DebugContext(ctx, "traceability query served", "query", query, "subject", subject)
	}
	return res, err
}

func (s *traceabilityService) Suppliers(ctx context.Context, status string) ([]model.Supplier, error) {
	return serve(ctx, s, "suppliers", status, func(snap *model.Snapshot) ([]model.Supplier, error) {
		return traceability.Suppliers(snap, status), nil
	})
}

func (s *traceabilityService) Supplier(ctx context.Context, id string) (model.Supplier, error) {
	return serve(ctx, s, "supplier", id, func(snap *model.Snapshot) (model.Supplier, error) {
		return traceability.Supplier(snap, id)
	})
}

func (s *traceabilityService) SupplierImpact(ctx context.Context, id string, r traceability.DateRange) (model.SupplierImpact, error) {
	return serve(ctx, s, "supplier_impact", id, func(snap *model.Snapshot) (model.SupplierImpact, error) {
		return traceability.SupplierImpact(snap, id, r)
	})
}

func (s *traceabilityService) Batches(ctx context.Context, f traceability.BatchFilter) ([]model.ProductionBatch, error) {
	return serve(ctx, s, "batches", f.OrderID, func(snap *model.Snapshot) ([]model.ProductionBatch, error) {
		return traceability.Batches(snap, f)
	})
}

func (s *traceabilityService) Batch(ctx context.Context, id string) (model.ProductionBatch, error) {
	return serve(ctx, s, "batch", id, func(snap *model.Snapshot) (model.ProductionBatch, error) {
		return traceability.Batch(snap, id)
	})
}

func (s *traceabilityService) BackwardTrace(ctx context.Context, batchID string) (model.BackwardTrace, error) {
	return serve(ctx, s, "backward_trace", batchID, func(snap *model.Snapshot) (model.BackwardTrace, error) {
		return traceability.BackwardTrace(snap, batchID)
	})
}

func (s *traceabilityService) ForwardTrace(ctx context.Context, supplierID string, r traceability.DateRange) (model.ForwardTrace, error) {
	return serve(ctx, s, "forward_trace", supplierID, func(snap *model.Snapshot) (model.ForwardTrace, error) {
		return traceability.ForwardTrace(snap, supplierID, r)
	})
}

func (s *traceabilityService) Orders(ctx context.Context, f traceability.OrderFilter) ([]model.Order, error) {
	return serve(ctx, s, "orders", f.Status, func(snap *model.Snapshot) ([]model.Order, error) {
		return traceability.Orders(snap, f)
	})
}

func (s *traceabilityService) Order(ctx context.Context, id string) (model.Order, error) {
	return serve(ctx, s, "order", id, func(snap *model.Snapshot) (model.Order, error) {
		return traceability.Order(snap, id)
	})
}

func (s *traceabilityService) OrderBatches(ctx context.Context, id string) ([]model.ProductionBatch, error) {
	return serve(ctx, s, "order_batches", id, func(snap *model.Snapshot) ([]model.ProductionBatch, error) {
		return traceability.OrderBatches(snap, id)
	})
}
