package service

import (
	"context"
	"log/slog"

	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
)

// DataStats describes the production snapshot currently served.
type DataStats struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Days      int      `json:"days"`
	Machines  []string `json:"machines"`
	Shifts    []string `json:"shifts"`
}

type MetricsService interface {
	OEE(ctx context.Context, q metrics.Query) (model.OEEMetrics, error)
	Scrap(ctx context.Context, q metrics.Query) (model.ScrapMetrics, error)
	Quality(ctx context.Context, q metrics.Query) (model.QualityReport, error)
	Downtime(ctx context.Context, q metrics.Query) (model.DowntimeReport, error)
	Stats(ctx context.Context) (DataStats, error)
}

type metricsService struct {
	engine *metrics.Engine
	source data.Source
}

func NewMetricsService(engine *metrics.Engine, source data.Source) MetricsService {
	return &metricsService{engine: engine, source: source}
}

func (s *metricsService) OEE(ctx context.Context, q metrics.Query) (model.OEEMetrics, error) {
	res, err := s.engine.OEE(s.source.Snapshot(), q)
	logQuery(ctx, "oee", q, err)
	return res, err
}

func (s *metricsService) Scrap(ctx context.Context, q metrics.Query) (model.ScrapMetrics, error) {
	res, err := s.engine.Scrap(s.source.Snapshot(), q)
	logQuery(ctx, "scrap", q, err)
	return res, err
}

func (s *metricsService) Quality(ctx context.Context, q metrics.Query) (model.QualityReport, error) {
	res, err := s.engine.QualityIssues(s.source.Snapshot(), q)
	logQuery(ctx, "quality", q, err)
	return res, err
}

func (s *metricsService) Downtime(ctx context.Context, q metrics.Query) (model.DowntimeReport, error) {
	res, err := s.engine.Downtime(s.source.Snapshot(), q)
	logQuery(ctx, "downtime", q, err)
	return res, err
}

func (s *metricsService) Stats(ctx context.Context) (DataStats, error) {
	snap := s.source.Snapshot()
	if snap == nil {
		return DataStats{}, metrics.ErrNoData
	}

	stats := DataStats{
		StartDate: snap.StartDate,
		EndDate:   snap.EndDate,
		Days:      len(snap.Production),
		Machines:  make([]string, 0, len(snap.Machines)),
		Shifts:    make([]string, 0, len(snap.Shifts)),
	}
	for _, m := range snap.Machines {
		stats.Machines = append(stats.Machines, m.Name)
	}
	for _, sh := range snap.Shifts {
		stats.Shifts = append(stats.Shifts, sh.Name)
	}
	return stats, nil
}

func logQuery(ctx context.Context, metric string, q metrics.Query, err error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "factoryops.service.metrics"})
	if err != nil {
		slog.DebugContext(ctx, "metric query rejected", "metric", metric, "start_date", q.StartDate, "end_date", q.EndDate, "error", err)
		return
	}
	slog.DebugContext(ctx, "metric query served", "metric", metric, "start_date", q.StartDate, "end_date", q.EndDate, "machine", q.Machine)
}
