package dto

import "factoryops.app/assistant/internal/metrics"

type MetricsQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	Machine   string `form:"machine"`
	Severity  string `form:"severity"`
}

func (q MetricsQuery) ToQuery() metrics.Query {
	return metrics.Query{
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Machine:   q.Machine,
		Severity:  q.Severity,
	}
}
