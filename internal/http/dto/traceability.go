package dto

import "factoryops.app/assistant/internal/traceability"

type DateRangeQuery struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

func (q DateRangeQuery) ToRange() traceability.DateRange {
	return traceability.DateRange{StartDate: q.StartDate, EndDate: q.EndDate}
}

type SupplierListQuery struct {
	Status string `form:"status"`
}

type BatchListQuery struct {
	DateRangeQuery
	MachineID int    `form:"machine_id"`
	OrderID   string `form:"order_id"`
	Limit     int    `form:"limit"`
}

func (q BatchListQuery) ToFilter() traceability.BatchFilter {
	return traceability.BatchFilter{
		DateRange: q.ToRange(),
		MachineID: q.MachineID,
		OrderID:   q.OrderID,
		Limit:     q.Limit,
	}
}

type OrderListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

func (q OrderListQuery) ToFilter() traceability.OrderFilter {
	return traceability.OrderFilter{Status: q.Status, Limit: q.Limit}
}
