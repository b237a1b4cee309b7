package dto

import (
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/model"
)

type InvestigationQuery struct {
	MachineID  string `form:"machine_id"`
	SupplierID string `form:"supplier_id"`
	Status     string `form:"status"`
}

func (q InvestigationQuery) ToFilter() model.InvestigationFilter {
	return model.InvestigationFilter{
		MachineID:  q.MachineID,
		SupplierID: q.SupplierID,
		Status:     model.InvestigationStatus(q.Status),
	}
}

type ActionQuery struct {
	MachineID string `form:"machine_id"`
}

type InvestigationListResponse struct {
	Investigations []model.Investigation `json:"investigations"`
	Count          int                   `json:"count"`
}

type ActionListResponse struct {
	Actions []model.Action `json:"actions"`
	Count   int            `json:"count"`
}

type RecordImpactRequest struct {
	ActualImpact string `json:"actual_impact"`
	FollowUpDate string `json:"follow_up_date,omitempty"`
}

func (r RecordImpactRequest) ToUpdate() memory.ActionImpactUpdate {
	return memory.ActionImpactUpdate{ActualImpact: r.ActualImpact, FollowUpDate: r.FollowUpDate}
}
