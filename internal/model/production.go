package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar date format used for production days and follow-ups.
const DateLayout = "2006-01-02"

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

type Machine struct {
	ID                 int     `json:"id" yaml:"id"`
	Name               string  `json:"name" yaml:"name"`
	Type               string  `json:"type" yaml:"type"`
	IdealCycleTimeSecs float64 `json:"ideal_cycle_time" yaml:"ideal_cycle_time"`
}

type Shift struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	StartHour int    `json:"start_hour" yaml:"start_hour"`
	EndHour   int    `json:"end_hour" yaml:"end_hour"`
}

type DowntimeEvent struct {
	Reason        string  `json:"reason"`
	Description   string  `json:"description"`
	DurationHours float64 `json:"duration_hours"`
}

type QualityIssue struct {
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	PartsAffected int      `json:"parts_affected"`
	Severity      Severity `json:"severity"`
	MaterialID    string   `json:"material_id,omitempty"`
	LotNumber     string   `json:"lot_number,omitempty"`
	SupplierID    string   `json:"supplier_id,omitempty"`
	SupplierName  string   `json:"supplier_name,omitempty"`
	RootCause     string   `json:"root_cause,omitempty"`
}

// ProductionRecord is one machine's output for one day.
type ProductionRecord struct {
	PartsProduced  int             `json:"parts_produced"`
	GoodParts      int             `json:"good_parts"`
	ScrapParts     int             `json:"scrap_parts"`
	UptimeHours    float64         `json:"uptime_hours"`
	DowntimeHours  float64         `json:"downtime_hours"`
	DowntimeEvents []DowntimeEvent `json:"downtime_events"`
	QualityIssues  []QualityIssue  `json:"quality_issues"`
}

// Snapshot is the read-only production dataset for a range of days.
// Production is keyed by date (yyyy-mm-dd) and then machine name.
// A snapshot is never mutated after load; reloads swap in a new one.
type Snapshot struct {
	StartDate  string                                 `json:"start_date"`
	EndDate    string                                 `json:"end_date"`
	Machines   []Machine                              `json:"machines"`
	Shifts     []Shift                                `json:"shifts"`
	Production map[string]map[string]ProductionRecord `json:"production"`

	// Supply chain records. Older data files carry none of these.
	Suppliers    []Supplier        `json:"suppliers,omitempty"`
	Materials    []Material        `json:"materials_catalog,omitempty"`
	MaterialLots []MaterialLot     `json:"material_lots,omitempty"`
	Batches      []ProductionBatch `json:"production_batches,omitempty"`
	Orders       []Order           `json:"orders,omitempty"`
}

// Dates returns the snapshot's production dates in ascending order.
func (s *Snapshot) Dates() []string {
	dates := make([]string, 0, len(s.Production))
	for d := range s.Production {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// MachineNames returns machine names in inventory order.
func (s *Snapshot) MachineNames() []string {
	names := make([]string, len(s.Machines))
	for i, m := range s.Machines {
		names[i] = m.Name
	}
	return names
}

// ParseDate parses a yyyy-mm-dd date in UTC.
func ParseDate(v string) (time.Time, error) {
	return time.Parse(DateLayout, v)
}
