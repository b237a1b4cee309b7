package model

type OEEMetrics struct {
	OEE          float64 `json:"oee"`
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	TotalParts   int     `json:"total_parts"`
	GoodParts    int     `json:"good_parts"`
	ScrapParts   int     `json:"scrap_parts"`
}

// ScrapMetrics reports ScrapRate as a percentage in [0, 100].
type ScrapMetrics struct {
	TotalScrap     int            `json:"total_scrap"`
	TotalParts     int            `json:"total_parts"`
	ScrapRate      float64        `json:"scrap_rate"`
	ScrapByMachine map[string]int `json:"scrap_by_machine,omitempty"`
}

type QualityIssueRecord struct {
	QualityIssue
	Date    string `json:"date"`
	Machine string `json:"machine"`
}

type QualityReport struct {
	Issues             []QualityIssueRecord `json:"issues"`
	TotalIssues        int                  `json:"total_issues"`
	TotalPartsAffected int                  `json:"total_parts_affected"`
	SeverityBreakdown  map[Severity]int     `json:"severity_breakdown"`
}

type MajorDowntimeEvent struct {
	Date          string  `json:"date"`
	Machine       string  `json:"machine"`
	Reason        string  `json:"reason"`
	Description   string  `json:"description"`
	DurationHours float64 `json:"duration_hours"`
}

type DowntimeReport struct {
	TotalDowntimeHours float64              `json:"total_downtime_hours"`
	DowntimeByReason   map[string]float64   `json:"downtime_by_reason"`
	MajorEvents        []MajorDowntimeEvent `json:"major_events"`
}
