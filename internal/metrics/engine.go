// Package metrics computes OEE, scrap, quality, and downtime figures over a
// production snapshot. All calculators are pure: same snapshot and query,
// same result.
//
// Unit conventions differ by design of the reports: OEE components are
// ratios in [0, 1]; scrap rate is a percentage in [0, 100].
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"factoryops.app/assistant/internal/model"
)

// MajorDowntimeThresholdHours is the duration a single downtime event must
// exceed (strictly) to count as major.
const MajorDowntimeThresholdHours = 2.0

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidRange    = errors.New("start date is after end date")
	ErrNoData          = errors.New("no data for specified date range")
	ErrInvalidSeverity = errors.New("invalid severity")
)

// Query selects the rows a calculator aggregates. Dates are inclusive
// yyyy-mm-dd strings; Machine is optional.
type Query struct {
	StartDate string
	EndDate   string
	Machine   string
	Severity  string // quality issues only
}

// Engine holds the configured OEE performance factor.
// Performance is a fixed factor, not derived from cycle times.
type Engine struct {
	performance float64
}

func NewEngine(performance float64) *Engine {
	return &Engine{performance: performance}
}

func (e *Engine) Performance() float64 {
	return e.performance
}

type row struct {
	date    string
	machine string
	rec     model.ProductionRecord
}

// OEE computes availability × performance × quality over the selected rows.
// With zero parts produced, quality and OEE are 0 rather than an error.
func (e *Engine) OEE(snap *model.Snapshot, q Query) (model.OEEMetrics, error) {
	rows, err := selectRows(snap, q)
	if err != nil {
		return model.OEEMetrics{}, err
	}

	var parts, good, scrap int
	var uptime, downtime float64
	for _, r := range rows {
		parts += r.rec.PartsProduced
		good += r.rec.GoodParts
		scrap += r.rec.ScrapParts
		uptime += r.rec.UptimeHours
		downtime += r.rec.DowntimeHours
	}

	availability := ratio(uptime, uptime+downtime)
	quality := ratio(float64(good), float64(parts))
	oee := availability * e.performance * quality

	return model.OEEMetrics{
		OEE:          round(oee, 3),
		Availability: round(availability, 3),
		Performance:  round(e.performance, 3),
		Quality:      round(quality, 3),
		TotalParts:   parts,
		GoodParts:    good,
		ScrapParts:   scrap,
	}, nil
}

// Scrap totals scrap parts. The per-machine breakdown is only included
// when no machine filter is set.
func (e *Engine) Scrap(snap *model.Snapshot, q Query) (model.ScrapMetrics, error) {
	rows, err := selectRows(snap, q)
	if err != nil {
		return model.ScrapMetrics{}, err
	}

	result := model.ScrapMetrics{}
	if q.Machine == "" {
		result.ScrapByMachine = make(map[string]int)
	}
	for _, r := range rows {
		result.TotalScrap += r.rec.ScrapParts
		result.TotalParts += r.rec.PartsProduced
		if result.ScrapByMachine != nil {
			result.ScrapByMachine[r.machine] += r.rec.ScrapParts
		}
	}
	result.ScrapRate = round(ratio(float64(result.TotalScrap), float64(result.TotalParts))*100, 2)

	return result, nil
}

// QualityIssues lists issues in date then inventory order, optionally
// filtered by severity.
func (e *Engine) QualityIssues(snap *model.Snapshot, q Query) (model.QualityReport, error) {
	var severity model.Severity
	if q.Severity != "" {
		s, err := ParseSeverity(q.Severity)
		if err != nil {
			return model.QualityReport{}, err
		}
		severity = s
	}

	rows, err := selectRows(snap, q)
	if err != nil {
		return model.QualityReport{}, err
	}

	report := model.QualityReport{
		Issues:            []model.QualityIssueRecord{},
		SeverityBreakdown: make(map[model.Severity]int),
	}
	for _, r := range rows {
		for _, issue := range r.rec.QualityIssues {
			if severity != "" && issue.Severity != severity {
				continue
			}
			if issue.RootCause == "" {
				issue.RootCause = "unknown"
			}
			report.Issues = append(report.Issues, model.QualityIssueRecord{
				QualityIssue: issue,
				Date:         r.date,
				Machine:      r.machine,
			})
			report.TotalPartsAffected += issue.PartsAffected
			report.SeverityBreakdown[issue.Severity]++
		}
	}
	report.TotalIssues = len(report.Issues)

	return report, nil
}

// Downtime totals downtime hours, breaks them down by reason, and lists
// events longer than MajorDowntimeThresholdHours.
func (e *Engine) Downtime(snap *model.Snapshot, q Query) (model.DowntimeReport, error) {
	rows, err := selectRows(snap, q)
	if err != nil {
		return model.DowntimeReport{}, err
	}

	report := model.DowntimeReport{
		DowntimeByReason: make(map[string]float64),
		MajorEvents:      []model.MajorDowntimeEvent{},
	}
	var total float64
	for _, r := range rows {
		total += r.rec.DowntimeHours
		for _, ev := range r.rec.DowntimeEvents {
			report.DowntimeByReason[ev.Reason] += ev.DurationHours
			if IsMajorDowntime(ev.DurationHours) {
				report.MajorEvents = append(report.MajorEvents, model.MajorDowntimeEvent{
					Date:          r.date,
					Machine:       r.machine,
					Reason:        ev.Reason,
					Description:   ev.Description,
					DurationHours: ev.DurationHours,
				})
			}
		}
	}

	report.TotalDowntimeHours = round(total, 2)
	for reason, hours := range report.DowntimeByReason {
		report.DowntimeByReason[reason] = round(hours, 2)
	}

	return report, nil
}

// IsMajorDowntime reports whether a single event counts as major.
// Exactly MajorDowntimeThresholdHours is not major.
func IsMajorDowntime(hours float64) bool {
	return hours > MajorDowntimeThresholdHours
}

// ParseSeverity accepts Low/Medium/High in any letter case.
func ParseSeverity(v string) (model.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return model.SeverityLow, nil
	case "medium":
		return model.SeverityMedium, nil
	case "high":
		return model.SeverityHigh, nil
	}
	return "", fmt.Errorf("%w: %q (want Low, Medium, or High)", ErrInvalidSeverity, v)
}

// selectRows returns the (date, machine) records inside the query range,
// ordered by date and then by inventory order.
func selectRows(snap *model.Snapshot, q Query) ([]row, error) {
	start, err := model.ParseDate(q.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q", ErrInvalidDate, q.StartDate)
	}
	end, err := model.ParseDate(q.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date %q", ErrInvalidDate, q.EndDate)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, q.StartDate, q.EndDate)
	}
	if snap == nil {
		return nil, ErrNoData
	}

	machine := resolveMachine(snap, q.Machine)
	order := machineOrder(snap)

	var rows []row
	var datesInRange int
	for _, date := range snap.Dates() {
		if date < q.StartDate || date > q.EndDate {
			continue
		}
		datesInRange++
		day := snap.Production[date]

		names := make([]string, 0, len(day))
		for name := range day {
			if machine == "" || name == machine {
				names = append(names, name)
			}
		}
		sort.Slice(names, func(i, j int) bool {
			oi, oj := order(names[i]), order(names[j])
			if oi != oj {
				return oi < oj
			}
			return names[i] < names[j]
		})

		for _, name := range names {
			rows = append(rows, row{date: date, machine: name, rec: day[name]})
		}
	}

	if datesInRange == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoData, q.StartDate, q.EndDate)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no records for machine %q between %s and %s", ErrNoData, q.Machine, q.StartDate, q.EndDate)
	}
	return rows, nil
}

// resolveMachine maps a filter to the inventory's spelling, ignoring case.
func resolveMachine(snap *model.Snapshot, filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return ""
	}
	for _, m := range snap.Machines {
		if strings.EqualFold(m.Name, filter) {
			return m.Name
		}
	}
	return filter
}

func machineOrder(snap *model.Snapshot) func(string) int {
	idx := make(map[string]int, len(snap.Machines))
	for i, m := range snap.Machines {
		idx[m.Name] = i
	}
	return func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return len(idx)
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
