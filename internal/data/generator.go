package data

import (
	"math"
	"math/rand/v2"
	"time"

	"factoryops.app/assistant/internal/factory"
	"factoryops.app/assistant/internal/model"
)

const plannedHoursPerDay = 16.0 // two 8h shifts

type GenerateOptions struct {
	Days  int
	Seed  uint64
	Start time.Time // zero = Days before today
}

var suppliers = []model.Supplier{
	{
		ID: "SUP-001", Name: "SteelCorp International", Type: "Raw Materials",
		MaterialsSupplied: []string{"MAT-001"},
		Contact:           map[string]string{"email": "quality@steelcorp.example", "phone": "+1-555-0101"},
		QualityMetrics:    map[string]float64{"quality_rating": 94.5, "on_time_delivery_rate": 96.0, "defect_rate": 0.8},
		Certifications:    []string{"ISO 9001", "ISO 14001"},
		Status:            "Active",
	},
	{
		ID: "SUP-002", Name: "PrecisionFast LLC", Type: "Fasteners",
		MaterialsSupplied: []string{"MAT-003", "MAT-001"},
		Contact:           map[string]string{"email": "orders@precisionfast.example", "phone": "+1-555-0102"},
		QualityMetrics:    map[string]float64{"quality_rating": 82.0, "on_time_delivery_rate": 88.5, "defect_rate": 3.2},
		Certifications:    []string{"ISO 9001"},
		Status:            "Active",
	},
	{
		ID: "SUP-003", Name: "AluminumWorks Co", Type: "Raw Materials",
		MaterialsSupplied: []string{"MAT-002"},
		Contact:           map[string]string{"email": "sales@aluminumworks.example", "phone": "+1-555-0103"},
		QualityMetrics:    map[string]float64{"quality_rating": 91.0, "on_time_delivery_rate": 93.5, "defect_rate": 1.4},
		Certifications:    []string{"ISO 9001"},
		Status:            "Active",
	},
	{
		ID: "SUP-004", Name: "ComponentTech Industries", Type: "Electronics",
		MaterialsSupplied: []string{"MAT-004"},
		Contact:           map[string]string{"email": "support@componenttech.example", "phone": "+1-555-0104"},
		QualityMetrics:    map[string]float64{"quality_rating": 96.5, "on_time_delivery_rate": 97.0, "defect_rate": 0.5},
		Certifications:    []string{"ISO 9001", "IPC-A-610"},
		Status:            "Active",
	},
	{
		ID: "SUP-005", Name: "EcoMaterials Group", Type: "Packaging",
		MaterialsSupplied: []string{"MAT-005"},
		Contact:           map[string]string{"email": "hello@ecomaterials.example", "phone": "+1-555-0105"},
		QualityMetrics:    map[string]float64{"quality_rating": 89.0, "on_time_delivery_rate": 91.0, "defect_rate": 1.9},
		Certifications:    []string{"ISO 14001", "FSC"},
		Status:            "Active",
	},
}

// Generate builds a synthetic snapshot for inv. The same options always
// produce the same snapshot.
//
// Two storylines are planted so the assistant has something to find:
// a quality excursion on the first machine in days 15-20 traced to one
// supplier lot, and a long mechanical breakdown on the second machine on day 10.
// Supply chain records (lots, batches, orders) are derived afterwards from a
// separate random stream so they never shift the production numbers.
func Generate(inv factory.Inventory, opts GenerateOptions) *model.Snapshot {
	days := opts.Days
	if days <= 0 {
		days = 30
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Now().UTC().AddDate(0, 0, -days)
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	reasons := inv.DowntimeReasonNames()
	defects := inv.DefectTypeNames()

	snap := &model.Snapshot{
		StartDate:  start.Format(model.DateLayout),
		EndDate:    start.AddDate(0, 0, days-1).Format(model.DateLayout),
		Machines:   inv.Machines,
		Shifts:     inv.Shifts,
		Production: make(map[string]map[string]model.ProductionRecord, days),
	}

	excursionLot := excursionLotNumber(start)

	for d := range days {
		date := start.AddDate(0, 0, d).Format(model.DateLayout)
		day := make(map[string]model.ProductionRecord, len(inv.Machines))

		for mi, m := range inv.Machines {
			uptime := round2(plannedHoursPerDay - 0.5 - rng.Float64()*2.5)
			var events []model.DowntimeEvent
			if mi == 1 && d == 9 {
				uptime = round2(plannedHoursPerDay - 6.5)
				events = append(events, model.DowntimeEvent{
					Reason:        "mechanical",
					Description:   inv.DowntimeReasons["mechanical"] + " - spindle bearing",
					DurationHours: 5.0,
				})
			}
			downtime := round2(plannedHoursPerDay - uptime)
			events = splitDowntime(rng, events, downtime, reasons, inv.DowntimeReasons)

			cycle := m.IdealCycleTimeSecs
			if cycle <= 0 {
				cycle = 60
			}
			parts := int(uptime * 3600 / cycle * (0.82 + rng.Float64()*0.1))

			scrapRate := 0.01 + rng.Float64()*0.03
			excursion := mi == 0 && d >= 14 && d <= 19
			if excursion {
				scrapRate += 0.06
			}
			scrap := int(math.Round(float64(parts) * scrapRate))

			issues := qualityIssues(rng, inv, defects, scrap, excursion, excursionLot)

			day[m.Name] = model.ProductionRecord{
				PartsProduced:  parts,
				GoodParts:      parts - scrap,
				ScrapParts:     scrap,
				UptimeHours:    uptime,
				DowntimeHours:  downtime,
				DowntimeEvents: events,
				QualityIssues:  issues,
			}
		}
		snap.Production[date] = day
	}

	addSupplyChain(snap, opts.Seed, start, days)
	return snap
}

// splitDowntime tops up events so their durations sum to total.
func splitDowntime(rng *rand.Rand, events []model.DowntimeEvent, total float64, reasons []string, desc map[string]string) []model.DowntimeEvent {
	var used float64
	for _, e := range events {
		used += e.DurationHours
	}
	remaining := round2(total - used)
	if remaining <= 0 || len(reasons) == 0 {
		return events
	}

	n := 1 + rng.IntN(2)
	for i := range n {
		hours := remaining
		if i < n-1 {
			hours = round2(remaining * (0.3 + rng.Float64()*0.4))
		}
		remaining = round2(remaining - hours)
		reason := reasons[rng.IntN(len(reasons))]
		events = append(events, model.DowntimeEvent{
			Reason:        reason,
			Description:   desc[reason],
			DurationHours: hours,
		})
	}
	return events
}

func qualityIssues(rng *rand.Rand, inv factory.Inventory, defects []string, scrap int, excursion bool, lot string) []model.QualityIssue {
	if scrap == 0 || len(defects) == 0 {
		return nil
	}

	if excursion {
		return []model.QualityIssue{{
			Type:          "dimensional",
			Description:   inv.DefectTypes["dimensional"].Description + " - bore diameter oversize",
			PartsAffected: scrap,
			Severity:      model.SeverityHigh,
			MaterialID:    "MAT-001",
			LotNumber:     lot,
			SupplierID:    suppliers[1].ID,
			SupplierName:  suppliers[1].Name,
			RootCause:     "supplier",
		}}
	}

	if rng.Float64() > 0.35 {
		return nil
	}

	kind := defects[rng.IntN(len(defects))]
	issue := model.QualityIssue{
		Type:          kind,
		Description:   inv.DefectTypes[kind].Description,
		PartsAffected: 1 + rng.IntN(scrap),
		Severity:      inv.DefectTypes[kind].Severity,
	}
	if kind == "material" {
		s := suppliers[rng.IntN(len(suppliers))]
		issue.SupplierID = s.ID
		issue.SupplierName = s.Name
		issue.RootCause = "material"
	}
	return []model.QualityIssue{issue}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
