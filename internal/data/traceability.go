package data

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"factoryops.app/assistant/internal/model"
)

const (
	lotIntervalDays   = 7
	orderBlockDays    = 7
	excursionStartDay = 14
	excursionEndDay   = 19
)

var materials = []model.Material{
	{ID: "MAT-001", Name: "Steel Bar 304", Category: "Raw Material", Specification: "ASTM A276, 25mm round", Unit: "kg", PreferredSuppliers: []string{"SUP-001"}, QuantityPerPart: 0.35},
	{ID: "MAT-002", Name: "Aluminum 6061-T6", Category: "Raw Material", Specification: "ASTM B221, 40mm bar", Unit: "kg", PreferredSuppliers: []string{"SUP-003"}, QuantityPerPart: 0.2},
	{ID: "MAT-003", Name: "M8 Hex Bolt", Category: "Fastener", Specification: "ISO 4017 class 8.8", Unit: "pieces", PreferredSuppliers: []string{"SUP-002"}, QuantityPerPart: 4},
	{ID: "MAT-004", Name: "Control Board CB-200", Category: "Electronics", Specification: "IPC-A-610 class 2", Unit: "pieces", PreferredSuppliers: []string{"SUP-004"}, QuantityPerPart: 1},
	{ID: "MAT-005", Name: "Stretch Film 23um", Category: "Packaging", Specification: "LLDPE, 500mm roll", Unit: "meters", PreferredSuppliers: []string{"SUP-005"}, QuantityPerPart: 0.6},
}

// machineMaterials lists, by machine position, indexes into materials.
// Plants with more machines reuse the pattern.
var machineMaterials = [][]int{{0}, {2, 3}, {4}, {1}}

type part struct {
	number string
	price  float64
}

var parts = []part{
	{"PN-1001-SHAFT", 18.50},
	{"PN-2001-ASSY", 64.00},
	{"PN-3001-PACK", 2.75},
	{"PN-4001-HOUSING", 22.40},
}

var (
	operators  = []string{"J. Alvarez", "M. Chen", "R. Okafor", "S. Novak", "T. Brennan", "K. Iyer"}
	customers  = []string{"Northwind Motors", "Apex Robotics", "Bluewater Marine", "Keystone Appliances"}
	priorities = []string{"Low", "Normal", "High", "Urgent"}
)

// orderKey groups a machine's output over one order block.
type orderKey struct{ block, machine int }

// excursionLotNumber names the off-spec steel lot behind the planted excursion.
func excursionLotNumber(start time.Time) string {
	return lotNumber(start.AddDate(0, 0, excursionStartDay), 17)
}

func lotNumber(received time.Time, seq int) string {
	return fmt.Sprintf("LOT-%s-%03d", received.Format("20060102"), seq)
}

// addSupplyChain splits each production record into per-shift batches and
// derives the material lots they consumed and the orders they filled.
func addSupplyChain(snap *model.Snapshot, seed uint64, start time.Time, days int) {
	rng := rand.New(rand.NewPCG(seed^0x5bd1e995, seed))

	shifts := snap.Shifts
	if len(shifts) == 0 {
		shifts = []model.Shift{{ID: 1, Name: "Day", StartHour: 6, EndHour: 22}}
	}

	snap.Suppliers = append([]model.Supplier(nil), suppliers...)
	snap.Materials = append([]model.Material(nil), materials...)

	lots := map[string]*model.MaterialLot{}
	var lotOrder []string
	useLot := func(matIdx int, supplierID, number string, received time.Time, qty float64) string {
		lot, ok := lots[number]
		if !ok {
			lot = &model.MaterialLot{
				LotNumber:    number,
				MaterialID:   materials[matIdx].ID,
				SupplierID:   supplierID,
				ReceivedDate: received.Format(model.DateLayout),
			}
			lots[number] = lot
			lotOrder = append(lotOrder, number)
		}
		lot.QuantityRemaining += qty // usage total until finishLots
		return number
	}

	orders := map[orderKey]*model.Order{}
	var orderKeys []orderKey
	excursionLot := excursionLotNumber(start)

	for d := range days {
		day := start.AddDate(0, 0, d)
		date := day.Format(model.DateLayout)
		block := d / orderBlockDays

		for mi, m := range snap.Machines {
			rec := snap.Production[date][m.Name]
			produced := splitEven(rec.PartsProduced, len(shifts))
			scrap := splitScrap(rec.ScrapParts, produced)
			p := parts[mi%len(parts)]

			key := orderKey{block, mi}
			order, ok := orders[key]
			if !ok {
				order = &model.Order{
					ID:       fmt.Sprintf("ORD-%03d", len(orders)+1),
					Customer: customers[rng.IntN(len(customers))],
					Priority: priorities[rng.IntN(len(priorities))],
					Items:    []model.OrderItem{{PartNumber: p.number, UnitPrice: p.price}},
				}
				order.OrderNumber = fmt.Sprintf("SO-%d-%04d", start.Year(), len(orders)+1)
				orders[key] = order
				orderKeys = append(orderKeys, key)
			}

			issuesPlaced := false
			for si, sh := range shifts {
				batch := model.ProductionBatch{
					BatchID:       fmt.Sprintf("BATCH-%s-%s-%03d", day.Format("20060102"), strings.ReplaceAll(strings.ToUpper(m.Name), "-", ""), si+1),
					Date:          date,
					MachineID:     m.ID,
					MachineName:   m.Name,
					ShiftID:       sh.ID,
					ShiftName:     sh.Name,
					OrderID:       order.ID,
					PartNumber:    p.number,
					Operator:      operators[rng.IntN(len(operators))],
					PartsProduced: produced[si],
					ScrapParts:    scrap[si],
					GoodParts:     produced[si] - scrap[si],
					StartTime:     fmt.Sprintf("%02d:00", sh.StartHour),
					EndTime:       fmt.Sprintf("%02d:00", sh.EndHour),
					DurationHours: round2(rec.UptimeHours / float64(len(shifts))),
				}
				if !issuesPlaced && len(rec.QualityIssues) > 0 && (batch.ScrapParts > 0 || si == len(shifts)-1) {
					batch.QualityIssues = rec.QualityIssues
					issuesPlaced = true
				}

				for _, idx := range machineMaterials[mi%len(machineMaterials)] {
					mat := materials[idx]
					qty := round2(float64(batch.PartsProduced) * mat.QuantityPerPart)
					var number string
					if idx == 0 && mi == 0 && d >= excursionStartDay && d <= excursionEndDay {
						number = useLot(idx, suppliers[1].ID, excursionLot, start.AddDate(0, 0, excursionStartDay), qty)
					} else {
						received := start.AddDate(0, 0, d/lotIntervalDays*lotIntervalDays)
						number = useLot(idx, mat.PreferredSuppliers[0], lotNumber(received, idx+1), received, qty)
					}
					batch.MaterialsConsumed = append(batch.MaterialsConsumed, model.MaterialUsage{
						MaterialID:   mat.ID,
						MaterialName: mat.Name,
						LotNumber:    number,
						QuantityUsed: qty,
						Unit:         mat.Unit,
					})
				}

				order.Items[0].Quantity += batch.GoodParts
				snap.Batches = append(snap.Batches, batch)
			}
		}
	}

	snap.MaterialLots = finishLots(rng, lots, lotOrder, excursionLot, start.AddDate(0, 0, days-1))
	snap.Orders = finishOrders(orders, orderKeys, start, days)
}

func finishLots(rng *rand.Rand, lots map[string]*model.MaterialLot, order []string, excursionLot string, last time.Time) []model.MaterialLot {
	out := make([]model.MaterialLot, 0, len(order))
	current := last.AddDate(0, 0, -lotIntervalDays)
	for _, number := range order {
		lot := *lots[number]
		used := lot.QuantityRemaining
		received, _ := model.ParseDate(lot.ReceivedDate)
		switch {
		case number == excursionLot:
			lot.QuantityReceived = math.Ceil(used * 1.25)
			lot.Status = "Quarantine"
			lot.Quarantine = true
		case received.After(current):
			lot.QuantityReceived = math.Ceil(used * (1.3 + rng.Float64()*0.4))
			lot.Status = "InUse"
		default:
			lot.QuantityReceived = math.Ceil(used)
			lot.Status = "Depleted"
		}
		lot.QuantityRemaining = round2(lot.QuantityReceived - used)
		out = append(out, lot)
	}
	return out
}

func finishOrders(orders map[orderKey]*model.Order, keys []orderKey, start time.Time, days int) []model.Order {
	last := start.AddDate(0, 0, days-1)
	out := make([]model.Order, 0, len(keys))
	for _, k := range keys {
		o := *orders[k]
		blockEnd := start.AddDate(0, 0, (k.block+1)*orderBlockDays-1)
		due := blockEnd.AddDate(0, 0, 3)
		o.DueDate = due.Format(model.DateLayout)
		switch {
		case due.Before(last):
			shipped := blockEnd.AddDate(0, 0, 2).Format(model.DateLayout)
			o.ShippingDate = &shipped
			o.Status = "Shipped"
		case !blockEnd.After(last):
			o.Status = "Completed"
		default:
			o.Status = "InProgress"
		}
		o.TotalValue = round2(float64(o.Items[0].Quantity) * o.Items[0].UnitPrice)
		out = append(out, o)
	}
	return out
}

// splitEven divides total into n parts, the remainder going to the first ones.
func splitEven(total, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = total / n
		if i < total%n {
			out[i]++
		}
	}
	return out
}

// splitScrap spreads scrap over batches in proportion to their output
// without letting any batch scrap more than it produced.
func splitScrap(scrap int, produced []int) []int {
	out := make([]int, len(produced))
	total := 0
	for _, p := range produced {
		total += p
	}
	if total == 0 {
		return out
	}
	left := scrap
	for i, p := range produced {
		out[i] = scrap * p / total
		left -= out[i]
	}
	for i := 0; left > 0 && i < len(out); i++ {
		add := min(left, produced[i]-out[i])
		out[i] += add
		left -= add
	}
	return out
}
