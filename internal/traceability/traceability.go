// Package traceability answers supply chain questions over a snapshot:
// which suppliers fed which batches, and which orders those batches filled.
// Like the metrics calculators, every query is pure.
package traceability

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
)

// DefectCostEstimate is the flat cost, in dollars, charged per scrapped part
// in impact reports.
const DefectCostEstimate = 50.0

// impactListLimit caps the batch and issue lists in a supplier impact report.
const impactListLimit = 10

const (
	DefaultBatchLimit = 50
	MaxBatchLimit     = 500
	DefaultOrderLimit = 50
	MaxOrderLimit     = 200
)

var (
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidLimit     = errors.New("invalid limit")
)

// DateRange bounds a query by inclusive yyyy-mm-dd dates. Either end may be
// empty to leave that side open.
type DateRange struct {
	StartDate string
	EndDate   string
}

func (r DateRange) validate() error {
	if r.StartDate != "" {
		if _, err := model.ParseDate(r.StartDate); err != nil {
			return fmt.Errorf("%w: start_date %q", metrics.ErrInvalidDate, r.StartDate)
		}
	}
	if r.EndDate != "" {
		if _, err := model.ParseDate(r.EndDate); err != nil {
			return fmt.Errorf("%w: end_date %q", metrics.ErrInvalidDate, r.EndDate)
		}
	}
	if r.StartDate != "" && r.EndDate != "" && r.StartDate > r.EndDate {
		return fmt.Errorf("%w: %s > %s", metrics.ErrInvalidRange, r.StartDate, r.EndDate)
	}
	return nil
}

func (r DateRange) contains(date string) bool {
	return (r.StartDate == "" || date >= r.StartDate) && (r.EndDate == "" || date <= r.EndDate)
}

// Suppliers lists suppliers best quality rating first, optionally narrowed
// to one status (case-insensitive).
func Suppliers(snap *model.Snapshot, status string) []model.Supplier {
	out := make([]model.Supplier, 0, len(snap.Suppliers))
	for _, s := range snap.Suppliers {
		if status == "" || strings.EqualFold(s.Status, status) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Supplier) int {
		return cmp.Or(cmp.Compare(b.QualityRating(), a.QualityRating()), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func Supplier(snap *model.Snapshot, id string) (model.Supplier, error) {
	for _, s := range snap.Suppliers {
		if strings.EqualFold(s.ID, id) {
			return s, nil
		}
	}
	return model.Supplier{}, fmt.Errorf("%w: %s", ErrSupplierNotFound, id)
}

// supplierUsage is what both impact reports share: the supplier's lots
// received in range and the in-range batches that consumed them.
type supplierUsage struct {
	supplier model.Supplier
	lots     []model.MaterialLot
	batches  []model.ProductionBatch
	issues   []model.BatchDefects
	defects  int
}

func usage(snap *model.Snapshot, supplierID string, r DateRange) (supplierUsage, error) {
	if err := r.validate(); err != nil {
		return supplierUsage{}, err
	}
	sup, err := Supplier(snap, supplierID)
	if err != nil {
		return supplierUsage{}, err
	}

	u := supplierUsage{supplier: sup, lots: []model.MaterialLot{}, issues: []model.BatchDefects{}}
	numbers := map[string]bool{}
	for _, lot := range snap.MaterialLots {
		if lot.SupplierID == sup.ID && r.contains(lot.ReceivedDate) {
			u.lots = append(u.lots, lot)
			numbers[lot.LotNumber] = true
		}
	}

	for _, b := range snap.Batches {
		if !r.contains(b.Date) || !b.UsesLot(numbers) {
			continue
		}
		u.batches = append(u.batches, b)
		if b.ScrapParts > 0 {
			u.issues = append(u.issues, model.BatchDefects{
				BatchID:     b.BatchID,
				Date:        b.Date,
				DefectCount: b.ScrapParts,
				DefectTypes: defectTypes(b),
			})
			u.defects += b.ScrapParts
		}
	}
	return u, nil
}

func defectTypes(b model.ProductionBatch) []string {
	types := []string{}
	for _, qi := range b.QualityIssues {
		if !slices.Contains(types, qi.Type) {
			types = append(types, qi.Type)
		}
	}
	return types
}

func affected(b model.ProductionBatch, withMaterials bool) model.AffectedBatch {
	a := model.AffectedBatch{
		BatchID:       b.BatchID,
		Date:          b.Date,
		MachineName:   b.MachineName,
		PartsProduced: b.PartsProduced,
		ScrapParts:    b.ScrapParts,
		OrderID:       b.OrderID,
	}
	if withMaterials {
		a.MaterialsConsumed = b.MaterialsConsumed
	}
	return a
}

// SupplierImpact summarizes how a supplier's lots affected production in
// the range. The batch and issue lists are capped at ten entries; the
// counts are not.
func SupplierImpact(snap *model.Snapshot, supplierID string, r DateRange) (model.SupplierImpact, error) {
	u, err := usage(snap, supplierID, r)
	if err != nil {
		return model.SupplierImpact{}, err
	}

	batches := make([]model.AffectedBatch, 0, min(len(u.batches), impactListLimit))
	for _, b := range u.batches[:min(len(u.batches), impactListLimit)] {
		batches = append(batches, affected(b, true))
	}

	return model.SupplierImpact{
		Supplier:             u.supplier,
		MaterialLotsSupplied: len(u.lots),
		AffectedBatchesCount: len(u.batches),
		QualityIssuesCount:   len(u.issues),
		TotalDefects:         u.defects,
		EstimatedCostImpact:  float64(u.defects) * DefectCostEstimate,
		MaterialLots:         u.lots,
		AffectedBatches:      batches,
		QualityIssues:        u.issues[:min(len(u.issues), impactListLimit)],
	}, nil
}

// ForwardTrace follows a supplier's lots to every batch that consumed them
// and on to the customer orders those batches were built for.
func ForwardTrace(snap *model.Snapshot, supplierID string, r DateRange) (model.ForwardTrace, error) {
	u, err := usage(snap, supplierID, r)
	if err != nil {
		return model.ForwardTrace{}, err
	}

	batches := make([]model.AffectedBatch, 0, len(u.batches))
	orderIDs := map[string]bool{}
	for _, b := range u.batches {
		batches = append(batches, affected(b, false))
		if b.OrderID != "" {
			orderIDs[b.OrderID] = true
		}
	}
	orders := []model.Order{}
	for _, o := range snap.Orders {
		if orderIDs[o.ID] {
			orders = append(orders, o)
		}
	}

	return model.ForwardTrace{
		Supplier:             u.supplier,
		MaterialLotsSupplied: len(u.lots),
		AffectedBatches:      batches,
		QualityIssues:        u.issues,
		AffectedOrders:       orders,
		ImpactSummary: model.ImpactSummary{
			BatchesAffected:     len(batches),
			QualityIssuesCount:  len(u.issues),
			TotalDefects:        u.defects,
			OrdersAffected:      len(orders),
			EstimatedCostImpact: float64(u.defects) * DefectCostEstimate,
		},
	}, nil
}

// BackwardTrace follows a batch back to the lots it consumed and the
// suppliers of those lots. Lots or suppliers missing from the snapshot leave
// their detail fields empty rather than failing the trace.
func BackwardTrace(snap *model.Snapshot, batchID string) (model.BackwardTrace, error) {
	batch, err := Batch(snap, batchID)
	if err != nil {
		return model.BackwardTrace{}, err
	}

	trace := model.BackwardTrace{
		Batch:          batch,
		MaterialsTrace: make([]model.MaterialTrace, 0, len(batch.MaterialsConsumed)),
		Suppliers:      []model.Supplier{},
	}
	seen := map[string]bool{}
	for _, m := range batch.MaterialsConsumed {
		mt := model.MaterialTrace{
			MaterialID:   m.MaterialID,
			MaterialName: m.MaterialName,
			QuantityUsed: m.QuantityUsed,
			Unit:         m.Unit,
			LotNumber:    m.LotNumber,
		}
		if i := slices.IndexFunc(snap.Materials, func(x model.Material) bool { return x.ID == m.MaterialID }); i >= 0 {
			mt.Material = &snap.Materials[i]
		}
		if i := slices.IndexFunc(snap.MaterialLots, func(x model.MaterialLot) bool { return x.LotNumber == m.LotNumber }); i >= 0 {
			lot := snap.MaterialLots[i]
			mt.Lot = &lot
			mt.SupplierID = lot.SupplierID
			if sup, err := Supplier(snap, lot.SupplierID); err == nil {
				mt.Supplier = &sup
				if !seen[sup.ID] {
					seen[sup.ID] = true
					trace.Suppliers = append(trace.Suppliers, sup)
				}
			}
		}
		trace.MaterialsTrace = append(trace.MaterialsTrace, mt)
	}

	var rate float64
	if batch.PartsProduced > 0 {
		rate = float64(batch.GoodParts) / float64(batch.PartsProduced) * 100
	}
	trace.SupplyChainSummary = model.SupplyChainSummary{
		MaterialsCount:     len(trace.MaterialsTrace),
		SuppliersCount:     len(trace.Suppliers),
		TotalPartsProduced: batch.PartsProduced,
		ScrapParts:         batch.ScrapParts,
		QualityRate:        rate,
	}
	return trace, nil
}

type BatchFilter struct {
	DateRange
	MachineID int // 0 = any
	OrderID   string
	Limit     int // 0 = DefaultBatchLimit
}

// Batches lists batches newest first.
func Batches(snap *model.Snapshot, f BatchFilter) ([]model.ProductionBatch, error) {
	limit, err := resolveLimit(f.Limit, DefaultBatchLimit, MaxBatchLimit)
	if err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	out := []model.ProductionBatch{}
	for _, b := range snap.Batches {
		if f.MachineID != 0 && b.MachineID != f.MachineID {
			continue
		}
		if f.OrderID != "" && !strings.EqualFold(b.OrderID, f.OrderID) {
			continue
		}
		if f.contains(b.Date) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.ProductionBatch) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), cmp.Compare(a.BatchID, b.BatchID))
	})
	return out[:min(len(out), limit)], nil
}

func Batch(snap *model.Snapshot, id string) (model.ProductionBatch, error) {
	for _, b := range snap.Batches {
		if strings.EqualFold(b.BatchID, id) {
			return b, nil
		}
	}
	return model.ProductionBatch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
}

type OrderFilter struct {
	Status string
	Limit  int // 0 = DefaultOrderLimit
}

// Orders lists orders by due date, earliest first.
func Orders(snap *model.Snapshot, f OrderFilter) ([]model.Order, error) {
	limit, err := resolveLimit(f.Limit, DefaultOrderLimit, MaxOrderLimit)
	if err != nil {
		return nil, err
	}

	out := []model.Order{}
	for _, o := range snap.Orders {
		if f.Status == "" || strings.EqualFold(o.Status, f.Status) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Order) int {
		return cmp.Or(cmp.Compare(a.DueDate, b.DueDate), cmp.Compare(a.ID, b.ID))
	})
	return out[:min(len(out), limit)], nil
}

func Order(snap *model.Snapshot, id string) (model.Order, error) {
	for _, o := range snap.Orders {
		if strings.EqualFold(o.ID, id) {
			return o, nil
		}
	}
	return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

// OrderBatches returns every batch built for the order, oldest first.
func OrderBatches(snap *model.Snapshot, id string) ([]model.ProductionBatch, error) {
	order, err := Order(snap, id)
	if err != nil {
		return nil, err
	}
	out := []model.ProductionBatch{}
	for _, b := range snap.Batches {
		if b.OrderID == order.ID {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.ProductionBatch) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.BatchID, b.BatchID))
	})
	return out, nil
}

func resolveLimit(limit, def, hi int) (int, error) {
	switch {
	case limit == 0:
		return def, nil
	case limit < 1 || limit > hi:
		return 0, fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidLimit, limit, hi)
	}
	return limit, nil
}
