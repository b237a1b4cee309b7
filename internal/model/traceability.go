package model

type Supplier struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Type              string             `json:"type"`
	MaterialsSupplied []string           `json:"materials_supplied"`
	Contact           map[string]string  `json:"contact,omitempty"`
	QualityMetrics    map[string]float64 `json:"quality_metrics"` // quality_rating, on_time_delivery_rate, defect_rate (0-100)
	Certifications    []string           `json:"certifications"`
	Status            string             `json:"status"` // Active, OnHold, Suspended
}

// QualityRating is the supplier's 0-100 quality score, 0 when unknown.
func (s Supplier) QualityRating() float64 {
	return s.QualityMetrics["quality_rating"]
}

type Material struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	Specification      string   `json:"specification"`
	Unit               string   `json:"unit"`
	PreferredSuppliers []string `json:"preferred_suppliers"`
	QuantityPerPart    float64  `json:"quantity_per_part"`
}

type MaterialLot struct {
	LotNumber         string  `json:"lot_number"`
	MaterialID        string  `json:"material_id"`
	SupplierID        string  `json:"supplier_id"`
	ReceivedDate      string  `json:"received_date"`
	QuantityReceived  float64 `json:"quantity_received"`
	QuantityRemaining float64 `json:"quantity_remaining"`
	Status            string  `json:"status"` // Available, InUse, Depleted, Quarantine
	Quarantine        bool    `json:"quarantine"`
}

type MaterialUsage struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	LotNumber    string  `json:"lot_number"`
	QuantityUsed float64 `json:"quantity_used"`
	Unit         string  `json:"unit"`
}

// ProductionBatch is one machine's run during one shift. The batches of a
// day and machine add up to that day's ProductionRecord.
type ProductionBatch struct {
	BatchID           string          `json:"batch_id"`
	Date              string          `json:"date"`
	MachineID         int             `json:"machine_id"`
	MachineName       string          `json:"machine_name"`
	ShiftID           int             `json:"shift_id"`
	ShiftName         string          `json:"shift_name"`
	OrderID           string          `json:"order_id,omitempty"`
	PartNumber        string          `json:"part_number"`
	Operator          string          `json:"operator"`
	PartsProduced     int             `json:"parts_produced"`
	GoodParts         int             `json:"good_parts"`
	ScrapParts        int             `json:"scrap_parts"`
	MaterialsConsumed []MaterialUsage `json:"materials_consumed"`
	QualityIssues     []QualityIssue  `json:"quality_issues"`
	StartTime         string          `json:"start_time,omitempty"` // HH:MM
	EndTime           string          `json:"end_time,omitempty"`
	DurationHours     float64         `json:"duration_hours,omitempty"`
}

// UsesLot reports whether any material in the batch came from one of lots.
func (b ProductionBatch) UsesLot(lots map[string]bool) bool {
	for _, m := range b.MaterialsConsumed {
		if lots[m.LotNumber] {
			return true
		}
	}
	return false
}

type OrderItem struct {
	PartNumber string  `json:"part_number"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

type Order struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"order_number"`
	Customer     string      `json:"customer"`
	Items        []OrderItem `json:"items"`
	DueDate      string      `json:"due_date"`
	Status       string      `json:"status"`   // Pending, InProgress, Completed, Shipped, Delayed
	Priority     string      `json:"priority"` // Low, Normal, High, Urgent
	ShippingDate *string     `json:"shipping_date,omitempty"`
	TotalValue   float64     `json:"total_value"`
}

// AffectedBatch is the slice of a batch shown in supplier impact reports.
type AffectedBatch struct {
	BatchID           string          `json:"batch_id"`
	Date              string          `json:"date"`
	MachineName       string          `json:"machine_name"`
	PartsProduced     int             `json:"parts_produced"`
	ScrapParts        int             `json:"scrap_parts"`
	OrderID           string          `json:"order_id,omitempty"`
	MaterialsConsumed []MaterialUsage `json:"materials_consumed,omitempty"`
}

type BatchDefects struct {
	BatchID     string   `json:"batch_id"`
	Date        string   `json:"date"`
	DefectCount int      `json:"defect_count"`
	DefectTypes []string `json:"defect_types"`
}

type SupplierImpact struct {
	Supplier             Supplier        `json:"supplier"`
	MaterialLotsSupplied int             `json:"material_lots_supplied"`
	AffectedBatchesCount int             `json:"affected_batches_count"`
	QualityIssuesCount   int             `json:"quality_issues_count"`
	TotalDefects         int             `json:"total_defects"`
	EstimatedCostImpact  float64         `json:"estimated_cost_impact"`
	MaterialLots         []MaterialLot   `json:"material_lots"`
	AffectedBatches      []AffectedBatch `json:"affected_batches"`
	QualityIssues        []BatchDefects  `json:"quality_issues"`
}

type ImpactSummary struct {
	BatchesAffected     int     `json:"batches_affected"`
	QualityIssuesCount  int     `json:"quality_issues_count"`
	TotalDefects        int     `json:"total_defects"`
	OrdersAffected      int     `json:"orders_affected"`
	EstimatedCostImpact float64 `json:"estimated_cost_impact"`
}

// ForwardTrace follows a supplier's lots into batches and customer orders.
type ForwardTrace struct {
	Supplier             Supplier        `json:"supplier"`
	MaterialLotsSupplied int             `json:"material_lots_supplied"`
	AffectedBatches      []AffectedBatch `json:"affected_batches"`
	QualityIssues        []BatchDefects  `json:"quality_issues"`
	AffectedOrders       []Order         `json:"affected_orders"`
	ImpactSummary        ImpactSummary   `json:"impact_summary"`
}

type MaterialTrace struct {
	MaterialID   string       `json:"material_id"`
	MaterialName string       `json:"material_name"`
	Material     *Material    `json:"material_spec,omitempty"`
	QuantityUsed float64      `json:"quantity_used"`
	Unit         string       `json:"unit"`
	LotNumber    string       `json:"lot_number"`
	Lot          *MaterialLot `json:"lot_details,omitempty"`
	SupplierID   string       `json:"supplier_id,omitempty"`
	Supplier     *Supplier    `json:"supplier,omitempty"`
}

type SupplyChainSummary struct {
	MaterialsCount     int     `json:"materials_count"`
	SuppliersCount     int     `json:"suppliers_count"`
	TotalPartsProduced int     `json:"total_parts_produced"`
	ScrapParts         int     `json:"scrap_parts"`
	QualityRate        float64 `json:"quality_rate"` // percent
}

// BackwardTrace follows a batch back to its material lots and suppliers.
type BackwardTrace struct {
	Batch              ProductionBatch    `json:"batch"`
	MaterialsTrace     []MaterialTrace    `json:"materials_trace"`
	Suppliers          []Supplier         `json:"suppliers"`
	SupplyChainSummary SupplyChainSummary `json:"supply_chain_summary"`
}
