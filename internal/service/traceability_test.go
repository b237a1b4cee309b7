package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/factory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/service"
	"factoryops.app/assistant/internal/traceability"
)

var _ = Describe("TraceabilityService", func() {
	var (
		ctx context.Context
		svc service.TraceabilityService
	)

	BeforeEach(func() {
		ctx = context.Background()
		snap := data.Generate(factory.Default("Demo"), data.GenerateOptions{
			Days: 30, Seed: 1, Start: time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC),
		})
		svc = service.NewTraceabilityService(data.NewStaticSource(snap))
	})

	It("lists suppliers best rated first", func() {
		sups, err := svc.Suppliers(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(sups).To(HaveLen(5))
		Expect(sups[0].ID).To(Equal("SUP-004"))
		Expect(sups[4].ID).To(Equal("SUP-002"))
	})

	It("traces a CNC batch from the excursion back to the quarantined lot", func() {
		trace, err := svc.BackwardTrace(ctx, "BATCH-20241030-CNC001-001")
		Expect(err).NotTo(HaveOccurred())
		Expect(trace.MaterialsTrace).To(HaveLen(1))
		Expect(trace.MaterialsTrace[0].LotNumber).To(Equal("LOT-20241029-017"))
		Expect(trace.Suppliers[0].Name).To(Equal("PrecisionFast LLC"))
	})

	It("reports supplier impact inside a window", func() {
		impact, err := svc.SupplierImpact(ctx, "SUP-002", traceability.DateRange{StartDate: "2024-10-29", EndDate: "2024-11-03"})
		Expect(err).NotTo(HaveOccurred())
		Expect(impact.MaterialLotsSupplied).To(Equal(2))
		Expect(impact.TotalDefects).To(BeNumerically(">", 0))
		Expect(impact.EstimatedCostImpact).To(Equal(float64(impact.TotalDefects) * traceability.DefectCostEstimate))
	})

	It("finds the batches built for an order", func() {
		orders, err := svc.Orders(ctx, traceability.OrderFilter{Limit: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(orders).To(HaveLen(1))

		batches, err := svc.OrderBatches(ctx, orders[0].ID)
		Expect(err).NotTo(HaveOccurred())
		var good int
		for _, b := range batches {
			Expect(b.OrderID).To(Equal(orders[0].ID))
			good += b.GoodParts
		}
		Expect(good).To(Equal(orders[0].Items[0].Quantity))
	})

	It("passes lookup errors through", func() {
		_, err := svc.Batch(ctx, "BATCH-nope")
		Expect(err).To(MatchError(traceability.ErrBatchNotFound))
		_, err = svc.ForwardTrace(ctx, "SUP-404", traceability.DateRange{})
		Expect(err).To(MatchError(traceability.ErrSupplierNotFound))
	})

	It("reports missing data when nothing is loaded", func() {
		empty := service.NewTraceabilityService(data.NewStaticSource(nil))
		_, err := empty.Suppliers(ctx, "")
		Expect(err).To(MatchError(metrics.ErrNoData))
	})
})
