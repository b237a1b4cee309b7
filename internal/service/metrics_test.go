package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/service"
)

var _ = Describe("MetricsService", func() {
	var (
		ctx context.Context
		svc service.MetricsService
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = service.NewMetricsService(metrics.NewEngine(0.95), data.NewStaticSource(testSnapshot()))
	})

	It("computes metrics against the current snapshot", func() {
		scrap, err := svc.Scrap(ctx, metrics.Query{StartDate: "2024-11-13", EndDate: "2024-11-14"})
		Expect(err).NotTo(HaveOccurred())
		Expect(scrap.TotalScrap).To(Equal(15))
		Expect(scrap.TotalParts).To(Equal(250))
		Expect(scrap.ScrapRate).To(Equal(6.0))
		Expect(scrap.ScrapByMachine).To(Equal(map[string]int{"CNC-001": 15, "Assembly-001": 0}))
	})

	It("passes engine errors through", func() {
		_, err := svc.OEE(ctx, metrics.Query{StartDate: "2024-11-14", EndDate: "2024-11-13"})
		Expect(err).To(MatchError(metrics.ErrInvalidRange))
	})

	It("describes the loaded data", func() {
		stats, err := svc.Stats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(service.DataStats{
			StartDate: "2024-11-13",
			EndDate:   "2024-11-14",
			Days:      2,
			Machines:  []string{"CNC-001", "Assembly-001"},
			Shifts:    []string{"Day"},
		}))
	})

	It("reports missing data when nothing is loaded", func() {
		empty := service.NewMetricsService(metrics.NewEngine(0.95), data.NewStaticSource(nil))
		_, err := empty.Stats(ctx)
		Expect(err).To(MatchError(metrics.ErrNoData))
	})
})
