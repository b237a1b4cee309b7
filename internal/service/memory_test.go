package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/service"
	"factoryops.app/assistant/internal/store"
)

var _ = Describe("MemoryService", func() {
	var (
		ctx  context.Context
		repo *memory.Repository
		svc  service.MemoryService
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = memory.NewRepository(store.NewMemoryStores(), memory.WithClock(func() time.Time {
			return time.Date(2024, 11, 14, 8, 0, 0, 0, time.UTC)
		}))
		svc = service.NewMemoryService(repo)
	})

	It("rejects unknown status filters", func() {
		_, err := svc.Investigations(ctx, model.InvestigationFilter{Status: "stalled"})
		Expect(err).To(MatchError(memory.ErrInvalidInput))
	})

	It("clears a follow-up once its impact is recorded", func() {
		action, err := repo.CreateAction(ctx, memory.NewAction{
			Description:    "Replaced coolant",
			ActionType:     model.ActionTypeMaintenance,
			ExpectedImpact: "Fewer surface defects",
			FollowUpDate:   "2024-11-14",
		})
		Expect(err).NotTo(HaveOccurred())

		pending, err := svc.PendingFollowups(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(1))

		updated, err := svc.RecordImpact(ctx, action.ID, memory.ActionImpactUpdate{ActualImpact: "Surface defects down 40%"})
		Expect(err).NotTo(HaveOccurred())
		Expect(*updated.ActualImpact).To(Equal("Surface defects down 40%"))

		pending, err = svc.PendingFollowups(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())

		summary, err := svc.Summary(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.ActionsByType).To(HaveKeyWithValue("maintenance", 1))
		Expect(summary.PendingFollowupCount).To(BeZero())
	})
})
