package memory_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/store"
)

var _ = Describe("Repository", func() {
	var (
		ctx  context.Context
		repo *memory.Repository
		now  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 11, 14, 9, 30, 0, 0, time.UTC)
		repo = memory.NewRepository(store.NewMemoryStores(), memory.WithClock(func() time.Time { return now }))
	})

	newInvestigation := func() *model.Investigation {
		inv, err := repo.CreateInvestigation(ctx, memory.NewInvestigation{
			Title:              "CNC-001 dimensional drift",
			InitialObservation: "bore diameter trending high since Monday",
			MachineID:          "CNC-001",
			SupplierID:         "SUP-002",
		})
		Expect(err).NotTo(HaveOccurred())
		return inv
	}

	Describe("CreateInvestigation", func() {
		It("opens the investigation with a dated id", func() {
			inv := newInvestigation()
			Expect(inv.ID).To(MatchRegexp(`^INV-20241114-[0-9A-Z]+$`))
			Expect(inv.Status).To(Equal(model.InvestigationStatusOpen))
			Expect(inv.Findings).To(BeEmpty())
			Expect(inv.CreatedAt).To(Equal(now))
		})

		It("requires a title", func() {
			_, err := repo.CreateInvestigation(ctx, memory.NewInvestigation{InitialObservation: "x"})
			Expect(err).To(MatchError(memory.ErrInvalidInput))
		})

		It("yields distinct ids for concurrent creation at the same instant", func() {
			const n = 64
			ids := make(chan string, n)
			var wg sync.WaitGroup
			for range n {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					inv, err := repo.CreateInvestigation(ctx, memory.NewInvestigation{Title: "t", InitialObservation: "o"})
					Expect(err).NotTo(HaveOccurred())
					ids <- inv.ID
				}()
			}
			wg.Wait()
			close(ids)

			seen := map[string]bool{}
			for id := range ids {
				Expect(seen).NotTo(HaveKey(id))
				seen[id] = true
			}
			Expect(seen).To(HaveLen(n))

			all, err := repo.ListInvestigations(ctx, model.InvestigationFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(n))
		})
	})

	Describe("UpdateInvestigation", func() {
		It("appends findings and hypotheses in order", func() {
			inv := newInvestigation()

			_, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{Finding: "lot 017 affected"})
			Expect(err).NotTo(HaveOccurred())
			updated, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{
				Status:     model.InvestigationStatusInProgress,
				Finding:    "only SUP-002 material",
				Hypothesis: "supplier tolerance drift",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(model.InvestigationStatusInProgress))
			Expect(updated.Findings).To(Equal([]string{"lot 017 affected", "only SUP-002 material"}))
			Expect(updated.Hypotheses).To(Equal([]string{"supplier tolerance drift"}))
		})

		It("allows skipping forward", func() {
			inv := newInvestigation()
			updated, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{
				Status:    model.InvestigationStatusResolved,
				RootCause: "supplier",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(model.InvestigationStatusResolved))
			Expect(updated.RootCause).To(Equal("supplier"))
		})

		It("rejects moving backwards", func() {
			inv := newInvestigation()
			_, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{Status: model.InvestigationStatusResolved})
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{Status: model.InvestigationStatusOpen})
			Expect(err).To(MatchError(memory.ErrInvalidTransition))
		})

		It("reports unknown ids", func() {
			_, err := repo.UpdateInvestigation(ctx, "INV-20241114-NOPE", memory.InvestigationUpdate{Finding: "x"})
			Expect(err).To(MatchError(memory.ErrInvestigationNotFound))
		})

		It("rejects empty updates", func() {
			inv := newInvestigation()
			_, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{})
			Expect(err).To(MatchError(memory.ErrInvalidInput))
		})

		DescribeTable("rejects every update once closed",
			func(prior model.InvestigationStatus) {
				inv := newInvestigation()
				if prior != model.InvestigationStatusOpen {
					_, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{Status: prior})
					Expect(err).NotTo(HaveOccurred())
				}
				_, err := repo.UpdateInvestigation(ctx, inv.ID, memory.InvestigationUpdate{Status: model.InvestigationStatusClosed})
				Expect(err).NotTo(HaveOccurred())

				for _, upd := range []memory.InvestigationUpdate{
					{Finding: "late finding"},
					{Hypothesis: "late hypothesis"},
					{Status: model.InvestigationStatusClosed},
					{Resolution: "reopened"},
				} {
					_, err = repo.UpdateInvestigation(ctx, inv.ID, upd)
					Expect(err).To(MatchError(memory.ErrInvestigationClosed))
				}

				stored, err := repo.GetInvestigation(ctx, inv.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Findings).To(BeEmpty())
				Expect(stored.Resolution).To(BeEmpty())
			},
			Entry("from open", model.InvestigationStatusOpen),
			Entry("from in_progress", model.InvestigationStatusInProgress),
			Entry("from resolved", model.InvestigationStatusResolved),
		)
	})

	Describe("actions", func() {
		logAction := func(followUp string) *model.Action {
			a, err := repo.CreateAction(ctx, memory.NewAction{
				Description:     "Reduced spindle speed 5%",
				ActionType:      model.ActionTypeParameterChange,
				ExpectedImpact:  "scrap under 3%",
				MachineID:       "CNC-001",
				BaselineMetrics: map[string]float64{"scrap_rate": 4.2},
				FollowUpDate:    followUp,
			})
			Expect(err).NotTo(HaveOccurred())
			return a
		}

		It("validates action type and follow-up date", func() {
			_, err := repo.CreateAction(ctx, memory.NewAction{Description: "d", ActionType: "recalibration", ExpectedImpact: "e"})
			Expect(err).To(MatchError(memory.ErrInvalidInput))

			_, err = repo.CreateAction(ctx, memory.NewAction{Description: "d", ActionType: model.ActionTypeMaintenance, ExpectedImpact: "e", FollowUpDate: "next week"})
			Expect(err).To(MatchError(memory.ErrInvalidInput))
		})

		It("treats the follow-up date boundary inclusively", func() {
			yesterday := logAction("2024-11-13")
			today := logAction("2024-11-14")
			logAction("2024-11-15")
			logAction("")
			answered := logAction("2024-11-12")
			_, err := repo.UpdateActionImpact(ctx, answered.ID, memory.ActionImpactUpdate{ActualImpact: "scrap down to 2.8%"})
			Expect(err).NotTo(HaveOccurred())

			pending, err := repo.PendingFollowups(ctx)
			Expect(err).NotTo(HaveOccurred())

			ids := []string{}
			for _, a := range pending {
				ids = append(ids, a.ID)
			}
			Expect(ids).To(ConsistOf(yesterday.ID, today.ID))
		})

		It("reschedules a follow-up without recording impact", func() {
			a := logAction("2024-11-10")
			updated, err := repo.UpdateActionImpact(ctx, a.ID, memory.ActionImpactUpdate{FollowUpDate: "2024-11-20"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.ActualImpact).To(BeNil())
			Expect(updated.FollowUpDate).To(HaveValue(Equal("2024-11-20")))

			pending, err := repo.PendingFollowups(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("reports unknown action ids", func() {
			_, err := repo.UpdateActionImpact(ctx, "ACT-missing", memory.ActionImpactUpdate{ActualImpact: "x"})
			Expect(err).To(MatchError(memory.ErrActionNotFound))
		})
	})

	Describe("identifiers", func() {
		It("dates ids by the same calendar day Today reports", func() {
			plant := time.FixedZone("plant", -5*60*60)
			now = time.Date(2024, 11, 14, 23, 30, 0, 0, plant)

			inv := newInvestigation()
			Expect(repo.Today()).To(Equal("2024-11-14"))
			Expect(inv.ID).To(HavePrefix("INV-20241114-"))
		})
	})

	Describe("ShiftSummary", func() {
		It("collects non-closed investigations, today's actions, and due follow-ups", func() {
			closed := newInvestigation()
			_, err := repo.UpdateInvestigation(ctx, closed.ID, memory.InvestigationUpdate{Status: model.InvestigationStatusClosed})
			Expect(err).NotTo(HaveOccurred())
			active := newInvestigation()
			resolved := newInvestigation()
			_, err = repo.UpdateInvestigation(ctx, resolved.ID, memory.InvestigationUpdate{Status: model.InvestigationStatusResolved})
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(-24 * time.Hour)
			old, err := repo.CreateAction(ctx, memory.NewAction{
				Description: "PM on conveyor", ActionType: model.ActionTypeMaintenance, ExpectedImpact: "fewer jams", FollowUpDate: "2024-11-14",
			})
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(24 * time.Hour)
			fresh, err := repo.CreateAction(ctx, memory.NewAction{
				Description: "New fixture", ActionType: model.ActionTypeProcessChange, ExpectedImpact: "less rework",
			})
			Expect(err).NotTo(HaveOccurred())

			summary, err := repo.ShiftSummary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Date).To(Equal("2024-11-14"))
			var ids []string
			for _, inv := range summary.ActiveInvestigations {
				ids = append(ids, inv.ID)
			}
			Expect(ids).To(ConsistOf(active.ID, resolved.ID))
			Expect(summary.TodaysActions).To(HaveLen(1))
			Expect(summary.TodaysActions[0].ID).To(Equal(fresh.ID))
			Expect(summary.PendingFollowups).To(HaveLen(1))
			Expect(summary.PendingFollowups[0].ID).To(Equal(old.ID))
		})
	})

	Describe("Summary and RelevantMemories", func() {
		It("counts by status and type", func() {
			newInvestigation()
			other, err := repo.CreateInvestigation(ctx, memory.NewInvestigation{Title: "Packaging jams", InitialObservation: "o", MachineID: "Packaging-001"})
			Expect(err).NotTo(HaveOccurred())
			_, err = repo.UpdateInvestigation(ctx, other.ID, memory.InvestigationUpdate{Status: model.InvestigationStatusResolved})
			Expect(err).NotTo(HaveOccurred())
			_, err = repo.CreateAction(ctx, memory.NewAction{
				Description: "d", ActionType: model.ActionTypeMaintenance, ExpectedImpact: "e", MachineID: "CNC-001", FollowUpDate: "2024-11-01",
			})
			Expect(err).NotTo(HaveOccurred())

			summary, err := repo.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TotalInvestigations).To(Equal(2))
			Expect(summary.InvestigationsByStatus).To(Equal(map[string]int{"open": 1, "resolved": 1}))
			Expect(summary.ActionsByType).To(Equal(map[string]int{"maintenance": 1}))
			Expect(summary.PendingFollowupCount).To(Equal(1))

			relevant, err := repo.RelevantMemories(ctx, model.InvestigationFilter{MachineID: "CNC-001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(relevant.TotalInvestigations).To(Equal(1))
			Expect(relevant.TotalActions).To(Equal(1))
		})

		It("rejects unknown status filters", func() {
			_, err := repo.RelevantMemories(ctx, model.InvestigationFilter{Status: "stale"})
			Expect(err).To(MatchError(memory.ErrInvalidInput))
		})
	})
})
