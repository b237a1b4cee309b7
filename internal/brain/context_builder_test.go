package brain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/model"
)

var _ = Describe("BuildSystemPrompt", func() {
	var pc brain.PromptContext

	BeforeEach(func() {
		pc = brain.PromptContext{
			FactoryName: "Northfield Plant",
			Snapshot:    scenarioSnapshot(),
			Today:       "2024-11-14",
		}
	})

	It("is deterministic for the same inputs", func() {
		Expect(brain.BuildSystemPrompt(pc)).To(Equal(brain.BuildSystemPrompt(pc)))
	})

	It("describes the factory and the data window", func() {
		prompt := brain.BuildSystemPrompt(pc)
		Expect(prompt).To(HavePrefix("You are a factory operations assistant for Northfield Plant."))
		Expect(prompt).To(ContainSubstring("2 days of production data (2024-10-15 to 2024-11-14)"))
		Expect(prompt).To(ContainSubstring("1 machines: CNC-001 (CNC Machining Center)"))
		Expect(prompt).To(ContainSubstring("Day (06:00-14:00), Night (14:00-22:00)"))
		Expect(prompt).To(ContainSubstring("Today's date is 2024-11-14."))
		Expect(prompt).To(ContainSubstring("cannot change live machine parameters"))
	})

	It("omits the memory section when there is nothing to surface", func() {
		pc.Memory = &brain.MemoryDigest{}
		Expect(brain.BuildSystemPrompt(pc)).NotTo(ContainSubstring("Memory context:"))
	})

	It("lists active investigations and due follow-ups", func() {
		due := "2024-11-13"
		pc.Memory = brain.DigestFromShiftSummary(&model.ShiftSummary{
			ActiveInvestigations: []model.Investigation{{
				ID: "INV-20241110-AB12", Title: "Spindle vibration", Status: model.InvestigationStatusInProgress,
				MachineID: "CNC-001", Findings: []string{"bearing noise"},
			}},
			PendingFollowups: []model.Action{{
				ID: "ACT-20241106-CD34", Description: "Replaced coolant", ExpectedImpact: "Fewer finish defects", FollowUpDate: &due,
			}},
			TodaysActions: []model.Action{{ID: "ACT-20241114-EF56"}},
		})

		prompt := brain.BuildSystemPrompt(pc)
		Expect(prompt).To(ContainSubstring("Memory context:"))
		Expect(prompt).To(ContainSubstring("- [INV-20241110-AB12] Spindle vibration (in_progress) machine CNC-001, 1 findings"))
		Expect(prompt).To(ContainSubstring("- [ACT-20241106-CD34] Replaced coolant (expected: Fewer finish defects, due: 2024-11-13)"))
		Expect(prompt).To(ContainSubstring("Today's activity: 1 actions logged"))
	})

	It("tolerates a missing snapshot", func() {
		pc.Snapshot = nil
		Expect(brain.BuildSystemPrompt(pc)).To(ContainSubstring("0 days of production data"))
	})
})
