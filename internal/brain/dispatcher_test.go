package brain_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/invopop/jsonschema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"factoryops.app/assistant/common/llm"
	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/store"
)

var _ = Describe("Dispatcher", func() {
	var (
		ctx        context.Context
		snap       *model.Snapshot
		dispatcher *brain.Dispatcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		snap = scenarioSnapshot()
		repo := memory.NewRepository(store.NewMemoryStores(), memory.WithClock(func() time.Time {
			return time.Date(2024, 11, 14, 10, 0, 0, 0, time.UTC)
		}))
		dispatcher = brain.NewDispatcher(metrics.NewEngine(0.95), repo)
	})

	dispatch := func(name, args string) brain.ToolResult {
		return dispatcher.Dispatch(ctx, snap, llm.ToolCall{ID: "call_1", Name: name, Arguments: args})
	}

	errorText := func(res brain.ToolResult) string {
		var body map[string]string
		Expect(json.Unmarshal([]byte(res.Content()), &body)).To(Succeed())
		Expect(body).To(HaveKey("error"))
		return body["error"]
	}

	It("returns the metric payload on success", func() {
		res := dispatch("calculate_oee", `{"start_date":"2024-10-15","end_date":"2024-11-14","machine_name":"cnc-001"}`)
		Expect(res.IsError()).To(BeFalse())
		Expect(res.ToolCallID).To(Equal("call_1"))

		oee, ok := res.Payload.(model.OEEMetrics)
		Expect(ok).To(BeTrue())
		Expect(oee.OEE).To(Equal(0.837))
		Expect(oee.TotalParts).To(Equal(1000))
	})

	DescribeTable("rejects invalid invocations without running a handler",
		func(name, args, fragment string) {
			res := dispatch(name, args)
			Expect(res.IsError()).To(BeTrue())
			Expect(res.Err).To(MatchError(brain.ErrInvalidToolInvocation))
			Expect(errorText(res)).To(ContainSubstring(fragment))
		},
		Entry("unknown tool", "delete_everything", `{}`, `unknown tool "delete_everything"`),
		Entry("malformed JSON", "calculate_oee", `{"start_date":`, "parse tool arguments"),
		Entry("missing required field", "calculate_oee", `{"start_date":"2024-10-15"}`, "end_date"),
		Entry("wrong argument type", "get_scrap_metrics", `{"start_date":20241015,"end_date":"2024-11-14"}`, "parse tool arguments"),
		Entry("invalid severity", "get_quality_issues", `{"start_date":"2024-10-15","end_date":"2024-11-14","severity":"Critical"}`, "Critical"),
		Entry("invalid action type", "log_action", `{"description":"x","action_type":"magic","expected_impact":"y"}`, "action_type"),
		Entry("invalid status", "update_investigation", `{"investigation_id":"INV-1","status":"done"}`, "status"),
	)

	It("reports handler failures as tool execution failures", func() {
		res := dispatch("get_downtime_analysis", `{"start_date":"2024-11-14","end_date":"2024-10-15"}`)
		Expect(res.IsError()).To(BeTrue())
		Expect(errors.Is(res.Err, brain.ErrInvalidToolInvocation)).To(BeFalse())
		Expect(errorText(res)).To(Equal("tool execution failed: start date is after end date: 2024-11-14 > 2024-10-15"))
	})

	It("reports missing data as a handler failure", func() {
		res := dispatch("calculate_oee", `{"start_date":"2023-01-01","end_date":"2023-01-31"}`)
		Expect(res.IsError()).To(BeTrue())
		Expect(errorText(res)).To(ContainSubstring("no data for specified date range"))
	})

	It("hides internal error details from the model", func() {
		failing := brain.NewDispatcher(metrics.NewEngine(0.95), failingMemory{err: errors.New("dial tcp 10.0.0.7:5432: connection refused")})
		res := failing.Dispatch(ctx, snap, llm.ToolCall{ID: "c", Name: "get_pending_followups", Arguments: `{}`})

		Expect(res.IsError()).To(BeTrue())
		text := errorText(res)
		Expect(text).To(Equal("tool execution failed: get_pending_followups hit an internal error; try again later"))
		Expect(text).NotTo(ContainSubstring("10.0.0.7"))
	})

	It("saves and then updates an investigation", func() {
		saved := dispatch("save_investigation", `{"title":"CNC-001 surface finish","initial_observation":"Ra above 3.2","machine_id":"CNC-001"}`)
		Expect(saved.IsError()).To(BeFalse())
		inv := saved.Payload.(brain.InvestigationSaved)
		Expect(inv.Success).To(BeTrue())
		Expect(inv.Status).To(Equal(model.InvestigationStatusOpen))
		Expect(inv.InvestigationID).To(MatchRegexp(`^INV-20241114-[0-9A-Z]+$`))

		updated := dispatch("update_investigation", `{"investigation_id":"`+inv.InvestigationID+`","finding":"Tool wear at 80%","status":"in_progress"}`)
		Expect(updated.IsError()).To(BeFalse())
		upd := updated.Payload.(brain.InvestigationUpdated)
		Expect(upd.Status).To(Equal(model.InvestigationStatusInProgress))
		Expect(upd.FindingsCount).To(Equal(1))
	})

	It("logs an action and reports it once its follow-up is due", func() {
		logged := dispatch("log_action", `{"description":"Raised spindle speed","action_type":"parameter_change","expected_impact":"Scrap below 3%","machine_id":"CNC-001","baseline_metrics":{"scrap_rate":6},"follow_up_date":"2024-11-14"}`)
		Expect(logged.IsError()).To(BeFalse())
		Expect(logged.Payload.(brain.ActionLogged).ActionID).To(HavePrefix("ACT-20241114-"))

		res := dispatch("get_pending_followups", ``)
		Expect(res.IsError()).To(BeFalse())
		list := res.Payload.(brain.FollowupList)
		Expect(list.Count).To(Equal(1))
		Expect(list.PendingFollowups[0].FollowUpDate).To(Equal("2024-11-14"))
		Expect(list.Message).To(Equal("Found 1 actions pending follow-up"))
	})

	It("says so when nothing is pending", func() {
		res := dispatch("get_pending_followups", `{}`)
		Expect(res.Content()).To(MatchJSON(`{"pending_followups":[],"count":0,"message":"No pending follow-ups"}`))
	})
})

var _ = Describe("Definitions", func() {
	It("offers every tool with an object schema", func() {
		defs := brain.Definitions()
		Expect(defs).To(HaveLen(len(brain.AllTools)))
		for i, d := range defs {
			Expect(d.Name).To(Equal(string(brain.AllTools[i])))
			Expect(d.Description).NotTo(BeEmpty())
			schema, ok := d.Parameters.(*jsonschema.Schema)
			Expect(ok).To(BeTrue(), d.Name)
			Expect(schema.Type).To(Equal("object"))
		}
	})

	It("marks date fields required on the metric tools", func() {
		for _, d := range brain.Definitions()[:4] {
			Expect(d.Parameters.(*jsonschema.Schema).Required).To(ContainElements("start_date", "end_date"), d.Name)
		}
	})
})
