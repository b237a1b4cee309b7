package brain

import (
	"fmt"
	"strings"

	"factoryops.app/assistant/internal/model"
)

// PromptContext is everything the system prompt depends on. Memory and Today
// are passed in so the same inputs always produce the same prompt.
type PromptContext struct {
	FactoryName string
	Snapshot    *model.Snapshot
	Memory      *MemoryDigest
	Today       string
}

// MemoryDigest is the slice of memory surfaced to the model up front.
type MemoryDigest struct {
	ActiveInvestigations []model.Investigation
	PendingFollowups     []model.Action
	TodaysActionCount    int
}

func DigestFromShiftSummary(s *model.ShiftSummary) *MemoryDigest {
	if s == nil {
		return nil
	}
	return &MemoryDigest{
		ActiveInvestigations: s.ActiveInvestigations,
		PendingFollowups:     s.PendingFollowups,
		TodaysActionCount:    len(s.TodaysActions),
	}
}

// BuildSystemPrompt renders the system instructions for one turn.
func BuildSystemPrompt(pc PromptContext) string {
	snap := pc.Snapshot
	if snap == nil {
		snap = &model.Snapshot{}
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a factory operations assistant for %s.\n\n", pc.FactoryName)

	days := len(snap.Production)
	fmt.Fprintf(&sb, "You have access to %d days of production data (%s to %s) covering:\n", days, snap.StartDate, snap.EndDate)

	machines := make([]string, 0, len(snap.Machines))
	for _, m := range snap.Machines {
		if m.Type != "" {
			machines = append(machines, fmt.Sprintf("%s (%s)", m.Name, m.Type))
		} else {
			machines = append(machines, m.Name)
		}
	}
	fmt.Fprintf(&sb, "- %d machines: %s\n", len(snap.Machines), strings.Join(machines, ", "))

	if len(snap.Shifts) > 0 {
		shifts := make([]string, 0, len(snap.Shifts))
		for _, s := range snap.Shifts {
			shifts = append(shifts, fmt.Sprintf("%s (%02d:00-%02d:00)", s.Name, s.StartHour, s.EndHour))
		}
		fmt.Fprintf(&sb, "- %d shifts: %s\n", len(snap.Shifts), strings.Join(shifts, ", "))
	}
	sb.WriteString("- Metrics: OEE, scrap, quality issues, downtime\n")

	if section := memorySection(pc.Memory); section != "" {
		sb.WriteString("\n")
		sb.WriteString(section)
	}

	sb.WriteString(`
What you can do:
- Read factory metrics through the metrics tools. OEE figures are ratios between 0 and 1; scrap_rate is a percentage between 0 and 100.
- Read and record investigations and actions through the memory tools.
- You cannot change live machine parameters or control equipment. When a user asks for that, explain that they must make the change and offer to log it with log_action.

When answering:
1. Use tools to get accurate data; never guess numbers
2. Provide specific numbers and percentages
3. Explain trends and patterns
4. Compare metrics when relevant
5. Be concise but thorough
6. Reference relevant open investigations when discussing related machines or suppliers
7. Proactively mention pending follow-ups when relevant

Memory tools:
- save_investigation tracks an ongoing issue that needs follow-up
- update_investigation records findings, hypotheses, status changes, root cause, and resolution
- log_action records a change the user made (parameter adjustment, maintenance, process change)
- get_pending_followups lists actions whose follow-up is due
- get_memory_context retrieves investigations and actions for a machine or supplier
`)

	fmt.Fprintf(&sb, "\nToday's date is %s. When users ask about \"today\", \"this week\", or other relative dates, "+
		"work out the date range from the data available (%s to %s).", pc.Today, snap.StartDate, snap.EndDate)

	return sb.String()
}

func memorySection(d *MemoryDigest) string {
	if d == nil {
		return ""
	}

	var parts []string

	if len(d.ActiveInvestigations) > 0 {
		lines := []string{"Active investigations:"}
		for _, inv := range d.ActiveInvestigations {
			line := fmt.Sprintf("- [%s] %s (%s)", inv.ID, inv.Title, inv.Status)
			if inv.MachineID != "" {
				line += " machine " + inv.MachineID
			}
			line += fmt.Sprintf(", %d findings", len(inv.Findings))
			lines = append(lines, line)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(d.PendingFollowups) > 0 {
		lines := []string{"Pending follow-ups:"}
		for _, a := range d.PendingFollowups {
			due := ""
			if a.FollowUpDate != nil {
				due = *a.FollowUpDate
			}
			lines = append(lines, fmt.Sprintf("- [%s] %s (expected: %s, due: %s)", a.ID, a.Description, a.ExpectedImpact, due))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if d.TodaysActionCount > 0 {
		parts = append(parts, fmt.Sprintf("Today's activity: %d actions logged", d.TodaysActionCount))
	}

	if len(parts) == 0 {
		return ""
	}
	return "Memory context:\n" + strings.Join(parts, "\n\n") + "\n"
}
