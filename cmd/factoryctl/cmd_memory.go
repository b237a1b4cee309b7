package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"factoryops.app/assistant/internal/app"
	"factoryops.app/assistant/internal/model"
)

func newSummaryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show investigation and action counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, func(ctx context.Context, a *app.App) error {
				sum, err := a.Services.Memory().Summary(ctx)
				if err != nil {
					return fmt.Errorf("summary: %w", err)
				}
				printSummary(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
}

func newFollowupsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "followups",
		Short: "List actions whose follow-up is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, func(ctx context.Context, a *app.App) error {
				actions, err := a.Services.Memory().PendingFollowups(ctx)
				if err != nil {
					return fmt.Errorf("followups: %w", err)
				}
				printFollowups(cmd.OutOrStdout(), actions)
				return nil
			})
		},
	}
}

func withApp(cmd *cobra.Command, c *cli, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printSummary(w io.Writer, sum *model.MemorySummary) {
	fmt.Fprintf(w, "Investigations: %d\n", sum.TotalInvestigations)
	for _, k := range sortedKeys(sum.InvestigationsByStatus) {
		fmt.Fprintf(w, "  %-12s %d\n", k, sum.InvestigationsByStatus[k])
	}
	fmt.Fprintf(w, "Actions: %d\n", sum.TotalActions)
	for _, k := range sortedKeys(sum.ActionsByType) {
		fmt.Fprintf(w, "  %-12s %d\n", k, sum.ActionsByType[k])
	}
	fmt.Fprintf(w, "Pending follow-ups: %d\n", sum.PendingFollowupCount)
}

func printFollowups(w io.Writer, actions []model.Action) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "No follow-ups due.")
		return
	}
	for _, act := range actions {
		due := ""
		if act.FollowUpDate != nil {
			due = *act.FollowUpDate
		}
		machine := act.MachineID
		if machine == "" {
			machine = "-"
		}
		fmt.Fprintf(w, "%s  %s  %-12s %-10s %s\n", act.ID, due, act.ActionType, machine, act.Description)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
