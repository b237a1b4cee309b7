package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"factoryops.app/assistant/internal/app"
	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/service"
)

func newAskCmd(c *cli) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := app.New(ctx, c.cfg)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			var obs brain.Observer
			if verbose {
				obs = progressObserver(cmd.ErrOrStderr())
			}

			res, err := a.Services.Chat().Stream(ctx, service.ChatRequest{
				Message: strings.Join(args, " "),
			}, obs)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print tool calls to stderr")
	return cmd
}

// progressObserver prints the tool activity of a turn.
func progressObserver(w io.Writer) brain.Observer {
	return brain.ObserverFunc(func(_ context.Context, ev brain.Event) {
		switch ev.Type {
		case brain.EventToolCall:
			fmt.Fprintf(w, "-> %s %s\n", ev.Name, ev.Content)
		case brain.EventToolResult:
			fmt.Fprintf(w, "<- %s (%d bytes)\n", ev.Name, len(ev.Content))
		}
	})
}
