package main

import (
	"github.com/spf13/cobra"

	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/core/config"
)

// cli carries state shared by subcommands once the root pre-run has loaded config.
type cli struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "factoryctl",
		Short:        "Operate the factory assistant from the command line",
		Long:         "factoryctl generates production datasets, asks the assistant questions\nand inspects the investigation memory without running the HTTP server.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ServiceTypeCLI)
			if err != nil {
				return err
			}
			logger.Setup(cfg)
			c.cfg = cfg
			return nil
		},
	}

	root.AddCommand(newGenerateCmd(c))
	root.AddCommand(newAskCmd(c))
	root.AddCommand(newSummaryCmd(c))
	root.AddCommand(newFollowupsCmd(c))

	return root
}
