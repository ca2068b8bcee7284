package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// NewRootCommand builds the clubbot command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clubbot",
		Short:         "Community-management bot for a pro-clubs esports server",
		Long:          "clubbot runs onboarding, player registration, trial evaluations, support tickets,\nmember announcements and stream notifications for a gaming community server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(newRunCommand())
	root.AddCommand(newConfigCommand())
	return root
}
