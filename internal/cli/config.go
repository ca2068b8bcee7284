package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vpgclub/clubbot/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and report what would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  guild:    %s\n", cfg.GuildID)
			fmt.Fprintf(cmd.OutOrStdout(), "  storage:  %s\n", cfg.Storage.Type)
			fmt.Fprintf(cmd.OutOrStdout(), "  http:     %s\n", cfg.HTTPAddr)
			return nil
		},
	})
	return cmd
}
