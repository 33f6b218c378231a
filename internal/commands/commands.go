// Package commands holds the formbuilder command tree.
package commands

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "formbuilder",
		Short:         "Form tree editor backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("store", "", "repository backend: sqlite or memory")
	cmd.PersistentFlags().String("database-url", "", "SQLite DSN")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", "", "log format: text or json")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addServe(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
}
