package commands

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/formbuilder/internal/tools"
)

func addMCP(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the Model Context Protocol server on stdio.",
		Long: `Launch an MCP server that exposes the form tree tools over stdin/stdout.
Logs are written to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.close()

			srv := tools.NewServer(rt.svc, Version)
			rt.logger.Info("mcp server ready", "transport", "stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}

	cmd.Flags().Bool("seed", true, "seed the demo form when the store is empty")
	cmd.Flags().String("seed-file", "", "CUE, YAML or JSON seed document (default: embedded demo form)")

	topLevel.AddCommand(cmd)
}
