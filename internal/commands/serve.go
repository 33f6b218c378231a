package commands

import (
	"github.com/spf13/cobra"

	"github.com/matthewbaird/formbuilder/internal/eventbus"
	"github.com/matthewbaird/formbuilder/internal/live"
	"github.com/matthewbaird/formbuilder/internal/server"
)

func addServe(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API.",
		Long: `Serve the form, page and component API on --port, with the per-form activity
log and the live websocket change feed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.close()

			bus := eventbus.New(rt.cfg.EventBuffer, rt.logger)
			hub := live.NewHub(rt.logger)
			bus.Subscribe("log", eventbus.NewLogConsumer(rt.logger))
			bus.Subscribe("live", hub)
			rt.recorder.SetPublisher(bus)
			bus.Start(ctx)
			defer bus.Stop()

			return server.Run(ctx, server.Config{
				Port:     rt.cfg.Port,
				Service:  rt.svc,
				Activity: rt.activity,
				Events:   hub,
				Logger:   rt.logger,
			})
		},
	}

	cmd.Flags().Int("port", 8080, "HTTP listen port")
	cmd.Flags().Bool("seed", true, "seed the demo form when the store is empty")
	cmd.Flags().String("seed-file", "", "CUE, YAML or JSON seed document (default: embedded demo form)")
	cmd.Flags().Int("event-buffer", 256, "change event bus buffer size")

	topLevel.AddCommand(cmd)
}
