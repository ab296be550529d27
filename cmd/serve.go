package cmd

import (
	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve GitHub stats and egg sessions over HTTP",
	Long: `Start the HTTP API used by the portfolio frontend.

Routes:
  GET    /healthz
  GET    /api/stats[/{identity}][?refresh=true]
  POST   /api/eggs
  GET    /api/eggs/{session}
  POST   /api/eggs/{session}/gestures/{name}
  POST   /api/eggs/{session}/keys
  DELETE /api/eggs/{session}/active
  DELETE /api/eggs/{session}

Examples:
  folio serve --addr :8080`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext(rootCtx)
		defer stop()

		sessions := server.NewSessionRegistry(func() *egg.Sequencer { return newSequencer() }, server.DefaultSessionTTL)
		srv := server.New(newStatsCache(cfg, iocache.Manager), sessions, cfg.Identity, logger)
		return srv.Run(ctx, cfg.ServeAddr)
	},
}
