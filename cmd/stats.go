package cmd

import (
	"os"
	"time"

	"github.com/huangsam/folio/core"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/internal/outwriter"
	"github.com/spf13/cobra"
)

// statsCmd prints the GitHub statistics of one identity.
var statsCmd = &cobra.Command{
	Use:   "stats [identity]",
	Short: "Show GitHub profile statistics with cache fallback",
	Long: `Fetch followers, repositories, stars, commits and the contribution calendar of a GitHub user.

Results are cached. A fresh cache entry is served without calling GitHub. When GitHub is
rate limited or unreachable, the last cached snapshot is shown with a provenance notice.

Examples:
  # Stats of the configured identity
  folio stats

  # Stats of another user, bypassing a fresh cache entry
  folio stats octocat --refresh

  # Machine-readable output
  folio stats --output json --output-file stats.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signalContext(rootCtx)
		defer stop()

		ow := outwriter.NewOutWriter()
		start := time.Now()
		result, err := newStatsCache(cfg, iocache.Manager).GetStats(ctx, cfg.Identity, core.GetOptions{ForceRefresh: cfg.Refresh})
		if err != nil {
			ow.WriteStatsError(cfg.Identity, err)
			iocache.CloseCaching()
			os.Exit(1)
		}
		if err := ow.WriteStats(result, cfg, time.Since(start)); err != nil {
			contract.LogWarn("failed to write stats", err)
		}
	},
}
