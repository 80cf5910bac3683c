package commands

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wonny/astrostocks/internal/contracts"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clean the analysis cache",
	Long: `Shows cache statistics or removes old entries.

Subcommands:
  stats    - entry counts per kind and the cached date range
  cleanup  - delete entries older than --days and expired market data

Example:
  go run ./cmd/astro cache stats
  go run ./cmd/astro cache cleanup --days 14`,
}

var (
	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE:  runCacheStats,
	}

	cacheCleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old cache entries",
		RunE:  runCacheCleanup,
	}

	cleanupDays int
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)

	cacheCleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention window in days (default CACHE_RETENTION_DAYS)")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.coordinator.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	fields := [][2]string{}
	kinds := make([]string, 0, len(stats.AnalysisEntries))
	for k := range stats.AnalysisEntries {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	total := 0
	for _, k := range kinds {
		n := stats.AnalysisEntries[contracts.Kind(k)]
		total += n
		fields = append(fields, [2]string{k, humanize.Comma(int64(n))})
	}
	fields = append(fields,
		[2]string{"Analyses", humanize.Comma(int64(total))},
		[2]string{"Predict", humanize.Comma(int64(stats.PredictionEntries))},
		[2]string{"Live", humanize.Comma(int64(stats.LivePredictions))},
		[2]string{"Archived", humanize.Comma(int64(stats.ArchivedPredictions))},
	)
	if stats.OldestEntry != nil {
		fields = append(fields, [2]string{"Oldest", fmt.Sprintf("%s (%s)", stats.OldestEntry.Format("2006-01-02"), humanize.Time(*stats.OldestEntry))})
	}
	if stats.NewestEntry != nil {
		fields = append(fields, [2]string{"Newest", fmt.Sprintf("%s (%s)", stats.NewestEntry.Format("2006-01-02"), humanize.Time(*stats.NewestEntry))})
	}

	PrintHeader("Cache Statistics", fields)
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	days := cleanupDays
	if days <= 0 {
		days = a.cfg.Analysis.CacheRetentionDays
	}

	res, err := a.coordinator.Cleanup(cmd.Context(), days)
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}

	cleared, err := a.market.ClearExpired(cmd.Context())
	if err != nil {
		PrintWarning(fmt.Sprintf("market data cleanup failed: %v", err))
	}

	PrintSuccess(fmt.Sprintf("Removed %s analyses and %s predictions older than %d days",
		humanize.Comma(int64(res.AnalysisDeleted)), humanize.Comma(int64(res.PredictionDeleted)), days))
	PrintSuccess(fmt.Sprintf("Cleared %s expired quotes", humanize.Comma(int64(cleared))))
	return nil
}
