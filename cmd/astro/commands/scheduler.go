package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wonny/astrostocks/internal/scheduler"
	"github.com/wonny/astrostocks/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler or manages its jobs.

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs and their next run
  run     - run one job now and wait for it

Example:
  go run ./cmd/astro scheduler start
  go run ./cmd/astro scheduler list
  go run ./cmd/astro scheduler run daily_analysis`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler with every registered job.

Registered jobs:
- daily_analysis: 00:05 every day (predict, basic and enhanced analyses)
- transit_prefetch: 23:30 every day (tomorrow's transits)
- market_data_expiry: every hour at :15 (drop expired quotes)
- cache_cleanup: 03:00 every day (entries older than the retention window)

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// registerJobs adds every periodic job to s
func registerJobs(s *scheduler.Scheduler, a *app) error {
	loc := a.cfg.Location()
	all := []scheduler.Job{
		jobs.NewDailyAnalysisJob(a.analysis, a.cfg.Market.UseRealData, a.log),
		jobs.NewTransitPrefetchJob(a.transits, loc, a.log),
		jobs.NewMarketDataExpiryJob(a.market, a.log),
		jobs.NewCacheCleanupJob(a.coordinator, a.cfg.Analysis.CacheRetentionDays, a.log),
	}
	for _, j := range all {
		if err := s.AddJob(j); err != nil {
			return fmt.Errorf("register %s: %w", j.Name(), err)
		}
	}
	return nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Astrostocks Scheduler ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.log, a.cfg.Location())
	if err := registerJobs(sched, a); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.log, a.cfg.Location())
	if err := registerJobs(sched, a); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// next-run times are only known once cron is running
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		line := fmt.Sprintf("  - %-20s %-16s", name, stats[name].Schedule)
		if next, ok := sched.NextRun(name); ok {
			line += fmt.Sprintf(" next %s (%s)", next.Format("2006-01-02 15:04:05"), humanize.Time(next))
		}
		fmt.Println(line)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.log, a.cfg.Location())
	if err := registerJobs(sched, a); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer sched.Stop()

	fmt.Printf("Running job: %s\n", jobName)

	res, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !res.Success {
		PrintWarning(fmt.Sprintf("%s failed after %d attempt(s): %s", jobName, res.Attempts, res.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s (%d attempt(s))", jobName, res.Duration.Round(time.Millisecond), res.Attempts))
	return nil
}
