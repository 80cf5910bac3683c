package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wonny/astrostocks/internal/analysis"
	"github.com/wonny/astrostocks/internal/contracts"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis from the command line",
	Long: `Runs one analysis through the same cache as the API.

Kinds:
  basic     - sector predictions (default)
  enhanced  - sector predictions with stock signals (needs USE_REAL_DATA)
  predict   - date-keyed market prediction

Example:
  go run ./cmd/astro analyze
  go run ./cmd/astro analyze --enhanced
  go run ./cmd/astro analyze --kind predict --date 2025-03-14 --hard-refresh
  go run ./cmd/astro analyze --json > out.json`,
	RunE: runAnalyze,
}

var (
	analyzeKind        string
	analyzeEnhanced    bool
	analyzeDate        string
	analyzeHardRefresh bool
	analyzeJSON        bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeKind, "kind", "basic", "basic, enhanced or predict")
	analyzeCmd.Flags().BoolVar(&analyzeEnhanced, "enhanced", false, "shorthand for --kind enhanced")
	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "analysis date YYYY-MM-DD (default today)")
	analyzeCmd.Flags().BoolVar(&analyzeHardRefresh, "hard-refresh", false, "archive and recompute instead of reading the cache")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw response")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	kind := contracts.Kind(strings.ToLower(analyzeKind))
	if analyzeEnhanced {
		kind = contracts.KindEnhanced
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q", analyzeKind)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	day, err := a.parseDay(analyzeDate)
	if err != nil {
		return err
	}

	req := analysis.Request{
		Kind:        kind,
		Date:        day,
		HardRefresh: analyzeHardRefresh,
		UseRealData: kind == contracts.KindEnhanced,
	}

	var bar *progressbar.ProgressBar
	if !analyzeJSON {
		PrintHeader("Astro Analysis", [][2]string{
			{"Kind", string(kind)},
			{"Date", day.Format("2006-01-02")},
			{"Refresh", fmt.Sprintf("%t", analyzeHardRefresh)},
		})
		bar = newAnalysisBar()
		req.Observer = progressObserver(bar)
	}

	outcome, err := a.analysis.Run(cmd.Context(), req)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		_, err := os.Stdout.Write(append(outcome.Payload, '\n'))
		return err
	}

	switch res := outcome.Result.(type) {
	case *contracts.BasicResult:
		printBasic(res)
	case *contracts.EnhancedResult:
		printEnhanced(res)
	case *contracts.PredictionReport:
		printPrediction(res)
	default:
		return fmt.Errorf("unexpected result type %T", outcome.Result)
	}

	fmt.Println()
	switch {
	case outcome.Cached:
		PrintInfo("Served from cache (use --hard-refresh to recompute)")
	case outcome.Archived > 0:
		PrintSuccess(fmt.Sprintf("Recomputed; archived %d previous sector predictions", outcome.Archived))
	default:
		PrintSuccess("Computed and cached")
	}
	return nil
}

func newAnalysisBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// progressObserver turns run events into bar updates. The bar switches
// from a spinner to a counter once the sector count is known.
func progressObserver(bar *progressbar.ProgressBar) analysis.Observer {
	return func(e analysis.Event) {
		switch e.Stage {
		case analysis.StageStarted:
			bar.Describe(e.Message)
		case analysis.StageTransitsLoaded:
			bar.Describe(fmt.Sprintf("%d transits", e.Count))
		case analysis.StageStocksLoaded:
			bar.Describe(fmt.Sprintf("%d stocks", e.Count))
		case analysis.StageSectors:
			bar.ChangeMax(e.Count)
			bar.Describe(fmt.Sprintf("enriching %d sectors", e.Count))
		case analysis.StageEnriched:
			bar.Describe("insights from " + e.Message)
		case analysis.StageSectorDetail:
			if p, ok := e.Data.(contracts.SectorPrediction); ok {
				bar.Describe(p.Sector)
			}
			_ = bar.Add(1)
		case analysis.StageCached:
			bar.Describe("cache hit")
		case analysis.StageComplete:
			bar.Describe("done")
		case analysis.StageError:
			bar.Describe("failed")
		}
	}
}

func printSectors(preds []contracts.SectorPrediction) {
	widths := []int{3, 24, 9, 8, 30}
	PrintTableHeader([]string{"", "Sector", "Trend", "Conf.", "Influence"}, widths)
	for _, p := range preds {
		PrintTableRow([]string{
			trendIcon(string(p.Trend)),
			p.Sector,
			string(p.Trend),
			string(p.Confidence),
			p.PlanetaryInfluence,
		}, widths)
	}
}

func printBasic(res *contracts.BasicResult) {
	fmt.Println()
	fmt.Printf("Sentiment: %s   Accuracy estimate: %s\n\n", res.OverallMarketSentiment, res.AccuracyEstimate)
	printSectors(res.SectorPredictions)
}

func printEnhanced(res *contracts.EnhancedResult) {
	fmt.Println()
	fmt.Printf("Sentiment: %s\n\n", res.OverallSentiment)

	widths := []int{4, 12, 22, 5, 7, 6}
	PrintTableHeader([]string{"#", "Symbol", "Sector", "Call", "Score", "Conf."}, widths)
	for _, r := range res.TopRecommendations {
		PrintTableRow([]string{
			fmt.Sprintf("%d", r.Rank),
			r.Stock.Symbol,
			r.Stock.Sector,
			string(r.Stock.Signal),
			fmt.Sprintf("%.3f", r.Score),
			fmt.Sprintf("%.2f", r.Stock.Confidence),
		}, widths)
	}

	fmt.Println()
	fmt.Printf("%d sectors, %d stocks scored\n", len(res.SectorAnalysis), len(res.AllStocks))
}

func printPrediction(res *contracts.PredictionReport) {
	fmt.Println()
	fmt.Printf("Date: %s (%s)   Sentiment: %s   Confidence: %.2f\n\n",
		res.PredictionDate, res.Timezone, res.MarketPrediction.OverallSentiment, res.Confidence)
	printSectors(res.MarketPrediction.SectorPredictions)

	if len(res.MarketPrediction.KeyInfluences) > 0 {
		fmt.Println()
		fmt.Println("Key influences:")
		for _, k := range res.MarketPrediction.KeyInfluences {
			fmt.Printf("  %s in %s (%s): %s\n", k.Planet, k.Sign, k.Strength, k.Description)
		}
	}
}
