package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// transitsCmd represents the transits command
var transitsCmd = &cobra.Command{
	Use:   "transits",
	Short: "Show planetary transits for a date",
	Long: `Reads transits through the transit cache, calling the
ephemeris service on a miss.

Example:
  go run ./cmd/astro transits
  go run ./cmd/astro transits --date 2025-03-14 --hard-refresh`,
	RunE: runTransits,
}

var (
	transitsDate        string
	transitsHardRefresh bool
)

func init() {
	rootCmd.AddCommand(transitsCmd)

	transitsCmd.Flags().StringVar(&transitsDate, "date", "", "date YYYY-MM-DD (default today)")
	transitsCmd.Flags().BoolVar(&transitsHardRefresh, "hard-refresh", false, "bypass the transit cache")
}

func runTransits(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	day, err := a.parseDay(transitsDate)
	if err != nil {
		return err
	}

	set, err := a.transits.Get(cmd.Context(), day, transitsHardRefresh)
	if err != nil {
		return fmt.Errorf("load transits: %w", err)
	}

	source := "ephemeris"
	if set.Cached {
		source = "cache, fetched " + humanize.Time(set.Timestamp)
	}
	PrintHeader("Planetary Transits", [][2]string{
		{"Date", set.Date.Format("2006-01-02")},
		{"Source", source},
		{"Planets", fmt.Sprintf("%d", len(set.Transits))},
	})

	widths := []int{9, 12, 11, 12, 8, 18}
	PrintTableHeader([]string{"Planet", "Sign", "Motion", "Dignity", "Degree", "Nakshatra"}, widths)
	for _, t := range set.Transits {
		PrintTableRow([]string{
			t.Planet,
			t.Sign,
			string(t.Motion),
			string(t.Dignity),
			fmt.Sprintf("%.2f°", t.DegreeInSign),
			t.Nakshatra,
		}, widths)
	}
	return nil
}
