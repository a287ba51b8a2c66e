package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/qalthos/infoboard/internal/store"
	"github.com/qalthos/infoboard/internal/usecase"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	scoreColor   = color.New(color.FgYellow)
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Shows the top contributors and repositories of the trailing window",
	Long: `Ranks contributors and repositories by weighted activity over the
trailing window and prints both leaderboards. Reads only the local cache;
run scrape first to populate it.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		cfg, err := loadConfig(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open store at %s: %v\n", cfg.DBPath, err)
			os.Exit(1)
		}
		defer st.Close()

		cache := usecase.NewCache(st, nil, logger, 0)
		aggregator := usecase.NewAggregator(cache, logger)

		userActivity, repoActivity, err := aggregator.TopContributions(cfg.WindowDays)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to aggregate contributions: %v\n", err)
			os.Exit(1)
		}

		headingColor.Printf("Top contributors, last %d days\n", cfg.WindowDays)
		printRanking(usecase.Rank(userActivity, cfg.Display), "Contributor", func(key string) string {
			if user, err := st.GetUser(key); err == nil {
				return user.Name
			}
			return key
		})

		fmt.Println()
		headingColor.Printf("Top repositories, last %d days\n", cfg.WindowDays)
		printRanking(usecase.Rank(repoActivity, cfg.Display), "Repository", func(key string) string {
			return key
		})

		summary, err := usecase.Summarize(userActivity)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to summarize scores: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nContributor scores: mean %.1f, median %.1f, p90 %.1f\n",
			summary.Mean, summary.Median, summary.P90)
	},
}

// printRanking renders one leaderboard table. resolve maps an entity key to
// its display name.
func printRanking(ranked []usecase.Ranked, label string, resolve func(string) string) {
	if len(ranked) == 0 {
		fmt.Println("  (no activity cached)")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Rank", label, "Score"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, entry := range ranked {
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			resolve(entry.Key),
			scoreColor.Sprintf("%.1f", entry.Count),
		})
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build table: %v\n", err)
		os.Exit(1)
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().IntP("window-days", "w", defaultWindowDays, "Trailing window in days")
	topCmd.Flags().IntP("display", "n", defaultDisplay, "Number of rows per leaderboard")
	bindFlags(topCmd)
}
