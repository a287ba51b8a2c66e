package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qalthos/infoboard/internal/board"
	"github.com/qalthos/infoboard/internal/domain"
	"github.com/qalthos/infoboard/internal/gateway"
	"github.com/qalthos/infoboard/internal/store"
	"github.com/qalthos/infoboard/internal/usecase"
)

// cycleTimeout bounds one full scrape pass across the membership.
const cycleTimeout = 5 * time.Minute

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Polls member activity feeds into the local cache",
	Long: `Polls the public GitHub activity feed of every member of the configured
organization and caches new events locally, then sleeps for the configured
interval and repeats until interrupted. Set GITHUB_TOKEN for a larger API
quota; without it the anonymous rate limit applies.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		cfg, err := loadConfig(true)
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

		githubGateway, err := gateway.NewGitHubGateway(os.Getenv("GITHUB_TOKEN"), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		cache := usecase.NewCache(st, githubGateway, logger, cfg.FeedPage)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Printf("scraping %s every %s into %s", cfg.Org, cfg.Interval, cfg.DBPath)
		for {
			runCycle(ctx, cfg, githubGateway, cache, logger)

			select {
			case <-ctx.Done():
				logger.Print("shutting down")
				return
			case <-time.After(cfg.Interval):
			}
		}
	},
}

// runCycle performs one scrape pass. Failures are logged and the cycle is
// abandoned; the next tick gets a fresh chance.
func runCycle(ctx context.Context, cfg config, fetcher gateway.Fetcher, cache *usecase.Cache, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	members, rate, err := fetcher.OrgMembers(ctx, cfg.Org)
	if err != nil {
		logger.Printf("skipping cycle, member listing failed: %v", err)
		return
	}
	logger.Printf("%d members in %s", len(members), cfg.Org)

	users := cache.RefreshMembers(members)
	logins := make([]string, 0, len(users))
	for _, user := range users {
		logins = append(logins, user.Login)
	}

	cached, err := cache.Ingest(ctx, logins)
	if err != nil {
		logger.Printf("skipping cycle, ingestion failed: %v", err)
		return
	}
	last := cache.RateLimit()
	if last == (domain.RateLimit{}) {
		last = rate
	}
	logger.Printf("cached %d new events; you have %d of %d calls left", cached, last.Remaining, last.Limit)

	if err := board.PrefetchAvatars(ctx, users, cfg.AvatarDir, logger); err != nil {
		logger.Printf("avatar prefetch failed: %v", err)
	}
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().Duration("interval", defaultInterval, "Sleep between scrape cycles")
	scrapeCmd.Flags().Int("feed-page", 0, "Events fetched per member feed call (0 = API default)")
	scrapeCmd.Flags().String("avatar-dir", defaultAvatarDir, "Directory for cached avatar images")
	bindFlags(scrapeCmd)
}
