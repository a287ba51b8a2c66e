package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qalthos/infoboard/internal/board"
	"github.com/qalthos/infoboard/internal/domain"
	"github.com/qalthos/infoboard/internal/store"
	"github.com/qalthos/infoboard/internal/usecase"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Shows the most recent cached events as human-readable lines",
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)

		cfg, err := loadConfig(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		days := viper.GetInt("days")
		if days <= 0 {
			days = cfg.WindowDays
		}
		limit := viper.GetInt("limit")

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open store at %s: %v\n", cfg.DBPath, err)
			os.Exit(1)
		}
		defer st.Close()

		cache := usecase.NewCache(st, nil, logger, 0)
		events, err := cache.RecentEvents(days, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read cached events: %v\n", err)
			os.Exit(1)
		}

		for _, ev := range events {
			fmt.Printf("%s  %s\n", ev.CreatedAt.Format(domain.TimeLayout), board.Describe(ev, st))
		}

		if viper.GetBool("avatars") {
			if err := board.PrefetchAvatars(cmd.Context(), actors(st, events), cfg.AvatarDir, logger); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to prefetch avatars: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

// actors resolves the distinct actor users behind a batch of events.
// Unresolvable actors are simply left out.
func actors(st *store.Store, events []domain.Event) []domain.User {
	seen := make(map[string]bool)
	var users []domain.User
	for _, ev := range events {
		if ev.ActorKey == "" || seen[ev.ActorKey] {
			continue
		}
		seen[ev.ActorKey] = true
		if user, err := st.GetUser(ev.ActorKey); err == nil {
			users = append(users, user)
		}
	}
	return users
}

func init() {
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().Int("days", 0, "How many days back to show (0 = the configured window)")
	recentCmd.Flags().Int("limit", 0, "Maximum number of events to show (0 = all)")
	recentCmd.Flags().Bool("avatars", false, "Also prefetch avatar images for the shown actors")
	bindFlags(recentCmd)
}
