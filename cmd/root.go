// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	defaultInterval   = 6 * time.Minute
	defaultWindowDays = 7
	defaultDisplay    = 10
	defaultDBPath     = "infoboard.db"
	defaultAvatarDir  = "image_cache"
)

var rootCmd = &cobra.Command{
	Use:   "infoboard",
	Short: "A community activity board fed by GitHub organization events",
	Long: `infoboard polls the public GitHub activity feeds of an organization's
members into a local cache, and renders leaderboards and recent-activity
views from it. The scrape command keeps the cache fresh; top and recent
read from it and never touch the network.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().StringP("org", "o", "", "GitHub organization whose members feed the board")
	rootCmd.PersistentFlags().String("db-path", defaultDBPath, "Path to the SQLite entity cache")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind root flags: %v\n", err)
		os.Exit(1)
	}
}

// bindFlags registers a subcommand's own flags with viper so config file
// and environment values flow through the same keys.
func bindFlags(cmd *cobra.Command) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind %s flags: %v\n", cmd.Name(), err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("infoboard")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("INFOBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("interval", defaultInterval)
	viper.SetDefault("window-days", defaultWindowDays)
	viper.SetDefault("display", defaultDisplay)
	viper.SetDefault("feed-page", 0)
	viper.SetDefault("db-path", defaultDBPath)
	viper.SetDefault("avatar-dir", defaultAvatarDir)

	// A missing config file is fine; every key has a default or a flag.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Failed to read config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// config is the validated runtime configuration shared by the subcommands.
type config struct {
	Org        string
	Interval   time.Duration
	WindowDays int
	Display    int
	FeedPage   int
	DBPath     string
	AvatarDir  string
}

// loadConfig assembles and validates the final configuration from viper.
// requireOrg is set by the commands that talk to the GitHub API.
func loadConfig(requireOrg bool) (config, error) {
	cfg := config{
		Org:        viper.GetString("org"),
		Interval:   viper.GetDuration("interval"),
		WindowDays: viper.GetInt("window-days"),
		Display:    viper.GetInt("display"),
		FeedPage:   viper.GetInt("feed-page"),
		DBPath:     viper.GetString("db-path"),
		AvatarDir:  viper.GetString("avatar-dir"),
	}
	if requireOrg && cfg.Org == "" {
		return config{}, fmt.Errorf("no organization configured: set --org, INFOBOARD_ORG, or the org key in infoboard.yaml")
	}
	if cfg.Interval <= 0 {
		return config{}, fmt.Errorf("interval must be positive (got %s)", cfg.Interval)
	}
	if cfg.WindowDays <= 0 {
		return config{}, fmt.Errorf("window-days must be positive (got %d)", cfg.WindowDays)
	}
	if cfg.Display <= 0 {
		return config{}, fmt.Errorf("display must be positive (got %d)", cfg.Display)
	}
	if cfg.DBPath == "" {
		return config{}, fmt.Errorf("db-path must not be empty")
	}
	return cfg, nil
}

// newLogger builds the command logger. Default: discard all logs; with
// --verbose, log to standard error.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}
