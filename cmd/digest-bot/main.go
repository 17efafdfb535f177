package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/config"
)

var (
	dateFlag   string
	dryRunFlag bool
	actionFlag string
	daysFlag   int
)

var rootCmd = &cobra.Command{
	Use:           "digest-bot",
	Short:         "Publishes daily MapComplete activity digests to Mastodon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Build and publish the configured digests",
		RunE:  runDigest,
	}
	runCmd.Flags().StringVar(&dateFlag, "date", "", "Last day of the digest window (default: yesterday, UTC)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Log the thread instead of posting it")
	runCmd.Flags().StringVar(&actionFlag, "action", "", "Only run the action with this name")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the activity statistics of a window without publishing",
		RunE:  runStats,
	}
	statsCmd.Flags().StringVar(&dateFlag, "date", "", "Last day of the window (default: yesterday, UTC)")
	statsCmd.Flags().IntVar(&daysFlag, "days", 1, "Number of days in the window")

	rootCmd.AddCommand(runCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runDigest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	if dryRunFlag {
		cfg.Mastodon.DryRun = true
	}

	date, err := parseDate(dateFlag, time.Now())
	if err != nil {
		return err
	}

	components, err := wire(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	return components.App.RunDigest(cmd.Context(), date, actionFlag)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	date, err := parseDate(dateFlag, time.Now())
	if err != nil {
		return err
	}

	components, err := wire(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	stats, err := components.App.Stats(cmd.Context(), date, daysFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Window:       %s\n", stats.DateLabel)
	fmt.Fprintf(out, "Changesets:   %d\n", stats.Records)
	fmt.Fprintf(out, "Contributors: %d\n", stats.Contributors)
	fmt.Fprintf(out, "Themes:       %d\n", stats.Themes)
	fmt.Fprintf(out, "Changes:      %d\n", stats.Statistics.Total)

	if stats.Statistics.SummaryText != "" {
		fmt.Fprintf(out, "Summary:      %s\n", stats.Statistics.SummaryText)
	}

	return nil
}

func setup() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	return cfg, &logger, nil
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
