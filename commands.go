package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/app"
	"trade-journal/config"
	models "trade-journal/database/models_pkg"
)

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marketdata",
		Short: "Market data ingestion and aggregation service for the trade journal",
		Long: `marketdata pulls end-of-day prices for the tracked ticker universe,
stores them keyed on (symbol, date), and serves window aggregates and watchlists.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: serve
			return runServe()
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newIngestCmd())

	return rootCmd
}

// newServeCmd creates the serve command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled ingestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// newIngestCmd creates the ingest command
func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion and exit",
		Long: `Fetch and store the latest daily bars for every tracked ticker once.
Example: marketdata ingest --date=2024-03-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			return runIngest(date)
		},
	}

	cmd.Flags().String("date", "", "Ingestion date in YYYY-MM-DD format (today, UTC, if not provided)")

	return cmd
}

func runServe() error {
	cfg := config.LoadFromEnv()
	return app.New(cfg).Start()
}

func runIngest(date string) error {
	asOf, err := parseAsOf(date, time.Now())
	if err != nil {
		return err
	}

	cfg := config.LoadFromEnv()
	application := app.New(cfg)
	if err := application.Init(); err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := application.Run(ctx, asOf)
	if err != nil {
		return err
	}

	fmt.Printf("✅ %d tickers processed, %d failed, %d rows written\n",
		summary.TickersProcessed, summary.TickersFailed, summary.RowsWritten)
	return nil
}

// parseAsOf returns the UTC ingestion day; an empty date means today
func parseAsOf(date string, now time.Time) (time.Time, error) {
	if date == "" {
		return now.UTC(), nil
	}
	asOf, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD: %w", date, err)
	}
	return asOf, nil
}
