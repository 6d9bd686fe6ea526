// Command samradar fetches federal contract opportunities from SAM.gov
// across a configured set of classification codes, with caching,
// deduplication and run snapshots.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/oakline/sam-radar/internal/cache"
	"github.com/oakline/sam-radar/internal/config"
	"github.com/oakline/sam-radar/internal/db"
	"github.com/oakline/sam-radar/internal/fetch"
	"github.com/oakline/sam-radar/internal/sam"
	"github.com/oakline/sam-radar/internal/state"
)

var (
	cfg      config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "samradar",
	Short: "SAM.gov contract opportunity radar",
	Long: `samradar queries the SAM.gov opportunities API across a set of
classification codes, merges and deduplicates the results, and keeps a
snapshot of every run.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.Logging.SlogLevel(),
		})
		slog.SetDefault(slog.New(handler))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "",
		"Log level: debug, info, warn, error (overrides config)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService assembles the full fetch pipeline from configuration. The
// returned cleanup closes the database pool when one was opened; the code
// store is optional and its absence falls back to the built-in defaults.
func newService(ctx context.Context) (*fetch.Service, func()) {
	logger := slog.Default()
	cleanup := func() {}

	var codes fetch.CodeSource
	if cfg.Database.URL != "" {
		pool, err := db.ConnectURL(ctx, cfg.Database.URL)
		if err != nil {
			logger.Warn("database unavailable, using built-in code defaults", "error", err)
		} else {
			codes = db.NewCodeStore(pool)
			cleanup = pool.Close
		}
	}

	resolver := fetch.NewResolver(codes, cfg.Defaults.State, logger)

	httpClient := &http.Client{Timeout: time.Duration(cfg.SAM.TimeoutSeconds) * time.Second}
	client := sam.NewClient(cfg.SAM.BaseURL, httpClient, logger)
	if cfg.SAM.MaxRetries > 0 {
		client.MaxRetries = cfg.SAM.MaxRetries
	}

	responses := cache.NewOpportunities(cache.NewMemory(), logger)
	responses.SetTTL(time.Duration(cfg.Cache.TTLSeconds) * time.Second)

	fetcher := fetch.NewMultiCodeFetcher(client, responses, logger)
	if cfg.SAM.InterCallDelayMs > 0 {
		fetcher.Delay = time.Duration(cfg.SAM.InterCallDelayMs) * time.Millisecond
	}

	snapshots := state.NewManager(nil, cfg.State.Dir, logger)

	return fetch.NewService(resolver, fetcher, snapshots, cfg.SAM.APIKey, logger), cleanup
}

// connectPool opens the configured database, falling back to the local
// development default when no URL is set.
func connectPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.URL != "" {
		return db.ConnectURL(ctx, cfg.Database.URL)
	}
	return db.Connect(ctx)
}
