package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/oakline/sam-radar/internal/fetch"
)

var scheduleCron string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run fetches on the configured cron schedule",
	Long: `Run the fetch pipeline on a cron schedule until interrupted. A
daily summary of all runs is logged at midnight in the scheduler timezone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		svc, cleanup := newService(ctx)
		defer cleanup()

		expression := cfg.Scheduler.CronExpression
		if scheduleCron != "" {
			expression = scheduleCron
		}

		agg := &runAggregator{perf: fetch.NewPerformanceLogger(logger)}

		scheduler := cron.New(cron.WithLocation(cfg.Scheduler.Location()))
		if _, err := scheduler.AddFunc(expression, func() {
			envelope, err := svc.Run(ctx, map[string]any{})
			if err != nil {
				logger.Error("scheduled fetch rejected", "error", err)
				return
			}
			agg.record(envelope)
		}); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expression, err)
		}
		if _, err := scheduler.AddFunc("0 0 * * *", agg.flush); err != nil {
			return fmt.Errorf("registering daily summary job: %w", err)
		}

		logger.Info("scheduler started",
			"cron", expression, "timezone", cfg.Scheduler.Timezone)
		scheduler.Start()

		<-ctx.Done()
		logger.Info("scheduler stopping")
		<-scheduler.Stop().Done()
		agg.flush()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "",
		"Cron expression (overrides config)")
	rootCmd.AddCommand(scheduleCmd)
}

// runAggregator accumulates per-run figures for the daily summary record.
type runAggregator struct {
	mu   sync.Mutex
	agg  fetch.DailyAggregate
	perf *fetch.PerformanceLogger

	totalDurationMs int64
	hitRateSum      float64
}

func (a *runAggregator) record(envelope fetch.Envelope) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.agg.TotalFetches++
	a.agg.TotalOpportunities += len(envelope.GetOpportunities())

	metadata := envelope.GetMetadata()
	a.agg.TotalFailures += metaInt(metadata, "naicsFailed")

	if perf, ok := metadata["performance"].(map[string]any); ok {
		if cacheStats, ok := perf["cache"].(map[string]any); ok {
			hits := metaInt(cacheStats, "hits")
			misses := metaInt(cacheStats, "misses")
			a.agg.TotalCacheHits += hits
			a.agg.TotalAPICalls += misses
			if hits+misses > 0 {
				a.hitRateSum += float64(hits) / float64(hits+misses) * 100
			}
		}
		if duration, ok := perf["duration"].(map[string]any); ok {
			a.totalDurationMs += int64(metaInt(duration, "totalMs"))
		}
	}
}

// flush logs the accumulated daily summary and resets the window.
func (a *runAggregator) flush() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.agg.TotalFetches == 0 {
		return
	}
	a.agg.AvgDurationMs = a.totalDurationMs / int64(a.agg.TotalFetches)
	a.agg.AvgCacheHitRate = a.hitRateSum / float64(a.agg.TotalFetches)

	a.perf.LogDailySummary(a.agg)

	a.agg = fetch.DailyAggregate{}
	a.totalDurationMs = 0
	a.hitRateSum = 0
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
