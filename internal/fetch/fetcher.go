package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/oakline/sam-radar/internal/cache"
	"github.com/oakline/sam-radar/internal/models"
)

// interCallDelay spaces consecutive upstream calls. SAM.gov throttles
// aggressively; ~500ms keeps a full multi-code run under the bucket.
const interCallDelay = 500 * time.Millisecond

// SearchClient is the single-code query capability the fetcher drives.
type SearchClient interface {
	Fetch(ctx context.Context, code string, spec models.QuerySpec, apiKey string) models.FetchResult
}

// CodeMetric is the per-code slice of a run's performance telemetry.
type CodeMetric struct {
	Code       string `json:"code"`
	DurationMs int64  `json:"duration_ms"`
	Count      int    `json:"count"`
	CacheHit   bool   `json:"cache_hit"`
}

// Performance aggregates a run's telemetry. CacheMisses counts actual API
// calls attempted, successful or not.
type Performance struct {
	TotalDurationMs int64        `json:"total_duration_ms"`
	CacheHits       int          `json:"cache_hits"`
	CacheMisses     int          `json:"cache_misses"`
	PerCode         []CodeMetric `json:"per_code"`
}

// FetchOutcome is everything FetchAll produces: one result per requested
// code, in input order, plus the run telemetry.
type FetchOutcome struct {
	Results     []models.FetchResult
	Performance Performance
}

// MultiCodeFetcher runs the sequential cache-first loop over classification
// codes. Sleep and Clock are injectable so tests run without real delays.
type MultiCodeFetcher struct {
	Client SearchClient
	Cache  *cache.Opportunities
	Delay  time.Duration
	Sleep  func(ctx context.Context, d time.Duration) error
	Clock  func() time.Time
	Logger *slog.Logger
}

func NewMultiCodeFetcher(client SearchClient, responses *cache.Opportunities, logger *slog.Logger) *MultiCodeFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiCodeFetcher{
		Client: client,
		Cache:  responses,
		Delay:  interCallDelay,
		Sleep:  sleepContext,
		Clock:  time.Now,
		Logger: logger,
	}
}

// FetchAll queries every code in input order. One code's failure never
// aborts the loop; only cancellation does, and then the results collected so
// far are preserved with the interrupted code marked as failed.
func (f *MultiCodeFetcher) FetchAll(ctx context.Context, codes []string, spec models.QuerySpec, apiKey string) FetchOutcome {
	outcome := FetchOutcome{
		Results: make([]models.FetchResult, 0, len(codes)),
		Performance: Performance{
			PerCode: make([]CodeMetric, 0, len(codes)),
		},
	}

	start := f.Clock()
	apiCalled := false

	for _, code := range codes {
		if ctx.Err() != nil {
			f.Logger.Warn("fetch run cancelled", "code", code, "completed", len(outcome.Results))
			outcome.Results = append(outcome.Results, models.FetchResult{
				Success:       false,
				Code:          code,
				Opportunities: []models.Opportunity{},
				Error:         "fetch cancelled",
				ErrorType:     models.ErrorTypeCancelled,
			})
			break
		}

		codeStart := f.Clock()

		if !spec.BypassCache && f.Cache != nil {
			if hit := f.Cache.Get(code, spec); hit != nil {
				outcome.Performance.CacheHits++
				outcome.Results = append(outcome.Results, *hit)
				outcome.Performance.PerCode = append(outcome.Performance.PerCode, CodeMetric{
					Code:       code,
					DurationMs: f.Clock().Sub(codeStart).Milliseconds(),
					Count:      hit.Count,
					CacheHit:   true,
				})
				continue
			}
		}

		// Space out consecutive upstream calls; cache hits cost nothing
		// against the rate limit, so they carry no delay penalty.
		if apiCalled && f.Delay > 0 {
			if err := f.Sleep(ctx, f.Delay); err != nil {
				f.Logger.Warn("fetch run cancelled during delay", "code", code)
				outcome.Results = append(outcome.Results, models.FetchResult{
					Success:       false,
					Code:          code,
					Opportunities: []models.Opportunity{},
					Error:         "fetch cancelled",
					ErrorType:     models.ErrorTypeCancelled,
				})
				break
			}
		}

		result := f.Client.Fetch(ctx, code, spec, apiKey)
		apiCalled = true
		outcome.Performance.CacheMisses++

		// Only successes are written back; a transient failure stays
		// retryable on the next run instead of waiting out the TTL.
		if result.Success && f.Cache != nil {
			f.Cache.Put(code, spec, result)
		}

		outcome.Results = append(outcome.Results, result)
		outcome.Performance.PerCode = append(outcome.Performance.PerCode, CodeMetric{
			Code:       code,
			DurationMs: f.Clock().Sub(codeStart).Milliseconds(),
			Count:      result.Count,
			CacheHit:   false,
		})
	}

	outcome.Performance.TotalDurationMs = f.Clock().Sub(start).Milliseconds()
	return outcome
}

// Summary derives the presentation view of a fetch outcome.
func (f *MultiCodeFetcher) Summary(outcome FetchOutcome) map[string]any {
	succeeded := 0
	for _, r := range outcome.Results {
		if r.Success {
			succeeded++
		}
	}
	total := outcome.Performance.CacheHits + outcome.Performance.CacheMisses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(outcome.Performance.CacheHits) / float64(total) * 100
	}
	return map[string]any{
		"codesQueried":   len(outcome.Results),
		"codesSucceeded": succeeded,
		"codesFailed":    len(outcome.Results) - succeeded,
		"cacheHitRate":   formatPercent(hitRate),
	}
}

// FailedCodes lists the classification codes whose queries failed, in input
// order, for audit and retry tooling.
func FailedCodes(results []models.FetchResult) []string {
	var failed []string
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r.Code)
		}
	}
	return failed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
