package fetch

import (
	"log/slog"
	"math"
	"strconv"
)

// Anomaly thresholds for AnalyzePerformance. The cache check is guarded by a
// minimum sample size so tiny runs don't trip it.
const (
	lowHitRateThreshold   = 20.0 // percent
	lowHitRateMinQueries  = 5
	highDedupThreshold    = 0.20
	slowQueryThresholdMs  = 3000
	highFailureThreshold  = 0.20
	performanceEventName  = "sam_fetch_performance"
	dailySummaryEventName = "sam_fetch_daily_summary"
)

// Metrics is the flattened per-run metric set the logger consumes. Missing
// inputs are zero values.
type Metrics struct {
	TotalDurationMs   int64 `json:"total_duration_ms"`
	CacheHits         int   `json:"cache_hits"`
	CacheMisses       int   `json:"cache_misses"`
	CodesQueried      int   `json:"codes_queried"`
	CodesSucceeded    int   `json:"codes_succeeded"`
	CodesFailed       int   `json:"codes_failed"`
	BeforeDedup       int   `json:"before_dedup"`
	AfterDedup        int   `json:"after_dedup"`
	DuplicatesRemoved int   `json:"duplicates_removed"`
}

// DailyAggregate is the externally-produced daily rollup; only its logging
// contract lives here.
type DailyAggregate struct {
	TotalFetches       int     `json:"total_fetches"`
	TotalOpportunities int     `json:"total_opportunities"`
	TotalAPICalls      int     `json:"total_api_calls"`
	TotalCacheHits     int     `json:"total_cache_hits"`
	AvgDurationMs      int64   `json:"avg_duration_ms"`
	AvgCacheHitRate    float64 `json:"avg_cache_hit_rate"`
	TotalFailures      int     `json:"total_failures"`
}

// PerformanceLogger is stateless metric computation plus structured logging.
type PerformanceLogger struct {
	Logger *slog.Logger
}

func NewPerformanceLogger(logger *slog.Logger) *PerformanceLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &PerformanceLogger{Logger: logger}
}

// Summary computes the derived rates for presentation and snapshots.
func (p *PerformanceLogger) Summary(m Metrics) map[string]any {
	return map[string]any{
		"duration": map[string]any{
			"totalMs":          m.TotalDurationMs,
			"averagePerCodeMs": averagePerCode(m),
		},
		"cache": map[string]any{
			"hits":    m.CacheHits,
			"misses":  m.CacheMisses,
			"hitRate": formatPercent(cacheHitRate(m)),
		},
		"codes": map[string]any{
			"queried":   m.CodesQueried,
			"succeeded": m.CodesSucceeded,
			"failed":    m.CodesFailed,
		},
		"opportunities": map[string]any{
			"beforeDedup":       m.BeforeDedup,
			"afterDedup":        m.AfterDedup,
			"duplicatesRemoved": m.DuplicatesRemoved,
			"deduplicationRate": formatPercent(dedupRate(m) * 100),
		},
	}
}

// AnalyzePerformance runs the independent anomaly checks; any subset may
// fire for one run.
func (p *PerformanceLogger) AnalyzePerformance(m Metrics) []string {
	var warnings []string

	totalQueries := m.CacheHits + m.CacheMisses
	if totalQueries >= lowHitRateMinQueries && cacheHitRate(m) < lowHitRateThreshold {
		warnings = append(warnings, "low cache hit rate: "+formatPercent(cacheHitRate(m)))
	}
	if dedupRate(m) > highDedupThreshold {
		warnings = append(warnings, "high deduplication rate: "+formatPercent(dedupRate(m)*100))
	}
	if avg := averagePerCode(m); avg > slowQueryThresholdMs {
		warnings = append(warnings, "slow per-code queries: "+strconv.FormatInt(avg, 10)+"ms average")
	}
	if m.CodesQueried > 0 {
		failureRate := float64(m.CodesFailed) / float64(m.CodesQueried)
		if failureRate > highFailureThreshold {
			warnings = append(warnings, "high failure rate: "+formatPercent(failureRate*100))
		}
	}
	return warnings
}

// Log emits the full flattened metric set as one info record.
func (p *PerformanceLogger) Log(m Metrics) {
	p.Logger.Info(performanceEventName,
		"total_duration_ms", m.TotalDurationMs,
		"average_per_code_ms", averagePerCode(m),
		"cache_hits", m.CacheHits,
		"cache_misses", m.CacheMisses,
		"cache_hit_rate", formatPercent(cacheHitRate(m)),
		"codes_queried", m.CodesQueried,
		"codes_succeeded", m.CodesSucceeded,
		"codes_failed", m.CodesFailed,
		"before_dedup", m.BeforeDedup,
		"after_dedup", m.AfterDedup,
		"duplicates_removed", m.DuplicatesRemoved,
		"deduplication_rate", formatPercent(dedupRate(m)*100),
	)
}

// LogWarning emits one anomaly reason with the metric context attached.
func (p *PerformanceLogger) LogWarning(m Metrics, reason string) {
	p.Logger.Warn(performanceEventName,
		"reason", reason,
		"total_duration_ms", m.TotalDurationMs,
		"cache_hits", m.CacheHits,
		"cache_misses", m.CacheMisses,
		"codes_queried", m.CodesQueried,
		"codes_failed", m.CodesFailed,
	)
}

// LogDailySummary emits the daily rollup record.
func (p *PerformanceLogger) LogDailySummary(agg DailyAggregate) {
	p.Logger.Info(dailySummaryEventName,
		"total_fetches", agg.TotalFetches,
		"total_opportunities", agg.TotalOpportunities,
		"total_api_calls", agg.TotalAPICalls,
		"total_cache_hits", agg.TotalCacheHits,
		"avg_duration_ms", agg.AvgDurationMs,
		"avg_cache_hit_rate", formatPercent(agg.AvgCacheHitRate),
		"total_failures", agg.TotalFailures,
	)
}

func cacheHitRate(m Metrics) float64 {
	total := m.CacheHits + m.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(total) * 100
}

func dedupRate(m Metrics) float64 {
	if m.BeforeDedup == 0 {
		return 0
	}
	return float64(m.DuplicatesRemoved) / float64(m.BeforeDedup)
}

func averagePerCode(m Metrics) int64 {
	if m.CodesQueried == 0 {
		return 0
	}
	return int64(math.Round(float64(m.TotalDurationMs) / float64(m.CodesQueried)))
}

// formatPercent renders a percentage rounded to one decimal, trimming a
// trailing ".0" so whole numbers print bare ("25%" vs "66.7%"). Existing log
// consumers parse this exact shape.
func formatPercent(pct float64) string {
	rounded := math.Round(pct*10) / 10
	return strconv.FormatFloat(rounded, 'f', -1, 64) + "%"
}
