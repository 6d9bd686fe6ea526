package fetch

import (
	"strings"
	"testing"
)

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{25, "25%"},
		{25.0, "25%"},
		{66.666666, "66.7%"},
		{0, "0%"},
		{100, "100%"},
		{33.333333, "33.3%"},
		{99.96, "100%"},
	}
	for _, tt := range tests {
		if got := formatPercent(tt.pct); got != tt.want {
			t.Errorf("formatPercent(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestSummary_DerivedRates(t *testing.T) {
	p := NewPerformanceLogger(quietLogger())

	summary := p.Summary(Metrics{
		TotalDurationMs:   3000,
		CacheHits:         2,
		CacheMisses:       1,
		CodesQueried:      3,
		CodesSucceeded:    3,
		BeforeDedup:       4,
		AfterDedup:        3,
		DuplicatesRemoved: 1,
	})

	cacheStats := summary["cache"].(map[string]any)
	if cacheStats["hitRate"] != "66.7%" {
		t.Errorf("hitRate = %v, want 66.7%%", cacheStats["hitRate"])
	}
	duration := summary["duration"].(map[string]any)
	if duration["averagePerCodeMs"] != int64(1000) {
		t.Errorf("averagePerCodeMs = %v, want 1000", duration["averagePerCodeMs"])
	}
	opportunities := summary["opportunities"].(map[string]any)
	if opportunities["deduplicationRate"] != "25%" {
		t.Errorf("deduplicationRate = %v, want 25%%", opportunities["deduplicationRate"])
	}
}

func TestSummary_ZeroQueries(t *testing.T) {
	p := NewPerformanceLogger(quietLogger())

	summary := p.Summary(Metrics{})
	duration := summary["duration"].(map[string]any)
	if duration["averagePerCodeMs"] != int64(0) {
		t.Errorf("averagePerCodeMs = %v, want 0", duration["averagePerCodeMs"])
	}
	cacheStats := summary["cache"].(map[string]any)
	if cacheStats["hitRate"] != "0%" {
		t.Errorf("hitRate = %v, want 0%%", cacheStats["hitRate"])
	}
}

func TestAnalyzePerformance_Thresholds(t *testing.T) {
	p := NewPerformanceLogger(quietLogger())

	tests := []struct {
		name     string
		metrics  Metrics
		wantHint string
	}{
		{
			name:     "low cache hit rate",
			metrics:  Metrics{CacheHits: 0, CacheMisses: 5},
			wantHint: "low cache hit rate",
		},
		{
			name:     "high dedup rate",
			metrics:  Metrics{BeforeDedup: 10, DuplicatesRemoved: 3},
			wantHint: "high deduplication rate",
		},
		{
			name:     "slow per-code queries",
			metrics:  Metrics{TotalDurationMs: 20000, CodesQueried: 5},
			wantHint: "slow per-code queries",
		},
		{
			name:     "high failure rate",
			metrics:  Metrics{CodesQueried: 4, CodesFailed: 2},
			wantHint: "high failure rate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := p.AnalyzePerformance(tt.metrics)
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantHint) {
					found = true
				}
			}
			if !found {
				t.Errorf("warnings = %v, want one containing %q", warnings, tt.wantHint)
			}
		})
	}
}

func TestAnalyzePerformance_SmallSampleSkipsCacheCheck(t *testing.T) {
	p := NewPerformanceLogger(quietLogger())

	// 0% hit rate but under the minimum sample size.
	warnings := p.AnalyzePerformance(Metrics{CacheHits: 0, CacheMisses: 3})
	for _, w := range warnings {
		if strings.Contains(w, "cache hit rate") {
			t.Errorf("cache warning fired on a tiny sample: %v", warnings)
		}
	}
}

func TestAnalyzePerformance_HealthyRunIsQuiet(t *testing.T) {
	p := NewPerformanceLogger(quietLogger())

	warnings := p.AnalyzePerformance(Metrics{
		TotalDurationMs: 4000,
		CacheHits:       4,
		CacheMisses:     4,
		CodesQueried:    8,
		CodesSucceeded:  8,
		BeforeDedup:     100,
		AfterDedup:      95,
	})
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}
