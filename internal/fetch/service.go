// Package fetch implements the SAM.gov opportunity fetch pipeline: parameter
// resolution, the sequential multi-code fetch loop, deduplication, envelope
// assembly and run telemetry.
package fetch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oakline/sam-radar/internal/state"
)

// Service drives one complete fetch run end to end.
type Service struct {
	Resolver *Resolver
	Fetcher  *MultiCodeFetcher
	Dedup    *Deduplicator
	Perf     *PerformanceLogger
	State    *state.Manager
	APIKey   string
	Logger   *slog.Logger
	NewRunID func() string
}

// NewService wires a Service from its parts. State may be nil when snapshot
// persistence is not configured.
func NewService(resolver *Resolver, fetcher *MultiCodeFetcher, snapshots *state.Manager, apiKey string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Resolver: resolver,
		Fetcher:  fetcher,
		Dedup:    NewDeduplicator(logger),
		Perf:     NewPerformanceLogger(logger),
		State:    snapshots,
		APIKey:   apiKey,
		Logger:   logger,
		NewRunID: uuid.NewString,
	}
}

// Run resolves the raw parameter bag and executes the full pipeline. A
// *ValidationError on the raw input comes back as the error. Everything
// after resolution, including a run where every code fails, is expressed
// inside the returned envelope.
func (s *Service) Run(ctx context.Context, raw map[string]any) (Envelope, error) {
	spec, err := s.Resolver.Resolve(ctx, raw)
	if err != nil {
		return Envelope{}, err
	}

	runID := s.NewRunID()
	s.Logger.Info("starting fetch run",
		"run_id", runID,
		"codes", len(spec.NAICSCodes),
		"date_range", spec.Metadata["dateRange"],
		"bypass_cache", spec.BypassCache)

	outcome := s.Fetcher.FetchAll(ctx, spec.NAICSCodes, spec, s.APIKey)
	merged := s.Dedup.Merge(outcome.Results)

	metrics := Metrics{
		TotalDurationMs:   outcome.Performance.TotalDurationMs,
		CacheHits:         outcome.Performance.CacheHits,
		CacheMisses:       outcome.Performance.CacheMisses,
		CodesQueried:      merged.CodesQueried,
		CodesSucceeded:    merged.CodesSucceeded,
		CodesFailed:       len(merged.CodesFailed),
		BeforeDedup:       merged.CountBeforeDedup,
		AfterDedup:        merged.TotalAfterDedup,
		DuplicatesRemoved: merged.DuplicatesRemoved,
	}

	s.Perf.Log(metrics)
	warnings := s.Perf.AnalyzePerformance(metrics)
	for _, reason := range warnings {
		s.Perf.LogWarning(metrics, reason)
	}

	metadata := cloneMetadata(spec.Metadata)
	metadata["runId"] = runID
	metadata["naicsSucceeded"] = merged.CodesSucceeded
	metadata["naicsFailed"] = len(merged.CodesFailed)
	metadata["performance"] = s.Perf.Summary(metrics)
	metadata = AddDeduplicationStats(metadata, s.Dedup.Stats(merged))
	metadata = AddWarnings(metadata, warnings)

	// The display limit truncates after dedup; the upstream page size is
	// fixed and independent of it.
	opportunities := merged.Opportunities
	if spec.Limit > 0 && len(opportunities) > spec.Limit {
		opportunities = opportunities[:spec.Limit]
	}

	envelope := Build(opportunities, metadata, ExtractErrors(outcome.Results))

	if s.State != nil {
		summary := s.Perf.Summary(metrics)
		summary["status"] = envelope.Status
		summary["runId"] = runID
		summary["totalCount"] = len(envelope.GetOpportunities())
		if path := s.State.Save(spec.Metadata, summary, merged.CodesFailed); path != "" {
			s.Logger.Info("run snapshot saved", "run_id", runID, "path", path)
		}
	}

	s.Logger.Info("fetch run complete",
		"run_id", runID,
		"status", envelope.Status,
		"opportunities", len(envelope.GetOpportunities()),
		"codes_failed", len(merged.CodesFailed))

	return envelope, nil
}
