package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/oakline/sam-radar/internal/cache"
	"github.com/oakline/sam-radar/internal/models"
	"github.com/oakline/sam-radar/internal/state"
)

func newTestService(client SearchClient) *Service {
	logger := quietLogger()

	resolver := NewResolver(nil, "CO", logger)
	resolver.Now = func() time.Time {
		return time.Date(2025, 11, 19, 12, 0, 0, 0, time.UTC)
	}

	fetcher := NewMultiCodeFetcher(client, cache.NewOpportunities(cache.NewMemory(), logger), logger)
	fetcher.Sleep = func(context.Context, time.Duration) error { return nil }

	snapshots := state.NewManager(afero.NewMemMapFs(), "state", logger)

	svc := NewService(resolver, fetcher, snapshots, "key", logger)
	svc.NewRunID = func() string { return "run-1" }
	return svc
}

func TestServiceRun_PartialSuccess(t *testing.T) {
	client := &fakeSearchClient{results: map[string]models.FetchResult{
		"332994": {
			Success:    false,
			Code:       "332994",
			Error:      "SAM.gov API request failed",
			StatusCode: 500,
			ErrorType:  models.ErrorTypeServerError,
		},
	}}
	svc := newTestService(client)

	envelope, err := svc.Run(context.Background(), map[string]any{
		ParamNAICSOverride: []string{"541330", "332994"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !envelope.IsPartialSuccess() {
		t.Fatalf("status = %q, want partial_success", envelope.Status)
	}
	metadata := envelope.GetMetadata()
	if metadata["runId"] != "run-1" {
		t.Errorf("runId = %v", metadata["runId"])
	}
	if metadata["naicsSucceeded"] != 1 || metadata["naicsFailed"] != 1 {
		t.Errorf("succeeded/failed = %v/%v", metadata["naicsSucceeded"], metadata["naicsFailed"])
	}
	if _, ok := metadata["performance"]; !ok {
		t.Error("performance summary missing from metadata")
	}
	if _, ok := metadata["deduplication"]; !ok {
		t.Error("deduplication stats missing from metadata")
	}

	errs := envelope.GetErrors()
	if len(errs) != 1 || errs[0].Code != "332994" || errs[0].Type != models.ErrorTypeServerError {
		t.Errorf("errors = %+v", errs)
	}

	// A snapshot was persisted with the failed codes.
	if svc.State.Count() != 1 {
		t.Fatalf("snapshot count = %d, want 1", svc.State.Count())
	}
	failed := svc.State.LatestFailedCodes()
	if len(failed) != 1 || failed[0] != "332994" {
		t.Errorf("snapshot failed codes = %v", failed)
	}
	if svc.State.LatestSummary()["status"] != StatusPartialSuccess {
		t.Errorf("snapshot summary = %v", svc.State.LatestSummary())
	}
}

func TestServiceRun_ValidationErrorShortCircuits(t *testing.T) {
	client := &fakeSearchClient{}
	svc := newTestService(client)

	_, err := svc.Run(context.Background(), map[string]any{ParamDaysBack: 0})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("API was called despite invalid input: %v", client.calls)
	}
	if svc.State.HasState() {
		t.Error("rejected run must not write a snapshot")
	}
}

func TestServiceRun_AllFailed(t *testing.T) {
	client := &fakeSearchClient{results: map[string]models.FetchResult{
		"541330": {Success: false, Code: "541330", Error: "boom", ErrorType: models.ErrorTypeServerError},
	}}
	svc := newTestService(client)

	envelope, err := svc.Run(context.Background(), map[string]any{
		ParamNAICSOverride: []string{"541330"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !envelope.IsFailure() {
		t.Fatalf("status = %q, want failure", envelope.Status)
	}
	if envelope.HasOpportunities {
		t.Error("failure envelope must not carry a data section")
	}
	if envelope.Error != "All classification code queries failed" {
		t.Errorf("Error = %q", envelope.Error)
	}
}

func TestServiceRun_LimitTruncatesDisplay(t *testing.T) {
	many := make([]models.Opportunity, 5)
	for i := range many {
		many[i] = models.Opportunity{NoticeID: string(rune('A' + i))}
	}
	client := &fakeSearchClient{results: map[string]models.FetchResult{
		"541330": {Success: true, Code: "541330", Opportunities: many, Count: len(many)},
	}}
	svc := newTestService(client)

	envelope, err := svc.Run(context.Background(), map[string]any{
		ParamNAICSOverride: []string{"541330"},
		ParamLimit:         2,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(envelope.GetOpportunities()); got != 2 {
		t.Errorf("opportunities = %d, want 2 after display truncation", got)
	}
}
