package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/oakline/sam-radar/internal/cache"
	"github.com/oakline/sam-radar/internal/models"
)

type fakeSearchClient struct {
	results map[string]models.FetchResult
	calls   []string
	onFetch func(code string)
}

func (c *fakeSearchClient) Fetch(_ context.Context, code string, _ models.QuerySpec, _ string) models.FetchResult {
	c.calls = append(c.calls, code)
	if c.onFetch != nil {
		c.onFetch(code)
	}
	if r, ok := c.results[code]; ok {
		return r
	}
	return models.FetchResult{
		Success:       true,
		Code:          code,
		Opportunities: []models.Opportunity{{NoticeID: "N-" + code}},
		Count:         1,
	}
}

func newTestFetcher(client SearchClient) (*MultiCodeFetcher, *int) {
	sleeps := 0
	f := NewMultiCodeFetcher(client, cache.NewOpportunities(cache.NewMemory(), quietLogger()), quietLogger())
	f.Sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return f, &sleeps
}

func TestFetchAll_OneFailureDoesNotAbort(t *testing.T) {
	client := &fakeSearchClient{results: map[string]models.FetchResult{
		"332994": {
			Success:    false,
			Code:       "332994",
			Error:      "SAM.gov API request failed",
			StatusCode: 401,
			ErrorType:  models.ErrorTypeAuthentication,
		},
	}}
	f, _ := newTestFetcher(client)
	spec := models.QuerySpec{}

	outcome := f.FetchAll(context.Background(), []string{"541330", "332994", "336611"}, spec, "key")

	if len(outcome.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(outcome.Results))
	}
	for i, wantCode := range []string{"541330", "332994", "336611"} {
		if outcome.Results[i].Code != wantCode {
			t.Errorf("Results[%d].Code = %q, want %q (input order)", i, outcome.Results[i].Code, wantCode)
		}
	}
	if outcome.Results[1].Success || outcome.Results[1].ErrorType != models.ErrorTypeAuthentication {
		t.Errorf("Results[1] = %+v, want auth failure", outcome.Results[1])
	}

	// Only the successes were written back.
	if !f.Cache.Has("541330", spec) || !f.Cache.Has("336611", spec) {
		t.Error("successful results missing from cache")
	}
	if f.Cache.Has("332994", spec) {
		t.Error("failed result must not be cached")
	}
}

func TestFetchAll_DelayOnlyBetweenAPICalls(t *testing.T) {
	client := &fakeSearchClient{}
	f, sleeps := newTestFetcher(client)

	f.FetchAll(context.Background(), []string{"A", "B", "C"}, models.QuerySpec{}, "key")

	// No delay before the first call, one before each subsequent call.
	if *sleeps != 2 {
		t.Errorf("sleeps = %d, want 2", *sleeps)
	}
}

func TestFetchAll_CacheHitCarriesNoDelay(t *testing.T) {
	client := &fakeSearchClient{}
	f, sleeps := newTestFetcher(client)
	spec := models.QuerySpec{}

	f.Cache.Put("B", spec, models.FetchResult{
		Success:       true,
		Code:          "B",
		Opportunities: []models.Opportunity{{NoticeID: "cached"}},
		Count:         1,
	})

	outcome := f.FetchAll(context.Background(), []string{"A", "B", "C"}, spec, "key")

	if len(client.calls) != 2 {
		t.Fatalf("API calls = %v, want only A and C", client.calls)
	}
	if !outcome.Results[1].Cached {
		t.Error("Results[1] should come from cache")
	}
	if outcome.Performance.CacheHits != 1 || outcome.Performance.CacheMisses != 2 {
		t.Errorf("hits/misses = %d/%d, want 1/2",
			outcome.Performance.CacheHits, outcome.Performance.CacheMisses)
	}
	// The hit sits between two API calls, so exactly one inter-call delay.
	if *sleeps != 1 {
		t.Errorf("sleeps = %d, want 1", *sleeps)
	}
}

func TestFetchAll_BypassCacheSkipsReadsButWrites(t *testing.T) {
	client := &fakeSearchClient{}
	f, _ := newTestFetcher(client)
	spec := models.QuerySpec{BypassCache: true}

	f.Cache.Put("A", spec, models.FetchResult{
		Success:       true,
		Code:          "A",
		Opportunities: []models.Opportunity{{NoticeID: "stale"}},
		Count:         1,
	})

	outcome := f.FetchAll(context.Background(), []string{"A"}, spec, "key")

	if outcome.Results[0].Cached {
		t.Error("bypass run must not serve from cache")
	}
	if outcome.Results[0].Opportunities[0].NoticeID != "N-A" {
		t.Errorf("got %q, want the fresh record", outcome.Results[0].Opportunities[0].NoticeID)
	}

	// The fresh success replaced the stale entry.
	refreshed := f.Cache.Get("A", spec)
	if refreshed == nil || refreshed.Opportunities[0].NoticeID != "N-A" {
		t.Error("bypass run should still refresh the cache")
	}
}

func TestFetchAll_CancellationPreservesCompletedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeSearchClient{onFetch: func(code string) {
		if code == "A" {
			cancel()
		}
	}}
	f, _ := newTestFetcher(client)

	outcome := f.FetchAll(ctx, []string{"A", "B", "C"}, models.QuerySpec{}, "key")

	if len(outcome.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2 (completed + interrupted)", len(outcome.Results))
	}
	if !outcome.Results[0].Success {
		t.Error("completed result should be preserved")
	}
	interrupted := outcome.Results[1]
	if interrupted.Success || interrupted.ErrorType != models.ErrorTypeCancelled || interrupted.Code != "B" {
		t.Errorf("interrupted result = %+v", interrupted)
	}
	if len(client.calls) != 1 {
		t.Errorf("API calls = %v, want only A", client.calls)
	}
}

func TestSummaryAndFailedCodes(t *testing.T) {
	client := &fakeSearchClient{results: map[string]models.FetchResult{
		"B": {Success: false, Code: "B", Error: "boom"},
	}}
	f, _ := newTestFetcher(client)

	outcome := f.FetchAll(context.Background(), []string{"A", "B"}, models.QuerySpec{}, "key")

	summary := f.Summary(outcome)
	if summary["codesQueried"] != 2 || summary["codesSucceeded"] != 1 || summary["codesFailed"] != 1 {
		t.Errorf("summary = %v", summary)
	}
	if summary["cacheHitRate"] != "0%" {
		t.Errorf("cacheHitRate = %v, want 0%%", summary["cacheHitRate"])
	}

	failed := FailedCodes(outcome.Results)
	if len(failed) != 1 || failed[0] != "B" {
		t.Errorf("FailedCodes = %v, want [B]", failed)
	}
}
