package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

type fakeCodeSource struct {
	primary   []string
	secondary []string
	err       error
}

func (f *fakeCodeSource) EnabledCodes(_ context.Context, codeType string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if codeType == CodeTypePrimary {
		return f.primary, nil
	}
	return f.secondary, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver(codes CodeSource) *Resolver {
	r := NewResolver(codes, "CO", quietLogger())
	r.Now = func() time.Time {
		return time.Date(2025, 11, 19, 12, 0, 0, 0, time.UTC)
	}
	return r
}

func TestResolve_Defaults(t *testing.T) {
	r := testResolver(nil)

	spec, err := r.Resolve(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !reflect.DeepEqual(spec.NAICSCodes, DefaultNAICSCodes) {
		t.Errorf("NAICSCodes = %v, want built-in defaults", spec.NAICSCodes)
	}
	if !reflect.DeepEqual(spec.PSCCodes, DefaultPSCCodes) {
		t.Errorf("PSCCodes = %v, want built-in defaults", spec.PSCCodes)
	}
	if spec.State != "CO" {
		t.Errorf("State = %q, want CO", spec.State)
	}
	if spec.PostedFrom != "10/20/2025" || spec.PostedTo != "11/19/2025" {
		t.Errorf("date range = %s to %s, want 10/20/2025 to 11/19/2025", spec.PostedFrom, spec.PostedTo)
	}
	if spec.Limit != 50 {
		t.Errorf("Limit = %d, want 50", spec.Limit)
	}
	if !reflect.DeepEqual(spec.NoticeTypeCodes, []string{"p", "o", "k"}) {
		t.Errorf("NoticeTypeCodes = %v, want [p o k]", spec.NoticeTypeCodes)
	}
	if spec.Metadata["dateRange"] != "10/20/2025 to 11/19/2025" {
		t.Errorf("metadata dateRange = %v", spec.Metadata["dateRange"])
	}
	if spec.Metadata["state"] != "CO" {
		t.Errorf("metadata state = %v, want CO", spec.Metadata["state"])
	}
}

func TestResolve_DaysBack(t *testing.T) {
	r := testResolver(nil)

	spec, err := r.Resolve(context.Background(), map[string]any{ParamDaysBack: 7})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.PostedFrom != "11/12/2025" || spec.PostedTo != "11/19/2025" {
		t.Errorf("date range = %s to %s, want 11/12/2025 to 11/19/2025", spec.PostedFrom, spec.PostedTo)
	}

	for _, bad := range []any{0, 366, -5} {
		if _, err := r.Resolve(context.Background(), map[string]any{ParamDaysBack: bad}); err == nil {
			t.Errorf("days_back=%v accepted, want validation error", bad)
		}
	}
}

func TestResolve_NAICSOverride(t *testing.T) {
	r := testResolver(&fakeCodeSource{primary: []string{"111111"}})

	override := []string{"236220", "541330", "562910"}
	spec, err := r.Resolve(context.Background(), map[string]any{ParamNAICSOverride: override})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Overrides win over the store and pass through verbatim.
	if !reflect.DeepEqual(spec.NAICSCodes, override) {
		t.Errorf("NAICSCodes = %v, want %v", spec.NAICSCodes, override)
	}
}

func TestResolve_NAICSOverrideRejectsBadShape(t *testing.T) {
	r := testResolver(nil)

	cases := []any{
		[]string{"12345"},
		[]string{"1234567"},
		[]string{"54133a"},
		[]string{},
		"541330",
	}
	for _, bad := range cases {
		_, err := r.Resolve(context.Background(), map[string]any{ParamNAICSOverride: bad})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("override %v: err = %v, want *ValidationError", bad, err)
			continue
		}
		if verr.Field != ParamNAICSOverride {
			t.Errorf("override %v: field = %q, want %q", bad, verr.Field, ParamNAICSOverride)
		}
	}
}

func TestResolve_StoreBeatsDefaults(t *testing.T) {
	source := &fakeCodeSource{primary: []string{"541715", "541714"}, secondary: []string{"7025"}}
	r := testResolver(source)

	spec, err := r.Resolve(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(spec.NAICSCodes, source.primary) {
		t.Errorf("NAICSCodes = %v, want stored %v", spec.NAICSCodes, source.primary)
	}
	if !reflect.DeepEqual(spec.PSCCodes, source.secondary) {
		t.Errorf("PSCCodes = %v, want stored %v", spec.PSCCodes, source.secondary)
	}
}

func TestResolve_StoreErrorFallsBackToDefaults(t *testing.T) {
	r := testResolver(&fakeCodeSource{err: errors.New("connection refused")})

	spec, err := r.Resolve(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(spec.NAICSCodes, DefaultNAICSCodes) {
		t.Errorf("NAICSCodes = %v, want built-in defaults on store error", spec.NAICSCodes)
	}
}

func TestResolve_State(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    string
		wantErr bool
	}{
		{name: "absent uses config default", raw: map[string]any{}, want: "CO"},
		{name: "empty means nationwide", raw: map[string]any{ParamState: ""}, want: ""},
		{name: "nil means nationwide", raw: map[string]any{ParamState: nil}, want: ""},
		{name: "lowercase normalized", raw: map[string]any{ParamState: "tx"}, want: "TX"},
		{name: "full name rejected", raw: map[string]any{ParamState: "Texas"}, wantErr: true},
		{name: "number rejected", raw: map[string]any{ParamState: 12}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testResolver(nil)
			spec, err := r.Resolve(context.Background(), tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if spec.State != tt.want {
				t.Errorf("State = %q, want %q", spec.State, tt.want)
			}
		})
	}
}

func TestResolve_NationwideMetadata(t *testing.T) {
	r := testResolver(nil)

	spec, err := r.Resolve(context.Background(), map[string]any{ParamState: ""})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Metadata["state"] != "nationwide" {
		t.Errorf("metadata state = %v, want nationwide", spec.Metadata["state"])
	}
}

func TestResolve_NoticeTypeFallback(t *testing.T) {
	r := testResolver(nil)

	spec, err := r.Resolve(context.Background(), map[string]any{
		ParamNoticeTypes: []string{"Unheard Of Type"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(spec.NoticeTypeCodes, FallbackNoticeCodes) {
		t.Errorf("NoticeTypeCodes = %v, want fallback %v", spec.NoticeTypeCodes, FallbackNoticeCodes)
	}
}

func TestResolve_ExplicitDates(t *testing.T) {
	r := testResolver(nil)

	spec, err := r.Resolve(context.Background(), map[string]any{
		ParamPostedFrom: "2025-01-01",
		ParamPostedTo:   "2025-03-15",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.PostedFrom != "01/01/2025" || spec.PostedTo != "03/15/2025" {
		t.Errorf("date range = %s to %s, want 01/01/2025 to 03/15/2025", spec.PostedFrom, spec.PostedTo)
	}

	if _, err := r.Resolve(context.Background(), map[string]any{ParamPostedFrom: "yesterday"}); err == nil {
		t.Error("unparseable date accepted")
	}
}

func TestResolve_Limit(t *testing.T) {
	r := testResolver(nil)

	spec, err := r.Resolve(context.Background(), map[string]any{ParamLimit: 10})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Limit != 10 {
		t.Errorf("Limit = %d, want 10", spec.Limit)
	}

	// JSON-decoded numbers arrive as float64.
	spec, err = r.Resolve(context.Background(), map[string]any{ParamLimit: float64(25)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Limit != 25 {
		t.Errorf("Limit = %d, want 25", spec.Limit)
	}

	for _, bad := range []any{0, 1001, "plenty"} {
		if _, err := r.Resolve(context.Background(), map[string]any{ParamLimit: bad}); err == nil {
			t.Errorf("limit=%v accepted, want validation error", bad)
		}
	}
}

func TestResolve_NoPrimaryCodesAvailable(t *testing.T) {
	r := testResolver(nil)
	r.NAICSDefaults = nil

	_, err := r.Resolve(context.Background(), map[string]any{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}
