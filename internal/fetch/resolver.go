package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oakline/sam-radar/internal/models"
)

// Raw parameter keys accepted by Resolve. Callers hand over a loose bag
// (admin UI form, scheduled job config) and get back a typed QuerySpec.
const (
	ParamNAICSOverride = "naics_override"
	ParamPSCOverride   = "psc_override"
	ParamNoticeTypes   = "notice_types"
	ParamState         = "state"
	ParamDaysBack      = "days_back"
	ParamPostedFrom    = "posted_from"
	ParamPostedTo      = "posted_to"
	ParamLimit         = "limit"
	ParamKeywords      = "keywords"
	ParamBypassCache   = "bypass_cache"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
	maxDaysBack  = 365

	// wireDateFormat is the MM/DD/YYYY format the SAM.gov API expects.
	wireDateFormat = "01/02/2006"
)

var (
	naicsPattern = regexp.MustCompile(`^\d{6}$`)
	statePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// ValidationError reports a single violated parameter constraint. Malformed
// caller input is a programming/config error and is never silently defaulted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Code types served by the backing classification-code store.
const (
	CodeTypePrimary   = "primary"   // NAICS
	CodeTypeSecondary = "secondary" // PSC
)

// CodeSource lists enabled classification codes of a type, in insertion
// order. A nil CodeSource means "no store configured".
type CodeSource interface {
	EnabledCodes(ctx context.Context, codeType string) ([]string, error)
}

// Resolver turns a loose parameter bag into a QuerySpec. The default tables
// and clock are fields so tests can pin them.
type Resolver struct {
	Codes         CodeSource
	DefaultState  string // "" means nationwide by default
	NAICSDefaults []string
	PSCDefaults   []string
	NoticeMap     map[string]string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewResolver builds a Resolver with the package default tables.
func NewResolver(codes CodeSource, defaultState string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Codes:         codes,
		DefaultState:  defaultState,
		NAICSDefaults: DefaultNAICSCodes,
		PSCDefaults:   DefaultPSCCodes,
		NoticeMap:     NoticeTypeCodeMap,
		Now:           time.Now,
		Logger:        logger,
	}
}

// Resolve validates and normalizes the raw parameter bag. It fails with a
// *ValidationError naming the offending field; it never substitutes a default
// for malformed input.
func (r *Resolver) Resolve(ctx context.Context, raw map[string]any) (models.QuerySpec, error) {
	var spec models.QuerySpec

	naics, err := r.resolveCodes(ctx, raw, ParamNAICSOverride, CodeTypePrimary, r.NAICSDefaults, true)
	if err != nil {
		return spec, err
	}
	psc, err := r.resolveCodes(ctx, raw, ParamPSCOverride, CodeTypeSecondary, r.PSCDefaults, false)
	if err != nil {
		return spec, err
	}

	labels, codes, err := r.resolveNoticeTypes(raw)
	if err != nil {
		return spec, err
	}

	state, err := r.resolveState(raw)
	if err != nil {
		return spec, err
	}

	postedFrom, postedTo, err := r.resolveDateRange(raw)
	if err != nil {
		return spec, err
	}

	limit, err := resolveLimit(raw)
	if err != nil {
		return spec, err
	}

	keywords, err := optionalString(raw, ParamKeywords)
	if err != nil {
		return spec, err
	}

	bypass, err := optionalBool(raw, ParamBypassCache)
	if err != nil {
		return spec, err
	}

	stateLabel := "nationwide"
	if state != "" {
		stateLabel = state
	}

	spec = models.QuerySpec{
		NAICSCodes:       naics,
		PSCCodes:         psc,
		NoticeTypeLabels: labels,
		NoticeTypeCodes:  codes,
		State:            state,
		PostedFrom:       postedFrom,
		PostedTo:         postedTo,
		Limit:            limit,
		Keywords:         keywords,
		BypassCache:      bypass,
		Metadata: map[string]any{
			"dateRange":   fmt.Sprintf("%s to %s", postedFrom, postedTo),
			"naicsCodes":  naics,
			"pscCodes":    psc,
			"state":       stateLabel,
			"noticeTypes": labels,
			"keywords":    keywords,
		},
	}
	return spec, nil
}

// resolveCodes applies the override > store > default precedence for one
// classification code type. strictFormat enforces the 6-digit NAICS shape on
// overrides; PSC overrides only have to be strings.
func (r *Resolver) resolveCodes(ctx context.Context, raw map[string]any, key, codeType string, defaults []string, strictFormat bool) ([]string, error) {
	if v, ok := raw[key]; ok {
		codes, err := stringSlice(v)
		if err != nil {
			return nil, validationErrorf(key, "%s", err)
		}
		if len(codes) == 0 {
			return nil, validationErrorf(key, "override must be a non-empty array of strings")
		}
		if strictFormat {
			for _, c := range codes {
				if !naicsPattern.MatchString(c) {
					return nil, validationErrorf(key, "code %q is not a 6-digit NAICS code", c)
				}
			}
		}
		// Overrides are taken verbatim: order preserved, no dedup.
		return codes, nil
	}

	if r.Codes != nil {
		stored, err := r.Codes.EnabledCodes(ctx, codeType)
		if err != nil {
			r.Logger.Warn("code store unavailable, using built-in defaults",
				"code_type", codeType, "error", err)
		} else if len(stored) > 0 {
			return stored, nil
		}
	}

	if len(defaults) == 0 && codeType == CodeTypePrimary {
		return nil, validationErrorf(key, "no %s codes available", codeType)
	}
	return defaults, nil
}

func (r *Resolver) resolveNoticeTypes(raw map[string]any) ([]string, []string, error) {
	labels := DefaultNoticeTypeLabels
	if v, ok := raw[ParamNoticeTypes]; ok {
		parsed, err := stringSlice(v)
		if err != nil {
			return nil, nil, validationErrorf(ParamNoticeTypes, "%s", err)
		}
		labels = parsed
	}

	codes := make([]string, 0, len(labels))
	for _, label := range labels {
		if code, ok := r.NoticeMap[label]; ok {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		codes = append([]string(nil), FallbackNoticeCodes...)
	}
	return labels, codes, nil
}

// resolveState distinguishes "key absent" (config default) from "key present
// but empty" (explicit nationwide).
func (r *Resolver) resolveState(raw map[string]any) (string, error) {
	v, ok := raw[ParamState]
	if !ok {
		return strings.ToUpper(r.DefaultState), nil
	}
	if v == nil {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", validationErrorf(ParamState, "must be a 2-letter state code, got %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if !statePattern.MatchString(s) {
		return "", validationErrorf(ParamState, "%q is not a 2-letter state code", s)
	}
	return strings.ToUpper(s), nil
}

func (r *Resolver) resolveDateRange(raw map[string]any) (string, string, error) {
	if v, ok := raw[ParamDaysBack]; ok {
		days, err := intValue(v)
		if err != nil {
			return "", "", validationErrorf(ParamDaysBack, "%s", err)
		}
		if days < 1 || days > maxDaysBack {
			return "", "", validationErrorf(ParamDaysBack, "must be between 1 and %d, got %d", maxDaysBack, days)
		}
		now := r.Now()
		return now.AddDate(0, 0, -days).Format(wireDateFormat), now.Format(wireDateFormat), nil
	}

	from, err := requiredDate(raw, ParamPostedFrom, r.Now().AddDate(0, 0, -30))
	if err != nil {
		return "", "", err
	}
	to, err := requiredDate(raw, ParamPostedTo, r.Now())
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

// requiredDate reformats an explicit date to the wire format, or falls back
// to the given default when the key is absent entirely.
func requiredDate(raw map[string]any, key string, fallback time.Time) (string, error) {
	v, ok := raw[key]
	if !ok {
		return fallback.Format(wireDateFormat), nil
	}
	s, isString := v.(string)
	if !isString {
		return "", validationErrorf(key, "must be a date string, got %T", v)
	}
	t, err := parseDate(s)
	if err != nil {
		return "", validationErrorf(key, "unparseable date %q", s)
	}
	return t.Format(wireDateFormat), nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", wireDateFormat, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func resolveLimit(raw map[string]any) (int, error) {
	v, ok := raw[ParamLimit]
	if !ok {
		return defaultLimit, nil
	}
	limit, err := intValue(v)
	if err != nil {
		return 0, validationErrorf(ParamLimit, "%s", err)
	}
	if limit < 1 || limit > maxLimit {
		return 0, validationErrorf(ParamLimit, "must be between 1 and %d, got %d", maxLimit, limit)
	}
	return limit, nil
}

func optionalString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, isString := v.(string)
	if !isString {
		return "", validationErrorf(key, "must be a string, got %T", v)
	}
	return s, nil
}

func optionalBool(raw map[string]any, key string) (bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, validationErrorf(key, "must be a boolean, got %T", v)
	}
	return b, nil
}

// stringSlice accepts []string or []any-of-strings, the two shapes a decoded
// JSON/YAML parameter bag can take.
func stringSlice(v any) ([]string, error) {
	switch typed := v.(type) {
	case []string:
		return append([]string(nil), typed...), nil
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("array element %v is %T, want string", item, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be an array of strings, got %T", v)
	}
}

// intValue accepts the numeric shapes a loose parameter bag produces:
// native ints, JSON float64s, and numeric strings.
func intValue(v any) (int, error) {
	switch typed := v.(type) {
	case int:
		return typed, nil
	case int64:
		return int(typed), nil
	case float64:
		if typed != float64(int(typed)) {
			return 0, fmt.Errorf("must be an integer, got %v", typed)
		}
		return int(typed), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", typed)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}
