package fetch

import (
	"encoding/json"

	"github.com/oakline/sam-radar/internal/models"
)

// Run statuses derived from per-code success/failure counts.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailure        = "failure"
)

// ErrorDetail is the normalized shape of one enumerated failure.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the sole structure handed back to callers. A failure envelope
// carries no opportunities at all, distinguishing "no data" from a success
// with an empty list.
type Envelope struct {
	Status           string
	Opportunities    []models.Opportunity
	HasOpportunities bool
	Metadata         map[string]any
	Errors           []ErrorDetail
	Error            string
}

// MarshalJSON renders the envelope with the opportunities key present only
// when the run produced a data section (possibly empty), and errors/error
// only when set.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"status":   e.Status,
		"metadata": e.Metadata,
	}
	if e.HasOpportunities {
		opportunities := e.Opportunities
		if opportunities == nil {
			opportunities = []models.Opportunity{}
		}
		out["opportunities"] = opportunities
	}
	if len(e.Errors) > 0 {
		out["errors"] = e.Errors
	}
	if e.Error != "" {
		out["error"] = e.Error
	}
	return json.Marshal(out)
}

func (e Envelope) IsSuccess() bool        { return e.Status == StatusSuccess }
func (e Envelope) IsPartialSuccess() bool { return e.Status == StatusPartialSuccess }
func (e Envelope) IsFailure() bool        { return e.Status == StatusFailure }

func (e Envelope) GetOpportunities() []models.Opportunity {
	if e.Opportunities == nil {
		return []models.Opportunity{}
	}
	return e.Opportunities
}

func (e Envelope) GetMetadata() map[string]any {
	if e.Metadata == nil {
		return map[string]any{}
	}
	return e.Metadata
}

func (e Envelope) GetErrors() []ErrorDetail {
	if e.Errors == nil {
		return []ErrorDetail{}
	}
	return e.Errors
}

// Success builds a success envelope and stamps totalCount.
func Success(opportunities []models.Opportunity, metadata map[string]any) Envelope {
	if opportunities == nil {
		opportunities = []models.Opportunity{}
	}
	metadata = cloneMetadata(metadata)
	metadata["totalCount"] = len(opportunities)
	return Envelope{
		Status:           StatusSuccess,
		Opportunities:    opportunities,
		HasOpportunities: true,
		Metadata:         metadata,
	}
}

// PartialSuccess builds an envelope carrying both usable opportunities and
// the enumerated failures.
func PartialSuccess(opportunities []models.Opportunity, metadata map[string]any, errs []any) Envelope {
	if opportunities == nil {
		opportunities = []models.Opportunity{}
	}
	details := normalizeErrors(errs)
	metadata = cloneMetadata(metadata)
	metadata["totalCount"] = len(opportunities)
	metadata["errorsCount"] = len(details)
	return Envelope{
		Status:           StatusPartialSuccess,
		Opportunities:    opportunities,
		HasOpportunities: true,
		Metadata:         metadata,
		Errors:           details,
	}
}

// Failure builds an envelope with no data section at all. The primary
// message leads the errors list, followed by any per-code failures.
func Failure(primaryMessage string, metadata map[string]any, extraErrors []any) Envelope {
	details := append([]ErrorDetail{{Message: primaryMessage}}, normalizeErrors(extraErrors)...)
	return Envelope{
		Status:   StatusFailure,
		Metadata: cloneMetadata(metadata),
		Errors:   details,
		Error:    primaryMessage,
	}
}

// DetermineStatus derives the run status purely from per-code counts.
func DetermineStatus(succeeded, failed int) string {
	switch {
	case failed == 0:
		return StatusSuccess
	case succeeded == 0:
		return StatusFailure
	default:
		return StatusPartialSuccess
	}
}

// Build auto-selects a constructor from metadata.naicsSucceeded and
// metadata.naicsFailed, read with 0 defaults. Absent counts therefore
// resolve to a success envelope; callers that want failure semantics must
// populate the metadata.
func Build(opportunities []models.Opportunity, metadata map[string]any, errs []any) Envelope {
	succeeded := metadataCount(metadata, "naicsSucceeded")
	failed := metadataCount(metadata, "naicsFailed")
	switch DetermineStatus(succeeded, failed) {
	case StatusFailure:
		return Failure("All classification code queries failed", metadata, errs)
	case StatusPartialSuccess:
		return PartialSuccess(opportunities, metadata, errs)
	default:
		return Success(opportunities, metadata)
	}
}

// ExtractErrors derives the enumerable error list from failed per-code
// results, in input order.
func ExtractErrors(results []models.FetchResult) []any {
	var errs []any
	for _, r := range results {
		if r.Success {
			continue
		}
		errs = append(errs, ErrorDetail{
			Message: r.Error,
			Code:    r.Code,
			Type:    r.ErrorType,
		})
	}
	return errs
}

// AddWarnings merges analyzer warnings into metadata; a no-op for an empty
// list.
func AddWarnings(metadata map[string]any, warnings []string) map[string]any {
	if len(warnings) == 0 {
		return metadata
	}
	metadata = cloneMetadata(metadata)
	metadata["warnings"] = warnings
	return metadata
}

// AddDeduplicationStats merges dedup stats into metadata; a no-op when the
// stats are empty.
func AddDeduplicationStats(metadata map[string]any, stats map[string]any) map[string]any {
	if len(stats) == 0 {
		return metadata
	}
	metadata = cloneMetadata(metadata)
	metadata["deduplication"] = stats
	return metadata
}

// normalizeErrors accepts raw strings, ErrorDetails, and loosely-shaped maps
// ("error" is a legacy alias for "message"); a totally empty entry still
// yields a message.
func normalizeErrors(errs []any) []ErrorDetail {
	out := make([]ErrorDetail, 0, len(errs))
	for _, e := range errs {
		switch typed := e.(type) {
		case string:
			out = append(out, ErrorDetail{Message: typed})
		case ErrorDetail:
			if typed.Message == "" {
				typed.Message = "Unknown error"
			}
			out = append(out, typed)
		case map[string]any:
			detail := ErrorDetail{}
			if msg, ok := typed["message"].(string); ok && msg != "" {
				detail.Message = msg
			} else if msg, ok := typed["error"].(string); ok && msg != "" {
				detail.Message = msg
			} else {
				detail.Message = "Unknown error"
			}
			if code, ok := typed["code"].(string); ok {
				detail.Code = code
			}
			if errType, ok := typed["type"].(string); ok {
				detail.Type = errType
			}
			if details, ok := typed["details"]; ok {
				detail.Details = details
			}
			out = append(out, detail)
		default:
			out = append(out, ErrorDetail{Message: "Unknown error"})
		}
	}
	return out
}

func metadataCount(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	n, err := intValue(metadata[key])
	if err != nil {
		return 0
	}
	return n
}

// cloneMetadata copies the caller's map so envelope construction never
// mutates shared metadata.
func cloneMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
