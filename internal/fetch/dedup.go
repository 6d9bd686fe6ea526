package fetch

import (
	"log/slog"

	"github.com/oakline/sam-radar/internal/models"
)

// dedupWarnThreshold is the duplicate fraction above which the merge emits a
// warning that the queried codes overlap too much.
const dedupWarnThreshold = 0.20

// Deduplicator merges per-code result sets into one list keyed by noticeId.
type Deduplicator struct {
	Logger *slog.Logger
}

func NewDeduplicator(logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{Logger: logger}
}

// Merge combines all successful per-code results. Identity is noticeId; a
// record with no noticeId is never deduplicated, even against another empty
// identity, because absence of identity must not cause silent data loss. When two
// records share an identity the one with the greater lastModifiedDate wins
// (the fixed format makes string compare sufficient); a record that has a
// lastModifiedDate beats one that doesn't; otherwise the first seen stays.
// Survivors keep their first-seen position, and sourceCode reflects the
// surviving copy's origin.
func (d *Deduplicator) Merge(results []models.FetchResult) models.MergedResult {
	merged := models.MergedResult{
		Opportunities: []models.Opportunity{},
		CodesQueried:  len(results),
	}
	indexByID := make(map[string]int)

	for _, res := range results {
		if !res.Success {
			merged.CodesFailed = append(merged.CodesFailed, res.Code)
			continue
		}
		merged.CodesSucceeded++

		for _, opp := range res.Opportunities {
			opp.SourceCode = res.Code
			merged.CountBeforeDedup++

			if opp.NoticeID == "" {
				merged.Opportunities = append(merged.Opportunities, opp)
				continue
			}

			idx, seen := indexByID[opp.NoticeID]
			if !seen {
				indexByID[opp.NoticeID] = len(merged.Opportunities)
				merged.Opportunities = append(merged.Opportunities, opp)
				continue
			}
			if preferIncoming(merged.Opportunities[idx], opp) {
				merged.Opportunities[idx] = opp
			}
		}
	}

	merged.TotalAfterDedup = len(merged.Opportunities)
	merged.DuplicatesRemoved = merged.CountBeforeDedup - merged.TotalAfterDedup

	if merged.CountBeforeDedup > 0 {
		rate := float64(merged.DuplicatesRemoved) / float64(merged.CountBeforeDedup)
		if rate > dedupWarnThreshold {
			d.Logger.Warn("high duplicate rate across classification codes",
				"duplicate_rate", formatPercent(rate*100),
				"duplicates_removed", merged.DuplicatesRemoved,
				"count_before_dedup", merged.CountBeforeDedup,
				"suggestion", "classification codes may overlap too much - consider narrowing the code list")
		}
	}

	return merged
}

// preferIncoming decides whether the incoming duplicate replaces the kept
// copy in place.
func preferIncoming(kept, incoming models.Opportunity) bool {
	if incoming.LastModifiedDate == "" {
		return false
	}
	if kept.LastModifiedDate == "" {
		return true
	}
	return incoming.LastModifiedDate > kept.LastModifiedDate
}

// Stats exposes the merge figures as rounded percentages for telemetry
// consumers.
func (d *Deduplicator) Stats(merged models.MergedResult) map[string]any {
	rate := 0.0
	if merged.CountBeforeDedup > 0 {
		rate = float64(merged.DuplicatesRemoved) / float64(merged.CountBeforeDedup) * 100
	}
	return map[string]any{
		"countBeforeDedup":  merged.CountBeforeDedup,
		"totalAfterDedup":   merged.TotalAfterDedup,
		"duplicatesRemoved": merged.DuplicatesRemoved,
		"deduplicationRate": formatPercent(rate),
		"codesQueried":      merged.CodesQueried,
		"codesSucceeded":    merged.CodesSucceeded,
		"codesFailed":       len(merged.CodesFailed),
	}
}
