package sam

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/oakline/sam-radar/internal/models"
)

const (
	defaultTitle      = "Untitled"
	defaultNoticeType = "Unknown"
)

var cityStatePattern = regexp.MustCompile(`,\s*([A-Za-z]{2})\b`)

// normalizeRecord maps one raw upstream record into the canonical
// Opportunity shape.
func normalizeRecord(rec record) models.Opportunity {
	title := htmlToText(rec.Title)
	if title == "" {
		title = defaultTitle
	}
	noticeType := strings.TrimSpace(rec.Type)
	if noticeType == "" {
		noticeType = defaultNoticeType
	}

	setAside := rec.TypeOfSetAsideDescription
	if setAside == "" {
		setAside = rec.TypeOfSetAside
	}

	return models.Opportunity{
		NoticeID:           rec.NoticeID,
		SolicitationNumber: rec.SolicitationNumber,
		Title:              title,
		NoticeType:         noticeType,
		PostedDate:         normalizeDate(rec.PostedDate),
		ResponseDeadline:   normalizeDate(rec.ResponseDeadLine),
		NAICSCode:          rec.NAICSCode,
		PSCCode:            rec.ClassificationCode,
		StateCode:          stateFromRecord(rec),
		AgencyName:         agencyFromRecord(rec),
		SetAsideType:       setAside,
		SAMURL:             rec.UILink,
		LastModifiedDate:   rec.LastModifiedDate,
	}
}

// normalizeDate reduces the several upstream date shapes to YYYY-MM-DD.
// Unparseable input maps to "" rather than leaking the raw value.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"01/02/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// agencyFromRecord tries the candidate agency fields in priority order. The
// full parent path is the most descriptive when present; its segments are
// dot-separated and the leaf office is the last one.
func agencyFromRecord(rec record) string {
	if path := strings.TrimSpace(rec.FullParentPathName); path != "" {
		segments := strings.Split(path, ".")
		return htmlToText(segments[len(segments)-1])
	}
	if rec.Department != "" {
		return htmlToText(rec.Department)
	}
	return htmlToText(rec.SubTier)
}

// stateFromRecord prefers the structured place-of-performance state code,
// then the office address, then a "City, ST" parse of the free-text place
// name.
func stateFromRecord(rec record) string {
	if code := strings.TrimSpace(rec.PlaceOfPerformance.State.Code); code != "" {
		return strings.ToUpper(code)
	}
	if code := strings.TrimSpace(rec.OfficeAddress.State); len(code) == 2 {
		return strings.ToUpper(code)
	}
	return parseCityState(rec.PlaceOfPerformance.City.Name)
}

// parseCityState extracts the trailing 2-letter state from strings like
// "Colorado Springs, CO". Returns "" when no state is recognizable.
func parseCityState(s string) string {
	m := cityStatePattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// htmlToText strips markup and entities that occasionally leak into upstream
// free-text fields, collapsing whitespace.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
