package models

// Opportunity is the normalized view of a single SAM.gov contract
// opportunity. Records are built once by the API client mapping and are not
// mutated afterwards, except for SourceCode which the merge step stamps with
// the classification code whose query produced the kept copy.
type Opportunity struct {
	NoticeID           string `json:"notice_id"`
	SolicitationNumber string `json:"solicitation_number"`
	Title              string `json:"title"`
	NoticeType         string `json:"notice_type"`
	PostedDate         string `json:"posted_date"`        // YYYY-MM-DD or ""
	ResponseDeadline   string `json:"response_deadline"`  // YYYY-MM-DD or ""
	NAICSCode          string `json:"naics_code"`
	PSCCode            string `json:"psc_code"`
	StateCode          string `json:"state_code"`
	AgencyName         string `json:"agency_name"`
	SetAsideType       string `json:"set_aside_type"`
	SAMURL             string `json:"sam_url"`
	LastModifiedDate   string `json:"last_modified_date"` // raw upstream value, dedup tie-break only
	SourceCode         string `json:"source_code"`
}
