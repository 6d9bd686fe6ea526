package models

// QuerySpec is the fully-resolved, typed form of the loose parameter bag a
// caller hands to the pipeline. Resolution is deterministic for a fixed input
// and clock; the struct is treated as immutable after resolution.
type QuerySpec struct {
	NAICSCodes       []string       `json:"naics_codes"`
	PSCCodes         []string       `json:"psc_codes"`
	NoticeTypeLabels []string       `json:"notice_type_labels"`
	NoticeTypeCodes  []string       `json:"notice_type_codes"` // single-letter wire codes
	State            string         `json:"state"`             // 2-letter uppercase, "" means nationwide
	PostedFrom       string         `json:"posted_from"`       // MM/DD/YYYY wire format
	PostedTo         string         `json:"posted_to"`         // MM/DD/YYYY wire format
	Limit            int            `json:"limit"`
	Keywords         string         `json:"keywords"`
	BypassCache      bool           `json:"bypass_cache"`
	Metadata         map[string]any `json:"metadata"`
}
