package sam

// searchResponse matches the opportunities v2 search payload. An absent
// opportunitiesData array is an empty result set, not an error.
type searchResponse struct {
	TotalRecords      int      `json:"totalRecords"`
	OpportunitiesData []record `json:"opportunitiesData"`
}

// record captures the upstream fields this pipeline consumes. Unknown fields
// are dropped at decode time.
type record struct {
	NoticeID                  string             `json:"noticeId"`
	SolicitationNumber        string             `json:"solicitationNumber"`
	Title                     string             `json:"title"`
	Type                      string             `json:"type"`
	PostedDate                string             `json:"postedDate"`
	ResponseDeadLine          string             `json:"responseDeadLine"`
	NAICSCode                 string             `json:"naicsCode"`
	ClassificationCode        string             `json:"classificationCode"`
	FullParentPathName        string             `json:"fullParentPathName"`
	Department                string             `json:"department"`
	SubTier                   string             `json:"subTier"`
	TypeOfSetAsideDescription string             `json:"typeOfSetAsideDescription"`
	TypeOfSetAside            string             `json:"typeOfSetAside"`
	UILink                    string             `json:"uiLink"`
	LastModifiedDate          string             `json:"lastModifiedDate"`
	PlaceOfPerformance        placeOfPerformance `json:"placeOfPerformance"`
	OfficeAddress             officeAddress      `json:"officeAddress"`
}

type placeOfPerformance struct {
	City  namedPlace `json:"city"`
	State codedPlace `json:"state"`
}

type namedPlace struct {
	Name string `json:"name"`
}

type codedPlace struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type officeAddress struct {
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zipcode"`
}
