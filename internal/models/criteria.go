package models

// SearchCriteria is what a user searches for; it is also the shape of
// User.Preferences.
type SearchCriteria struct {
	Keywords              string `json:"keywords"`
	Location              string `json:"location"`
	RemoteOnly            bool   `json:"remote_only"`
	MaxApplicationsPerDay int    `json:"max_applications_per_day"`
	SearchIndeed          bool   `json:"search_indeed"`
	SearchLinkedIn        bool   `json:"search_linkedin"`
	SearchGlassdoor       bool   `json:"search_glassdoor"`
}

func DefaultCriteria() SearchCriteria {
	return SearchCriteria{
		MaxApplicationsPerDay: 10,
		SearchIndeed:          true,
		SearchLinkedIn:        true,
	}
}
