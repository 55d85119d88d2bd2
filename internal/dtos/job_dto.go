package dtos

// JobExtractionRequest needs either the raw page or a URL to fetch it from.
type JobExtractionRequest struct {
	RawHTML string `json:"raw_html"`
	URL     string `json:"url"`
}

type OpportunityRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Title       string `json:"role_title" binding:"required"`
	JobLink     string `json:"job_link" binding:"required"`
	Description string `json:"description" binding:"required"`

	// Optional Fields
	Location     string   `json:"location"`
	SalaryRange  string   `json:"salary_range"`
	TechStack    []string `json:"tech_stack"`
	Requirements []string `json:"requirements"`
	Source       string   `json:"source"` // Defaults to "manual" if empty
}
