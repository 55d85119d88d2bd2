package dtos

import (
	"time"

	"github.com/justsurfingit/agentice/internal/models"
)

// JobSearchRequest mirrors models.SearchCriteria. Fields left out of the
// body keep the values set by NewJobSearchRequest.
type JobSearchRequest struct {
	Keywords              string `json:"keywords" binding:"required"`
	Location              string `json:"location"`
	RemoteOnly            bool   `json:"remote_only"`
	MaxApplicationsPerDay int    `json:"max_applications_per_day" binding:"gte=1,lte=50"`
	SearchIndeed          bool   `json:"search_indeed"`
	SearchLinkedIn        bool   `json:"search_linkedin"`
	SearchGlassdoor       bool   `json:"search_glassdoor"`
}

func NewJobSearchRequest() JobSearchRequest {
	d := models.DefaultCriteria()
	return JobSearchRequest{
		MaxApplicationsPerDay: d.MaxApplicationsPerDay,
		SearchIndeed:          d.SearchIndeed,
		SearchLinkedIn:        d.SearchLinkedIn,
		SearchGlassdoor:       d.SearchGlassdoor,
	}
}

func (r JobSearchRequest) Criteria() models.SearchCriteria {
	return models.SearchCriteria{
		Keywords:              r.Keywords,
		Location:              r.Location,
		RemoteOnly:            r.RemoteOnly,
		MaxApplicationsPerDay: r.MaxApplicationsPerDay,
		SearchIndeed:          r.SearchIndeed,
		SearchLinkedIn:        r.SearchLinkedIn,
		SearchGlassdoor:       r.SearchGlassdoor,
	}
}

type ApplyRequest struct {
	JobURL         string `json:"job_url" binding:"required,url"`
	CompanyName    string `json:"company_name" binding:"required"`
	JobTitle       string `json:"job_title" binding:"required"`
	JobDescription string `json:"job_description" binding:"required"`
	AutoSubmit     bool   `json:"auto_submit"`
}

type ApprovalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Notes    string `json:"notes"`
}

type ApplicationStatusResponse struct {
	ApplicationID      string                   `json:"application_id"`
	Status             models.ApplicationStatus `json:"status"`
	SubmittedAt        *time.Time               `json:"submitted_at"`
	ConfirmationNumber string                   `json:"confirmation_number,omitempty"`
	AwaitingApproval   bool                     `json:"awaiting_approval"`
}

type StatsResponse struct {
	TotalApplications int64                              `json:"total_applications"`
	Submitted         int64                              `json:"submitted"`
	PendingApproval   int64                              `json:"pending_approval"`
	ByStatus          map[models.ApplicationStatus]int64 `json:"by_status"`
}

// ChatMessage is the inbound WebSocket frame.
type ChatMessage struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context"`
}

// ChatFrame is the outbound WebSocket frame.
type ChatFrame struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	IsTyping  *bool     `json:"is_typing,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
