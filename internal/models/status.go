package models

type ApplicationStatus string

const (
	ApplicationDraft           ApplicationStatus = "draft"
	ApplicationPendingApproval ApplicationStatus = "pending_approval"
	ApplicationApproved        ApplicationStatus = "approved"
	ApplicationRejected        ApplicationStatus = "rejected"
	ApplicationSubmitted       ApplicationStatus = "submitted"
	ApplicationUnderReview     ApplicationStatus = "under_review"
	ApplicationInterviewing    ApplicationStatus = "interviewing"
	ApplicationOffered         ApplicationStatus = "offered"
	ApplicationAccepted        ApplicationStatus = "accepted"
	ApplicationDeclined        ApplicationStatus = "declined"
	ApplicationFailed          ApplicationStatus = "failed"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft: {
		ApplicationPendingApproval, ApplicationApproved, ApplicationSubmitted,
		ApplicationRejected, ApplicationFailed,
	},
	ApplicationPendingApproval: {ApplicationApproved, ApplicationRejected, ApplicationFailed},
	ApplicationApproved:        {ApplicationSubmitted, ApplicationFailed},
	ApplicationSubmitted: {
		ApplicationUnderReview, ApplicationInterviewing, ApplicationOffered, ApplicationRejected,
	},
	ApplicationUnderReview:  {ApplicationInterviewing, ApplicationOffered, ApplicationRejected},
	ApplicationInterviewing: {ApplicationOffered, ApplicationRejected},
	ApplicationOffered:      {ApplicationAccepted, ApplicationDeclined, ApplicationRejected},
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationRejected, ApplicationAccepted, ApplicationDeclined, ApplicationFailed:
		return true
	}
	_, ok := applicationTransitions[s]
	return ok
}

// IsTerminal reports whether nothing may follow s.
func (s ApplicationStatus) IsTerminal() bool {
	return s.Valid() && len(applicationTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is a forward move.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsPostSubmission reports whether the application has left our hands.
func (s ApplicationStatus) IsPostSubmission() bool {
	switch s {
	case ApplicationSubmitted, ApplicationUnderReview, ApplicationInterviewing,
		ApplicationOffered, ApplicationAccepted, ApplicationDeclined:
		return true
	}
	return false
}

type OpportunityStatus string

const (
	OpportunityIdentified OpportunityStatus = "identified"
	OpportunityReviewing  OpportunityStatus = "reviewing"
	OpportunityApplying   OpportunityStatus = "applying"
	OpportunityApplied    OpportunityStatus = "applied"
	OpportunityRejected   OpportunityStatus = "rejected"
	OpportunityExpired    OpportunityStatus = "expired"
)

var opportunityTransitions = map[OpportunityStatus][]OpportunityStatus{
	OpportunityIdentified: {OpportunityReviewing, OpportunityApplying, OpportunityApplied, OpportunityRejected, OpportunityExpired},
	OpportunityReviewing:  {OpportunityApplying, OpportunityApplied, OpportunityRejected, OpportunityExpired},
	OpportunityApplying:   {OpportunityApplied, OpportunityRejected, OpportunityExpired},
	OpportunityApplied:    {OpportunityRejected, OpportunityExpired},
}

func (s OpportunityStatus) CanTransitionTo(next OpportunityStatus) bool {
	for _, allowed := range opportunityTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
