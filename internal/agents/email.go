package agents

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
)

const emailStatusPrompt = `You are reading an email a candidate received about a job application at %s.

Decide what the email says about the application. Use exactly one status:
- UNDER_REVIEW: the application was received or is being reviewed
- INTERVIEW: the candidate is invited to an interview, assessment or call
- OFFER: the candidate received an offer
- REJECTED: the company is not moving forward
- NO_CHANGE: the email is about the application but does not change its state
- UNKNOWN: the email is not about this application

Return valid JSON only, no markdown:
{"status": "ONE_OF_THE_ABOVE", "summary": "one sentence"}

SUBJECT: %s

BODY:
%s`

const identifyPrompt = `A candidate applied to several roles at the same company. Decide which role this email is about.

ROLES:
%s
SUBJECT: %s

BODY:
%s

Answer with the role number only. Answer -1 if you cannot tell.`

type EmailStatus struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

const (
	EmailUnderReview = "UNDER_REVIEW"
	EmailInterview   = "INTERVIEW"
	EmailOffer       = "OFFER"
	EmailRejected    = "REJECTED"
	EmailNoChange    = "NO_CHANGE"
	EmailUnknown     = "UNKNOWN"
)

// AnalyzeEmailStatus classifies a recruiter email. Failures yield UNKNOWN.
func (s *System) AnalyzeEmailStatus(ctx context.Context, company, subject, body string) EmailStatus {
	raw, err := s.ask(ctx, RoleManager, fmt.Sprintf(emailStatusPrompt, company, subject, truncate(body, 6000)))
	if err != nil {
		log.Printf("⚠️ Email analysis failed: %v", err)
		return EmailStatus{Status: EmailUnknown}
	}

	var out EmailStatus
	if !decodeJSON("email_status", raw, &out) {
		return EmailStatus{Status: EmailUnknown}
	}
	out.Status = strings.ToUpper(strings.TrimSpace(out.Status))
	switch out.Status {
	case EmailUnderReview, EmailInterview, EmailOffer, EmailRejected, EmailNoChange:
	default:
		out.Status = EmailUnknown
	}
	return out
}

// IdentifyApplication picks which of titles an email refers to, or -1.
func (s *System) IdentifyApplication(ctx context.Context, titles []string, subject, body string) int {
	var list strings.Builder
	for i, t := range titles {
		fmt.Fprintf(&list, "%d. %s\n", i, t)
	}

	raw, err := s.ask(ctx, RoleManager, fmt.Sprintf(identifyPrompt, list.String(), subject, truncate(body, 4000)))
	if err != nil {
		log.Printf("⚠️ Role identification failed: %v", err)
		return -1
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return -1
	}
	idx, err := strconv.Atoi(strings.Trim(fields[0], ".:"))
	if err != nil || idx < 0 || idx >= len(titles) {
		return -1
	}
	return idx
}
