package services

import (
	"net/mail"
	"strings"

	"github.com/justsurfingit/agentice/internal/models"
)

type MatcherService struct {
	Applications *ApplicationService
}

func NewMatcherService(apps *ApplicationService) *MatcherService {
	return &MatcherService{Applications: apps}
}

// FindApplicationsFromEmail returns the user's open submitted applications
// at the company an email appears to come from. Empty when nothing matches.
func (s *MatcherService) FindApplicationsFromEmail(userID, subject, rawSender string) ([]models.Application, string) {
	// "Stripe Recruiting <jobs@stripe.com>" -> name="stripe recruiting", addr="jobs@stripe.com"
	parsedAddr, err := mail.ParseAddress(rawSender)
	senderName := ""
	senderAddr := ""
	if err == nil {
		senderName = strings.ToLower(parsedAddr.Name)
		senderAddr = strings.ToLower(parsedAddr.Address)
	} else {
		senderAddr = strings.ToLower(rawSender)
	}
	subjectLower := strings.ToLower(subject)

	domain := ""
	if parts := strings.Split(senderAddr, "@"); len(parts) == 2 {
		domain = parts[1]
	}

	apps, err := s.Applications.ListAwaitingResponse(userID)
	if err != nil {
		return nil, ""
	}

	byCompany := map[string][]models.Application{}
	var order []string
	for _, app := range apps {
		if app.Opportunity == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(app.Opportunity.Company))
		if _, seen := byCompany[name]; !seen {
			order = append(order, name)
		}
		byCompany[name] = append(byCompany[name], app)
	}

	for _, name := range order {
		// Very short names ("X", "Go") match everything.
		if len(name) < 3 {
			continue
		}
		if strings.Contains(subjectLower, name) ||
			(senderName != "" && strings.Contains(senderName, name)) ||
			(domain != "" && strings.Contains(domain, compact(name))) {
			matched := byCompany[name]
			return matched, matched[0].Opportunity.Company
		}
	}
	return nil, ""
}

// compact drops spaces so "Acme Corp" can match "acmecorp.com".
func compact(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
