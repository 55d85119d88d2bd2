package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/justsurfingit/agentice/internal/models"
)

const coverLetterPrompt = `Write a cover letter for this application.

JOB:
Title: %s
Company: %s
Location: %s
Description: %s

CANDIDATE RESUME:
%s

Requirements:
- 250-400 words
- Address the hiring team at %s
- Reference two or three concrete achievements from the resume
- No placeholders such as [Your Name]; sign with the candidate's name
- Plain text only`

var ErrEmptyCoverLetter = errors.New("llm returned an empty cover letter")

func (s *System) GenerateCoverLetter(ctx context.Context, opp *models.Opportunity, resume models.ResumeContent) (string, error) {
	task := fmt.Sprintf(coverLetterPrompt, opp.Title, opp.Company, opp.Location,
		truncate(opp.Description, maxDescriptionInput), truncate(resume.ToText(), maxResumeInput), opp.Company)
	letter, err := s.ask(ctx, RoleWriter, task)
	if err != nil {
		return "", err
	}
	if letter == "" {
		return "", ErrEmptyCoverLetter
	}
	return letter, nil
}
