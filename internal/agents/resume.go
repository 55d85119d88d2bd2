package agents

import (
	"context"
	"fmt"

	"github.com/justsurfingit/agentice/internal/models"
)

const optimizePrompt = `Tailor the candidate's resume for the job below.

JOB:
Title: %s
Company: %s
Description: %s

CURRENT RESUME:
%s

Return valid JSON only, no markdown:
{
    "optimized_summary": "a 2-3 sentence professional summary aimed at this job",
    "skills_to_emphasize": ["skills from the resume most relevant to the job"],
    "experience_highlights": ["rewritten bullet points from the resume's real experience"],
    "keywords": ["ATS keywords from the job description the resume should contain"]
}`

type ResumeOptimization struct {
	OptimizedSummary     string   `json:"optimized_summary"`
	SkillsToEmphasize    []string `json:"skills_to_emphasize"`
	ExperienceHighlights []string `json:"experience_highlights"`
	Keywords             []string `json:"keywords"`
}

// Variant snapshots the optimization together with the resume it was made from.
func (o ResumeOptimization) Variant(resume *models.Resume) models.ResumeVariant {
	return models.ResumeVariant{
		Base:                 resume.Content.Data(),
		OptimizedSummary:     o.OptimizedSummary,
		SkillsToEmphasize:    orEmpty(o.SkillsToEmphasize),
		ExperienceHighlights: orEmpty(o.ExperienceHighlights),
		Keywords:             orEmpty(o.Keywords),
		FilePath:             resume.FilePath,
	}
}

// OptimizeResume returns an error only when the LLM call itself fails.
// An unparseable answer falls back to the unmodified resume summary.
func (s *System) OptimizeResume(ctx context.Context, opp *models.Opportunity, resume models.ResumeContent) (ResumeOptimization, error) {
	task := fmt.Sprintf(optimizePrompt, opp.Title, opp.Company, truncate(opp.Description, maxDescriptionInput), truncate(resume.ToText(), maxResumeInput))
	raw, err := s.ask(ctx, RoleOptimizer, task)
	if err != nil {
		return ResumeOptimization{}, err
	}

	var out ResumeOptimization
	if !decodeJSON("resume_optimization", raw, &out) {
		return ResumeOptimization{
			OptimizedSummary:     resume.Summary,
			SkillsToEmphasize:    orEmpty(resume.Skills),
			ExperienceHighlights: []string{},
			Keywords:             []string{},
		}, nil
	}
	return out, nil
}
