package agents

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/justsurfingit/agentice/internal/models"
)

const fitPrompt = `Analyze how well this job opportunity matches the candidate's profile.

JOB OPPORTUNITY:
Title: %s
Company: %s
Location: %s
Description: %s

CANDIDATE RESUME:
%s

Consider:
- Skills match (required vs. candidate's skills)
- Experience level match
- Domain expertise
- Education requirements
- Location/remote preference

Score the match from 0 to 100, where:
- 100 = Perfect match
- 80-90 = Excellent match
- 60-70 = Good match
- 40-50 = Moderate match
- Below 40 = Poor match

Return valid JSON only, no markdown:
{
    "match_score": 0,
    "matching_skills": ["skills the candidate has that the job asks for"],
    "missing_skills": ["skills the job asks for that the candidate lacks"],
    "recommendation": "apply | maybe | skip",
    "reasoning": "one or two sentences"
}`

type Recommendation string

const (
	RecommendApply Recommendation = "apply"
	RecommendMaybe Recommendation = "maybe"
	RecommendSkip  Recommendation = "skip"
)

type FitAnalysis struct {
	MatchScore     float64        `json:"match_score"`
	MatchingSkills []string       `json:"matching_skills"`
	MissingSkills  []string       `json:"missing_skills"`
	Recommendation Recommendation `json:"recommendation"`
	Reasoning      string         `json:"reasoning,omitempty"`
}

// DefaultFitAnalysis is returned whenever the LLM answer cannot be used.
func DefaultFitAnalysis() FitAnalysis {
	return FitAnalysis{
		MatchScore:     0,
		MatchingSkills: []string{},
		MissingSkills:  []string{},
		Recommendation: RecommendSkip,
	}
}

// FitScore maps the 0-100 match score onto [0, 1].
func (f FitAnalysis) FitScore() float64 {
	switch {
	case f.MatchScore <= 0:
		return 0
	case f.MatchScore >= 100:
		return 1
	}
	return f.MatchScore / 100
}

// AnalyzeFit never fails: transport and parse errors yield DefaultFitAnalysis.
func (s *System) AnalyzeFit(ctx context.Context, opp *models.Opportunity, resume models.ResumeContent) FitAnalysis {
	task := fmt.Sprintf(fitPrompt, opp.Title, opp.Company, opp.Location, truncate(opp.Description, maxDescriptionInput), truncate(resume.ToText(), maxResumeInput))
	raw, err := s.ask(ctx, RoleResearcher, task)
	if err != nil {
		log.Printf("⚠️ Fit analysis failed for %q: %v", opp.Title, err)
		return DefaultFitAnalysis()
	}

	var fit FitAnalysis
	if !decodeJSON("fit_analysis", raw, &fit) {
		return DefaultFitAnalysis()
	}

	fit.Recommendation = Recommendation(strings.ToLower(strings.TrimSpace(string(fit.Recommendation))))
	switch fit.Recommendation {
	case RecommendApply, RecommendMaybe, RecommendSkip:
	default:
		log.Printf("⚠️ fit_analysis: unknown recommendation %q. Raw: %s", fit.Recommendation, raw)
		return DefaultFitAnalysis()
	}
	if fit.MatchScore < 0 {
		fit.MatchScore = 0
	}
	if fit.MatchScore > 100 {
		fit.MatchScore = 100
	}
	fit.MatchingSkills = orEmpty(fit.MatchingSkills)
	fit.MissingSkills = orEmpty(fit.MissingSkills)
	return fit
}
