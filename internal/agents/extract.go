package agents

import (
	"context"
	"errors"
	"fmt"
)

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the following fields strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company_name": "Name of the company (e.g., Google, StartupInc)",
    "role_title": "Job title (e.g., Senior Backend Engineer)",
    "location": "Job location or 'Remote'",
    "description": "A clean summary of the job. Focus on Responsibilities and Requirements. Remove HTML tags.",
    "requirements": ["Array", "of", "stated", "requirements"],
    "tech_stack": ["Array", "of", "technologies", "mentioned", "e.g., Go, React, AWS"],
    "salary_range": "The salary string if explicitly mentioned (e.g., '$100k - $150k'), otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

const maxExtractionInput = 20000

type JobExtraction struct {
	CompanyName  string   `json:"company_name"`
	Title        string   `json:"role_title"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	TechStack    []string `json:"tech_stack"`
	SalaryRange  string   `json:"salary_range"`
}

var ErrExtractionFailed = errors.New("could not extract job details")

// ExtractJobDetails turns a raw job page into structured fields.
func (s *System) ExtractJobDetails(ctx context.Context, rawHTML string) (JobExtraction, error) {
	raw, err := s.ask(ctx, RoleResearcher, fmt.Sprintf(jobExtractionPrompt, truncate(rawHTML, maxExtractionInput)))
	if err != nil {
		return JobExtraction{}, err
	}

	var out JobExtraction
	if !decodeJSON("job_extraction", raw, &out) {
		return JobExtraction{}, ErrExtractionFailed
	}
	out.Requirements = orEmpty(out.Requirements)
	out.TechStack = orEmpty(out.TechStack)
	return out, nil
}
