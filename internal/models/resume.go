package models

import (
	"fmt"
	"strings"
)

// ResumeContent is the structured body of a resume.
type ResumeContent struct {
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone,omitempty"`
	Summary    string       `json:"summary"`
	Skills     []string     `json:"skills"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
}

type Experience struct {
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	Period     string   `json:"period"`
	Highlights []string `json:"highlights"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// ToText renders the resume as plain text for prompts.
func (r ResumeContent) ToText() string {
	var sb strings.Builder
	if r.Name != "" {
		sb.WriteString(r.Name + "\n")
	}
	if r.Email != "" {
		sb.WriteString(r.Email + "\n")
	}
	if r.Summary != "" {
		sb.WriteString("\nSUMMARY\n" + r.Summary + "\n")
	}
	if len(r.Skills) > 0 {
		sb.WriteString("\nSKILLS\n" + strings.Join(r.Skills, ", ") + "\n")
	}
	if len(r.Experience) > 0 {
		sb.WriteString("\nEXPERIENCE\n")
		for _, e := range r.Experience {
			fmt.Fprintf(&sb, "%s at %s (%s)\n", e.Title, e.Company, e.Period)
			for _, h := range e.Highlights {
				sb.WriteString("- " + h + "\n")
			}
		}
	}
	if len(r.Education) > 0 {
		sb.WriteString("\nEDUCATION\n")
		for _, e := range r.Education {
			fmt.Fprintf(&sb, "%s, %s %s\n", e.Degree, e.Institution, e.Year)
		}
	}
	return sb.String()
}

// ResumeVariant is the snapshot of the customized resume sent with an application.
type ResumeVariant struct {
	Base                 ResumeContent `json:"base"`
	OptimizedSummary     string        `json:"optimized_summary"`
	SkillsToEmphasize    []string      `json:"skills_to_emphasize"`
	ExperienceHighlights []string      `json:"experience_highlights"`
	Keywords             []string      `json:"keywords"`
	FilePath             string        `json:"file_path"`
}
