package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/justsurfingit/agentice/internal/metrics"
)

// Completer turns a prompt into text. Implemented by the LLM providers.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Role string

const (
	RoleResearcher Role = "job_researcher"
	RoleOptimizer  Role = "resume_optimizer"
	RoleWriter     Role = "cover_letter_writer"
	RoleManager    Role = "application_manager"
)

var rolePrompts = map[Role]string{
	RoleResearcher: `You are JobResearcher, an expert job market researcher. You analyze job postings against a candidate's background, identify required and missing skills, and judge how well the candidate fits.`,
	RoleOptimizer:  `You are ResumeOptimizer, an expert resume writer. You tailor resumes to a specific job using the job's keywords while staying truthful to the candidate's experience. Never invent experience.`,
	RoleWriter:     `You are CoverLetterWriter, an expert at writing compelling, personalized cover letters. Letters are 250-400 words, professional, specific to the company and role, and grounded in the candidate's real experience.`,
	RoleManager:    `You are ApplicationManager, the coordinator of a job search assistant. You track applications, answer questions about the job search, and give clear, practical advice.`,
}

// System runs role-flavored prompts over one completion backend.
// It holds no per-user state; callers create one and pass it where needed.
type System struct {
	llm Completer
}

func New(llm Completer) *System {
	return &System{llm: llm}
}

func (s *System) ask(ctx context.Context, role Role, task string) (string, error) {
	prompt := rolePrompts[role] + "\n\n" + task
	resp, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", role, err)
	}
	return strings.TrimSpace(resp), nil
}

// decodeJSON pulls the JSON object out of an LLM response and decodes it.
// On failure the raw response is logged and the fallback counter bumped.
func decodeJSON(task, raw string, v interface{}) bool {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		log.Printf("⚠️ %s: no JSON object in LLM response. Raw: %s", task, raw)
		metrics.LLMParseFallbacks.WithLabelValues(task).Inc()
		return false
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		log.Printf("⚠️ %s: JSON parse error: %v. Raw: %s", task, err, raw)
		metrics.LLMParseFallbacks.WithLabelValues(task).Inc()
		return false
	}
	return true
}

// extractJSON strips markdown fences and returns the text between the first
// '{' and the last '}'.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// Per-field input limits in bytes. The finished prompt must stay under the
// provider's prompt limit with the output schema intact.
const (
	maxDescriptionInput = 8000
	maxResumeInput      = 8000
)

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
