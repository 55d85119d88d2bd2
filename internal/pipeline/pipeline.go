package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/justsurfingit/agentice/internal/scraper"
	"github.com/justsurfingit/agentice/internal/services"
)

var (
	// ErrRunFailed is what callers see when a run dies unexpectedly.
	ErrRunFailed         = errors.New("job search run failed")
	ErrApplicationFailed = errors.New("application could not be completed")
	// ErrSubmissionFailed comes with the application, already closed as failed.
	ErrSubmissionFailed = errors.New("application submission failed")
)

// Agents is the LLM work the pipeline needs.
type Agents interface {
	AnalyzeFit(ctx context.Context, opp *models.Opportunity, resume models.ResumeContent) agents.FitAnalysis
	OptimizeResume(ctx context.Context, opp *models.Opportunity, resume models.ResumeContent) (agents.ResumeOptimization, error)
	GenerateCoverLetter(ctx context.Context, opp *models.Opportunity, resume models.ResumeContent) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, c models.SearchCriteria) []models.Opportunity
}

type Submitter interface {
	Submit(ctx context.Context, opp *models.Opportunity, app *models.Application) scraper.SubmissionResult
}

type Notifier interface {
	SendApprovalRequest(ctx context.Context, user *models.User, app *models.Application, opp *models.Opportunity)
	SendEmail(ctx context.Context, user *models.User, subject, body string)
	ScheduleReminder(ctx context.Context, userID, applicationID, message string, due time.Time) error
}

// Background runs work that outlives the request that started it. Go
// reports false when the work was refused and fn will never run.
type Background interface {
	Go(name string, fn func(ctx context.Context)) bool
}

// Deps are shared by every pipeline the factory builds. Only the store and
// the approval broker are shared state.
type Deps struct {
	Users         *services.UserService
	Resumes       *services.ResumeService
	Opportunities *services.OpportunityService
	Applications  *services.ApplicationService
	Approvals     *services.ApprovalBroker
	Agents        Agents
	Searcher      Searcher
	Submitter     Submitter
	Notifier      Notifier
	Background    Background
}

type Settings struct {
	ApprovalTimeout       time.Duration
	FollowupDays          []int
	MaxApplicationsPerDay int
}

func SettingsFrom(cfg config.PipelineConfig) Settings {
	return Settings{
		ApprovalTimeout:       cfg.ApprovalTimeout,
		FollowupDays:          cfg.FollowupDays,
		MaxApplicationsPerDay: cfg.MaxApplicationsPerDay,
	}
}

// Factory builds a pipeline per user.
type Factory struct {
	deps     Deps
	settings Settings
}

func NewFactory(deps Deps, settings Settings) *Factory {
	return &Factory{deps: deps, settings: settings}
}

func (f *Factory) ForUser(userID string) *Pipeline {
	return &Pipeline{
		userID:    userID,
		deps:      f.deps,
		settings:  f.settings,
		now:       func() time.Time { return time.Now().UTC() },
		logPrefix: fmt.Sprintf("[Pipeline user=%s]", shortID(userID)),
	}
}

// Pipeline is one user's search -> rank -> customize -> approve -> submit
// -> follow-up flow. Runs are sequential.
type Pipeline struct {
	userID    string
	deps      Deps
	settings  Settings
	now       func() time.Time
	logPrefix string
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
