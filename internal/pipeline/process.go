package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/metrics"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/justsurfingit/agentice/internal/scraper"
	"github.com/justsurfingit/agentice/internal/services"
	"gorm.io/datatypes"
)

// ManualJob is a posting the user wants to apply to directly.
type ManualJob struct {
	URL         string
	Company     string
	Title       string
	Description string
}

// CalculateFitScore rates opp against the resume in [0,1]. Without a resume
// there is nothing to compare, so the score is zero.
func (p *Pipeline) CalculateFitScore(ctx context.Context, opp *models.Opportunity, resume *models.Resume) (float64, agents.FitAnalysis) {
	if resume == nil {
		return 0, agents.DefaultFitAnalysis()
	}
	analysis := p.deps.Agents.AnalyzeFit(ctx, opp, resume.Content.Data())
	return analysis.FitScore(), analysis
}

// ApplyToSpecificJob stores job as a manual opportunity and processes it,
// blocking through the approval wait unless autoSubmit is set.
func (p *Pipeline) ApplyToSpecificJob(ctx context.Context, job ManualJob, autoSubmit bool) (*models.Application, error) {
	opp, err := p.saveManual(job)
	if err != nil {
		return nil, err
	}
	app := p.ProcessOpportunity(ctx, opp, autoSubmit)
	if app == nil {
		return nil, ErrApplicationFailed
	}
	return app, nil
}

// StartApplication is ApplyToSpecificJob for request handlers: materials are
// prepared and the approval request is sent before it returns, the wait and
// the submission continue in the background. A failed auto-submission returns
// the failed application together with ErrSubmissionFailed.
func (p *Pipeline) StartApplication(ctx context.Context, job ManualJob, autoSubmit bool) (*models.Application, error) {
	opp, err := p.saveManual(job)
	if err != nil {
		return nil, err
	}
	user, err := p.deps.Users.GetUser(p.userID)
	if err != nil {
		return nil, err
	}
	app, err := p.prepare(ctx, opp)
	if err != nil {
		return nil, err
	}

	if autoSubmit {
		if !p.submit(ctx, app, opp) {
			return app, fmt.Errorf("%w: %s", ErrSubmissionFailed, app.ID)
		}
		return app, nil
	}

	ticket, err := p.requestApproval(ctx, user, app, opp)
	if err != nil {
		return nil, err
	}
	snapshot := *app
	accepted := p.deps.Background.Go("approval "+app.ID, func(bg context.Context) {
		if p.awaitApproval(bg, ticket, app) {
			p.submit(bg, app, opp)
		}
	})
	if !accepted {
		// Nobody will wait; the decision goes through SubmitApproved or the reconciler.
		ticket.Close()
		log.Printf("⚠️ %s No background waiter for %s, left pending", p.logPrefix, app.ID)
	}
	return &snapshot, nil
}

// ProcessOpportunity prepares, approves and submits one application. It
// returns nil whenever the application does not end up submitted.
func (p *Pipeline) ProcessOpportunity(ctx context.Context, opp *models.Opportunity, autoSubmit bool) (app *models.Application) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ %s Panic while processing %s at %s: %v", p.logPrefix, opp.Title, opp.Company, r)
			app = nil
		}
	}()

	user, err := p.deps.Users.GetUser(p.userID)
	if err != nil {
		log.Printf("❌ %s Could not load user: %v", p.logPrefix, err)
		return nil
	}

	app, err = p.prepare(ctx, opp)
	if err != nil {
		log.Printf("❌ %s Could not prepare application for %s: %v", p.logPrefix, opp.Company, err)
		return nil
	}

	if !autoSubmit {
		ticket, err := p.requestApproval(ctx, user, app, opp)
		if err != nil {
			log.Printf("❌ %s Approval request failed for %s: %v", p.logPrefix, app.ID, err)
			return nil
		}
		if !p.awaitApproval(ctx, ticket, app) {
			return nil
		}
	}

	if !p.submit(ctx, app, opp) {
		return nil
	}
	return app
}

// SubmitApproved submits an application whose approval arrived while no
// pipeline run was waiting for it. A failed submission returns the failed
// application together with ErrSubmissionFailed.
func (p *Pipeline) SubmitApproved(ctx context.Context, applicationID string, notes string) (*models.Application, error) {
	app, err := p.deps.Applications.GetApplication(p.userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status == models.ApplicationPendingApproval {
		if err := p.deps.Applications.Transition(app, app.Status, models.ApplicationApproved, notesUpdate(notes)); err != nil {
			return nil, err
		}
		metrics.ApplicationsApproved.Inc()
	}
	if app.Status != models.ApplicationApproved {
		return nil, fmt.Errorf("%w: application is %s", services.ErrInvalidTransition, app.Status)
	}
	if app.Opportunity == nil {
		return nil, fmt.Errorf("application %s has no opportunity", app.ID)
	}

	if !p.submit(ctx, app, app.Opportunity) {
		return app, fmt.Errorf("%w: %s", ErrSubmissionFailed, app.ID)
	}
	return app, nil
}

func (p *Pipeline) saveManual(job ManualJob) (*models.Opportunity, error) {
	opp := &models.Opportunity{
		UserID:      p.userID,
		Source:      scraper.SourceManual,
		URL:         job.URL,
		Company:     job.Company,
		Title:       job.Title,
		Description: job.Description,
		Status:      models.OpportunityIdentified,
	}
	if err := p.deps.Opportunities.Save(opp); err != nil {
		return nil, err
	}
	return opp, nil
}

// prepare builds the tailored materials and stores the draft.
func (p *Pipeline) prepare(ctx context.Context, opp *models.Opportunity) (*models.Application, error) {
	resume, err := p.deps.Resumes.GetCurrentResume(p.userID)
	if err != nil {
		return nil, err
	}
	content := resume.Content.Data()

	optimized, err := p.deps.Agents.OptimizeResume(ctx, opp, content)
	if err != nil {
		return nil, fmt.Errorf("optimize resume: %w", err)
	}
	letter, err := p.deps.Agents.GenerateCoverLetter(ctx, opp, content)
	if err != nil {
		return nil, fmt.Errorf("cover letter: %w", err)
	}

	app := &models.Application{
		UserID:        p.userID,
		OpportunityID: opp.ID,
		ResumeID:      resume.ID,
		ResumeVariant: datatypes.NewJSONType(optimized.Variant(resume)),
		CoverLetter:   letter,
	}
	if err := p.deps.Applications.CreateDraft(app); err != nil {
		return nil, err
	}
	if err := p.deps.Opportunities.UpdateStatus(opp, models.OpportunityApplying); err != nil {
		log.Printf("⚠️ %s Opportunity %s status: %v", p.logPrefix, opp.ID, err)
	}
	log.Printf("📝 %s Draft %s ready for %s at %s", p.logPrefix, app.ID, opp.Title, opp.Company)
	return app, nil
}

// requestApproval registers the waiter before the status flips so an approval
// that races the notification is never lost.
func (p *Pipeline) requestApproval(ctx context.Context, user *models.User, app *models.Application, opp *models.Opportunity) (*services.ApprovalTicket, error) {
	ticket := p.deps.Approvals.Register(app.ID)
	if err := p.deps.Applications.Transition(app, models.ApplicationDraft, models.ApplicationPendingApproval, nil); err != nil {
		ticket.Close()
		return nil, err
	}
	p.deps.Notifier.SendApprovalRequest(ctx, user, app, opp)
	return ticket, nil
}

// awaitApproval reports whether the application may be submitted. Timeouts
// and rejections close the application as rejected; a cancelled ctx leaves it
// pending for the reconciler.
func (p *Pipeline) awaitApproval(ctx context.Context, ticket *services.ApprovalTicket, app *models.Application) bool {
	defer ticket.Close()

	log.Printf("⏳ %s Waiting up to %s for approval of %s", p.logPrefix, p.settings.ApprovalTimeout, app.ID)
	decision, ok := ticket.Wait(ctx, p.settings.ApprovalTimeout)
	if !ok {
		if ctx.Err() != nil {
			log.Printf("⚠️ %s Stopped waiting for %s: %v", p.logPrefix, app.ID, ctx.Err())
			return false
		}
		p.reject(app, "timeout", "approval timed out")
		return false
	}

	if !decision.Approved {
		note := decision.Notes
		if strings.TrimSpace(note) == "" {
			note = "rejected by user"
		}
		p.reject(app, "user", note)
		return false
	}

	if err := p.deps.Applications.Transition(app, models.ApplicationPendingApproval, models.ApplicationApproved, notesUpdate(decision.Notes)); err != nil {
		log.Printf("❌ %s Could not approve %s: %v", p.logPrefix, app.ID, err)
		return false
	}
	if decision.Notes != "" {
		app.Notes = decision.Notes
	}
	metrics.ApplicationsApproved.Inc()
	log.Printf("✅ %s Application %s approved", p.logPrefix, app.ID)
	return true
}

func (p *Pipeline) reject(app *models.Application, reason, note string) {
	if err := p.deps.Applications.Close(app, models.ApplicationRejected, note); err != nil {
		log.Printf("❌ %s Could not reject %s: %v", p.logPrefix, app.ID, err)
		return
	}
	metrics.ApplicationsRejected.WithLabelValues(reason).Inc()
	log.Printf("🚫 %s Application %s rejected: %s", p.logPrefix, app.ID, note)
}

// submit sends the application and records the outcome. Follow-up reminders
// are scheduled only for successful submissions.
func (p *Pipeline) submit(ctx context.Context, app *models.Application, opp *models.Opportunity) bool {
	result := p.deps.Submitter.Submit(ctx, opp, app)
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "submission failed"
		}
		if err := p.deps.Applications.Close(app, models.ApplicationFailed, reason); err != nil {
			log.Printf("❌ %s Could not mark %s failed: %v", p.logPrefix, app.ID, err)
		}
		log.Printf("❌ %s Submission to %s failed: %s", p.logPrefix, opp.Company, reason)
		return false
	}

	now := p.now()
	if err := p.deps.Applications.MarkSubmitted(app, result.ConfirmationNumber, now); err != nil {
		log.Printf("❌ %s Could not record submission of %s: %v", p.logPrefix, app.ID, err)
		return false
	}
	app.Opportunity = opp
	if err := p.deps.Opportunities.UpdateStatus(opp, models.OpportunityApplied); err != nil {
		log.Printf("⚠️ %s Opportunity %s status: %v", p.logPrefix, opp.ID, err)
	}
	metrics.ApplicationsSubmitted.Inc()
	log.Printf("🚀 %s Submitted %s to %s via %s %s", p.logPrefix, app.ID, opp.Company, result.Method, result.ConfirmationNumber)

	message := fmt.Sprintf("Follow up on application to %s", opp.Company)
	for _, days := range p.settings.FollowupDays {
		if err := p.deps.Notifier.ScheduleReminder(ctx, p.userID, app.ID, message, now.AddDate(0, 0, days)); err != nil {
			log.Printf("⚠️ %s Reminder at +%dd for %s: %v", p.logPrefix, days, app.ID, err)
		}
	}
	return true
}

func notesUpdate(notes string) map[string]interface{} {
	if notes == "" {
		return nil
	}
	return map[string]interface{}{"notes": notes}
}
