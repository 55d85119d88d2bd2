package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/models"
	"gorm.io/gorm"
)

type ApplicationService struct {
	DB *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{DB: db}
}

func (s *ApplicationService) CreateDraft(app *models.Application) error {
	app.Status = models.ApplicationDraft
	if err := s.DB.Create(app).Error; err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetApplication loads one of the user's applications with its opportunity.
func (s *ApplicationService) GetApplication(userID, id string) (*models.Application, error) {
	q := s.DB.Preload("Opportunity").Where("id = ?", id)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var app models.Application
	if err := q.First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (s *ApplicationService) ListApplications(userID string, status models.ApplicationStatus, limit int) ([]models.Application, error) {
	q := s.DB.Preload("Opportunity").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var apps []models.Application
	err := q.Order("created_at DESC").Find(&apps).Error
	return apps, err
}

// Transition moves app from `from` to `to` only if the row still holds `from`.
// extra columns are written in the same statement.
func (s *ApplicationService) Transition(app *models.Application, from, to models.ApplicationStatus, extra map[string]interface{}) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := s.DB.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: application %s is no longer %s", ErrStatusConflict, app.ID, from)
	}
	app.Status = to
	return nil
}

// MarkSubmitted records a successful submission.
func (s *ApplicationService) MarkSubmitted(app *models.Application, confirmation string, at time.Time) error {
	err := s.Transition(app, app.Status, models.ApplicationSubmitted, map[string]interface{}{
		"confirmation_number": confirmation,
		"submitted_at":        at,
	})
	if err != nil {
		return err
	}
	app.ConfirmationNumber = confirmation
	app.SubmittedAt = &at
	return nil
}

// Close moves an unsubmitted application to rejected or failed with a note.
func (s *ApplicationService) Close(app *models.Application, to models.ApplicationStatus, notes string) error {
	if err := s.Transition(app, app.Status, to, map[string]interface{}{"notes": notes}); err != nil {
		return err
	}
	app.Notes = notes
	return nil
}

// RecordResponse applies a status learned from the employer.
func (s *ApplicationService) RecordResponse(app *models.Application, to models.ApplicationStatus, note string, at time.Time) error {
	notes := app.Notes
	if note != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += at.Format("2006-01-02") + ": " + note
	}
	err := s.Transition(app, app.Status, to, map[string]interface{}{
		"response_at": at,
		"notes":       notes,
	})
	if err != nil {
		return err
	}
	app.ResponseAt = &at
	app.Notes = notes
	return nil
}

// ListAwaitingResponse returns submitted applications that can still change.
func (s *ApplicationService) ListAwaitingResponse(userID string) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Preload("Opportunity").
		Where("user_id = ? AND status IN ?", userID, []models.ApplicationStatus{
			models.ApplicationSubmitted, models.ApplicationUnderReview,
			models.ApplicationInterviewing, models.ApplicationOffered,
		}).
		Find(&apps).Error
	return apps, err
}

func (s *ApplicationService) Stats(userID string) (*dtos.StatsResponse, error) {
	var rows []struct {
		Status models.ApplicationStatus
		Count  int64
	}
	err := s.DB.Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &dtos.StatsResponse{ByStatus: map[models.ApplicationStatus]int64{}}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.TotalApplications += r.Count
		if r.Status.IsPostSubmission() {
			stats.Submitted += r.Count
		}
		if r.Status == models.ApplicationPendingApproval {
			stats.PendingApproval = r.Count
		}
	}
	return stats, nil
}

// ReconcileStale closes applications stuck in draft or pending_approval
// since before cutoff. Drafts become failed; pending approvals without a live
// waiter become rejected.
func (s *ApplicationService) ReconcileStale(cutoff time.Time, isWaiting func(id string) bool) (int, error) {
	var stuck []models.Application
	err := s.DB.Where("status IN ? AND updated_at < ?", []models.ApplicationStatus{
		models.ApplicationDraft, models.ApplicationPendingApproval,
	}, cutoff).Find(&stuck).Error
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range stuck {
		app := &stuck[i]
		if isWaiting != nil && isWaiting(app.ID) {
			continue
		}

		to, note := models.ApplicationFailed, "abandoned in draft"
		if app.Status == models.ApplicationPendingApproval {
			to, note = models.ApplicationRejected, "approval expired"
		}
		if err := s.Close(app, to, note); err != nil {
			if errors.Is(err, ErrStatusConflict) {
				continue
			}
			return closed, err
		}
		log.Printf("🧹 Reconciled application %s -> %s", app.ID, to)
		closed++
	}
	return closed, nil
}
