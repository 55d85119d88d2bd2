package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OpportunityService struct {
	DB *gorm.DB
}

func NewOpportunityService(db *gorm.DB) *OpportunityService {
	return &OpportunityService{DB: db}
}

// CreateOpportunity stores a job the user found on their own.
func (s *OpportunityService) CreateOpportunity(userID string, req *dtos.OpportunityRequest) (*models.Opportunity, error) {
	source := req.Source
	if source == "" {
		source = "manual"
	}
	opp := &models.Opportunity{
		UserID:       userID,
		Source:       source,
		Title:        req.Title,
		Company:      req.CompanyName,
		Location:     req.Location,
		URL:          req.JobLink,
		Description:  req.Description,
		SalaryRange:  req.SalaryRange,
		Requirements: datatypes.JSONSlice[string](req.Requirements),
		Tags:         datatypes.JSONSlice[string](req.TechStack),
	}
	if err := s.Save(opp); err != nil {
		return nil, err
	}
	return opp, nil
}

// Save persists a new opportunity for opp.UserID.
func (s *OpportunityService) Save(opp *models.Opportunity) error {
	if opp.Status == "" {
		opp.Status = models.OpportunityIdentified
	}
	if opp.DiscoveredAt.IsZero() {
		opp.DiscoveredAt = time.Now().UTC()
	}
	if err := s.DB.Create(opp).Error; err != nil {
		return fmt.Errorf("save opportunity: %w", err)
	}
	return nil
}

func (s *OpportunityService) GetOpportunity(userID, id string) (*models.Opportunity, error) {
	var opp models.Opportunity
	if err := s.DB.First(&opp, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &opp, nil
}

func (s *OpportunityService) ListOpportunities(userID string, status models.OpportunityStatus, limit int) ([]models.Opportunity, error) {
	q := s.DB.Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var opps []models.Opportunity
	err := q.Order("discovered_at DESC").Find(&opps).Error
	return opps, err
}

// RecordFit stores the fit score and the analysis behind it.
func (s *OpportunityService) RecordFit(opp *models.Opportunity, score float64, analysis interface{}) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	opp.FitScore = &score
	opp.FitAnalysis = datatypes.JSON(raw)
	return s.DB.Model(opp).Updates(map[string]interface{}{
		"fit_score":    score,
		"fit_analysis": opp.FitAnalysis,
	}).Error
}

// UpdateStatus moves the opportunity forward. Backward moves are rejected.
func (s *OpportunityService) UpdateStatus(opp *models.Opportunity, to models.OpportunityStatus) error {
	from := opp.Status
	if from == to {
		return nil
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: opportunity %s -> %s", ErrInvalidTransition, from, to)
	}
	res := s.DB.Model(&models.Opportunity{}).
		Where("id = ? AND status = ?", opp.ID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	opp.Status = to
	return nil
}
