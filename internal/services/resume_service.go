package services

import (
	"errors"
	"fmt"

	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResumeService struct {
	DB *gorm.DB
}

func NewResumeService(db *gorm.DB) *ResumeService {
	return &ResumeService{DB: db}
}

// CreateResume stores a resume. It becomes the current one unless
// IsCurrent is explicitly false.
func (s *ResumeService) CreateResume(userID string, req *dtos.CreateResumeRequest) (*models.Resume, error) {
	resume := &models.Resume{
		UserID:    userID,
		Title:     req.Title,
		DocURL:    req.DocURL,
		FilePath:  req.FilePath,
		Content:   datatypes.NewJSONType(req.Content),
		IsCurrent: req.IsCurrent == nil || *req.IsCurrent,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if resume.IsCurrent {
			if err := demoteCurrent(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(resume).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}
	return resume, nil
}

// SetCurrentResume makes resumeID the only current resume of the user.
func (s *ResumeService) SetCurrentResume(userID, resumeID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := demoteCurrent(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&models.Resume{}).
			Where("id = ? AND user_id = ?", resumeID, userID).
			Update("is_current", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *ResumeService) GetCurrentResume(userID string) (*models.Resume, error) {
	var resume models.Resume
	err := s.DB.Where("user_id = ? AND is_current = ?", userID, true).First(&resume).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentResume
		}
		return nil, err
	}
	return &resume, nil
}

func demoteCurrent(tx *gorm.DB, userID string) error {
	return tx.Model(&models.Resume{}).
		Where("user_id = ? AND is_current = ?", userID, true).
		Update("is_current", false).Error
}
