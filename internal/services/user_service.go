package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) CreateUser(req *dtos.CreateUserRequest) (*models.User, error) {
	criteria := models.DefaultCriteria()
	if req.Preferences != nil {
		criteria = *req.Preferences
	}
	prefs, err := json.Marshal(criteria)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:            req.Email,
		Name:             req.Name,
		Timezone:         req.Timezone,
		AutoApplyEnabled: req.AutoApplyEnabled,
		TelegramChatID:   req.TelegramChatID,
		Preferences:      datatypes.JSON(prefs),
	}
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	if err := s.DB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdatePreferences(id string, req *dtos.UpdatePreferencesRequest) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	prefs, err := json.Marshal(req.Preferences)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"preferences": datatypes.JSON(prefs)}
	if req.AutoApplyEnabled != nil {
		updates["auto_apply_enabled"] = *req.AutoApplyEnabled
	}
	if err := s.DB.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return s.GetUser(id)
}

// SearchCriteria returns the user's stored criteria.
func (s *UserService) SearchCriteria(id string) (models.SearchCriteria, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return models.SearchCriteria{}, err
	}
	return user.Criteria(), nil
}

func (s *UserService) ListAutoApplyUsers() ([]models.User, error) {
	var users []models.User
	err := s.DB.Where("auto_apply_enabled = ?", true).Order("created_at").Find(&users).Error
	return users, err
}

// DeleteUser removes the user and everything the user owns in one transaction.
func (s *UserService) DeleteUser(id string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		owned := []interface{}{
			&models.Reminder{}, &models.Application{}, &models.Opportunity{}, &models.Resume{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete %T: %w", m, err)
			}
		}

		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		log.Printf("🗑️ Deleted user %s and owned records", id)
		return nil
	})
}
