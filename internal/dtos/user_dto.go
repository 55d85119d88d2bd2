package dtos

import "github.com/justsurfingit/agentice/internal/models"

type CreateUserRequest struct {
	Email            string                 `json:"email" binding:"required,email"`
	Name             string                 `json:"name"`
	Timezone         string                 `json:"timezone"`
	AutoApplyEnabled bool                   `json:"auto_apply_enabled"`
	TelegramChatID   int64                  `json:"telegram_chat_id"`
	Preferences      *models.SearchCriteria `json:"preferences"`
}

type UpdatePreferencesRequest struct {
	AutoApplyEnabled *bool                 `json:"auto_apply_enabled"`
	Preferences      models.SearchCriteria `json:"preferences"`
}

type CreateResumeRequest struct {
	Title     string               `json:"title" binding:"required"`
	DocURL    string               `json:"doc_url"`
	FilePath  string               `json:"file_path"`
	Content   models.ResumeContent `json:"content"`
	IsCurrent *bool                `json:"is_current"` // Defaults to true
}
