package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email            string         `gorm:"uniqueIndex;not null" json:"email"`
	Name             string         `json:"name"`
	Timezone         string         `gorm:"default:'UTC'" json:"timezone"`
	Preferences      datatypes.JSON `json:"preferences"`
	AutoApplyEnabled bool           `gorm:"index" json:"auto_apply_enabled"`
	TelegramChatID   int64          `json:"telegram_chat_id,omitempty"`
	// Gmail history bookmark for inbox tracking.
	LastHistoryID uint64 `json:"-"`
}

// Criteria returns the stored search preferences layered over the defaults.
func (u *User) Criteria() SearchCriteria {
	c := DefaultCriteria()
	if len(u.Preferences) > 0 {
		_ = json.Unmarshal(u.Preferences, &c)
	}
	return c
}

type Resume struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    string                            `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Title     string                            `json:"title"`
	DocURL    string                            `json:"doc_url"`
	FilePath  string                            `json:"file_path"`
	Content   datatypes.JSONType[ResumeContent] `json:"content"`
	IsCurrent bool                              `gorm:"index" json:"is_current"`
}

type Opportunity struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID       string                      `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Source       string                      `gorm:"index" json:"source"`
	Title        string                      `gorm:"not null" json:"title"`
	Company      string                      `gorm:"index" json:"company"`
	Location     string                      `json:"location"`
	URL          string                      `json:"url"`
	Description  string                      `gorm:"type:text" json:"description"`
	Requirements datatypes.JSONSlice[string] `json:"requirements"`
	SalaryRange  string                      `json:"salary_range"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	FitScore     *float64                    `json:"fit_score"`
	FitAnalysis  datatypes.JSON              `json:"fit_analysis,omitempty"`
	Status       OpportunityStatus           `gorm:"type:varchar(20);default:'identified'" json:"status"`
	DiscoveredAt time.Time                   `json:"discovered_at"`
	ExpiresAt    *time.Time                  `json:"expires_at,omitempty"`
}

// Score is the fit score, zero when the opportunity was never scored.
func (o *Opportunity) Score() float64 {
	if o.FitScore == nil {
		return 0
	}
	return *o.FitScore
}

type Application struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        string       `gorm:"type:varchar(36);index;not null" json:"user_id"`
	OpportunityID string       `gorm:"type:varchar(36);index;not null" json:"opportunity_id"`
	Opportunity   *Opportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`
	ResumeID      string       `gorm:"type:varchar(36)" json:"resume_id"`

	ResumeVariant      datatypes.JSONType[ResumeVariant] `json:"resume_variant"`
	CoverLetter        string                            `gorm:"type:text" json:"cover_letter"`
	Status             ApplicationStatus                 `gorm:"type:varchar(20);index;default:'draft'" json:"status"`
	ConfirmationNumber string                            `json:"confirmation_number,omitempty"`
	SubmittedAt        *time.Time                        `json:"submitted_at"`
	ResponseAt         *time.Time                        `json:"response_at"`
	Notes              string                            `gorm:"type:text" json:"notes"`
}

// Reminder is a follow-up scheduled after a submission.
type Reminder struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID        string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	ApplicationID string     `gorm:"type:varchar(36);index;not null" json:"application_id"`
	Message       string     `json:"message"`
	DueAt         time.Time  `gorm:"index" json:"due_at"`
	SentAt        *time.Time `json:"sent_at"`
}

type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error        { newID(&u.ID); return nil }
func (r *Resume) BeforeCreate(*gorm.DB) error      { newID(&r.ID); return nil }
func (o *Opportunity) BeforeCreate(*gorm.DB) error { newID(&o.ID); return nil }
func (a *Application) BeforeCreate(*gorm.DB) error { newID(&a.ID); return nil }
func (r *Reminder) BeforeCreate(*gorm.DB) error    { newID(&r.ID); return nil }

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{}, &Resume{}, &Opportunity{}, &Application{}, &Reminder{}, &ProcessedEmail{},
	}
}
