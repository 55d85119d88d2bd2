package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/justsurfingit/agentice/internal/models"
	"google.golang.org/api/gmail/v1"
	"gorm.io/gorm"
)

// Channel delivers a message to a user.
type Channel interface {
	Name() string
	Send(ctx context.Context, user *models.User, subject, body string) error
}

// NotificationService fans messages out to every channel. Delivery failures
// are logged and never returned to the caller.
type NotificationService struct {
	DB       *gorm.DB
	Channels []Channel
}

func NewNotificationService(db *gorm.DB, channels ...Channel) *NotificationService {
	if len(channels) == 0 {
		channels = []Channel{LogChannel{}}
	}
	return &NotificationService{DB: db, Channels: channels}
}

func (s *NotificationService) Notify(ctx context.Context, user *models.User, subject, body string) {
	for _, ch := range s.Channels {
		if err := ch.Send(ctx, user, subject, body); err != nil {
			log.Printf("⚠️ Notification via %s to %s failed: %v", ch.Name(), user.Email, err)
		}
	}
}

func (s *NotificationService) SendApprovalRequest(ctx context.Context, user *models.User, app *models.Application, opp *models.Opportunity) {
	subject := fmt.Sprintf("Review and approve application to %s", opp.Company)
	body := fmt.Sprintf("%s\n\nRole: %s\nLocation: %s\nLink: %s\n\nApplication ID: %s\nApprove or reject it with POST /api/v1/applications/%s/approve.",
		subject, opp.Title, opp.Location, opp.URL, app.ID, app.ID)
	s.Notify(ctx, user, subject, body)
}

func (s *NotificationService) SendEmail(ctx context.Context, user *models.User, subject, body string) {
	s.Notify(ctx, user, subject, body)
}

// ScheduleReminder stores a follow-up to be sent once due passes.
func (s *NotificationService) ScheduleReminder(ctx context.Context, userID, applicationID, message string, due time.Time) error {
	r := &models.Reminder{
		UserID:        userID,
		ApplicationID: applicationID,
		Message:       message,
		DueAt:         due,
	}
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	return nil
}

// DispatchDueReminders sends every unsent reminder due at or before now.
func (s *NotificationService) DispatchDueReminders(ctx context.Context, now time.Time) (int, error) {
	var due []models.Reminder
	err := s.DB.WithContext(ctx).
		Where("sent_at IS NULL AND due_at <= ?", now).
		Order("due_at").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		r := &due[i]
		var user models.User
		if err := s.DB.WithContext(ctx).First(&user, "id = ?", r.UserID).Error; err != nil {
			log.Printf("⚠️ Reminder %s: user %s not found: %v", r.ID, r.UserID, err)
			continue
		}
		s.Notify(ctx, &user, r.Message, r.Message+"\n\nApplication ID: "+r.ApplicationID)

		if err := s.DB.WithContext(ctx).Model(r).Update("sent_at", now).Error; err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// LogChannel writes notifications to the process log.
type LogChannel struct{}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Send(_ context.Context, user *models.User, subject, _ string) error {
	log.Printf("🔔 [%s] %s", user.Email, subject)
	return nil
}

// TelegramChannel sends to the user's chat, or the default chat when the
// user has none.
type TelegramChannel struct {
	bot           *tgbotapi.BotAPI
	defaultChatID int64
}

func NewTelegramChannel(token string, defaultChatID int64) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &TelegramChannel{bot: bot, defaultChatID: defaultChatID}, nil
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Send(_ context.Context, user *models.User, subject, body string) error {
	chatID := user.TelegramChatID
	if chatID == 0 {
		chatID = t.defaultChatID
	}
	if chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🔔 %s\n\n%s", subject, body))
	_, err := t.bot.Send(msg)
	return err
}

// GmailChannel sends mail from the authorized Gmail account.
type GmailChannel struct {
	client *gmail.Service
}

func NewGmailChannel(client *gmail.Service) *GmailChannel {
	return &GmailChannel{client: client}
}

func (g *GmailChannel) Name() string { return "gmail" }

func (g *GmailChannel) Send(ctx context.Context, user *models.User, subject, body string) error {
	if user.Email == "" {
		return errors.New("user has no email")
	}
	msg := &gmail.Message{Raw: encodeMIME(user.Email, subject, body)}
	_, err := g.client.Users.Messages.Send("me", msg).Context(ctx).Do()
	return err
}

func encodeMIME(to, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	sb.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(sb.String()))
}
