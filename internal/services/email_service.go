package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/models"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"gorm.io/gorm"
)

// EmailAnalyzer reads recruiter mail.
type EmailAnalyzer interface {
	AnalyzeEmailStatus(ctx context.Context, company, subject, body string) agents.EmailStatus
	IdentifyApplication(ctx context.Context, titles []string, subject, body string) int
}

// EmailService watches the tracked user's inbox and moves submitted
// applications forward when employers reply.
type EmailService struct {
	DB           *gorm.DB
	Analyzer     EmailAnalyzer
	Matcher      *MatcherService
	Applications *ApplicationService
	GmailClient  *gmail.Service
	// Inbox owner. Empty means the oldest user.
	UserID string
}

func NewEmailService(db *gorm.DB, analyzer EmailAnalyzer, gmail *gmail.Service, matcher *MatcherService, apps *ApplicationService, userID string) *EmailService {
	return &EmailService{
		DB:           db,
		Analyzer:     analyzer,
		GmailClient:  gmail,
		Matcher:      matcher,
		Applications: apps,
		UserID:       userID,
	}
}

var emailStatusMap = map[string]models.ApplicationStatus{
	agents.EmailUnderReview: models.ApplicationUnderReview,
	agents.EmailInterview:   models.ApplicationInterviewing,
	agents.EmailOffer:       models.ApplicationOffered,
	agents.EmailRejected:    models.ApplicationRejected,
}

// SyncEmails runs one sync cycle.
func (s *EmailService) SyncEmails(parent context.Context) {
	if s.GmailClient == nil {
		log.Println("⚠️ Gmail Watcher disabled (no client). Check credentials.")
		return
	}

	// Prevent hanging forever (2 minute limit)
	ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	log.Println("📧 Email Watcher: Starting Sync Cycle...")

	user, err := s.inboxOwner()
	if err != nil {
		log.Printf("⚠️ Email Watcher: no inbox owner: %v", err)
		return
	}

	var messages []*gmail.Message
	var newHistoryID uint64

	if user.LastHistoryID == 0 {
		log.Println("🆕 First run detected. Running Full Bootstrap Sync...")
		messages, newHistoryID, err = s.performFullSync(ctx)
	} else {
		messages, newHistoryID, err = s.performIncrementalSync(ctx, user.LastHistoryID)

		// Google deleted old history
		if err != nil && isHistoryExpiredError(err) {
			log.Println("⚠️ History ID expired (too old). Falling back to Full Sync.")
			messages, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		log.Printf("❌ Sync failed: %v", err)
		return
	}

	if len(messages) == 0 {
		log.Println("✅ No new relevant emails found.")
		if newHistoryID > user.LastHistoryID {
			s.updateUserHistoryID(user.ID, newHistoryID)
		}
		return
	}

	log.Printf("📥 Processing %d candidate emails...", len(messages))

	for _, msg := range messages {
		var count int64
		s.DB.Model(&models.ProcessedEmail{}).Where("id = ?", msg.Id).Count(&count)
		if count > 0 {
			continue
		}

		s.ProcessMessage(ctx, user, msg)

		s.DB.Create(&models.ProcessedEmail{ID: msg.Id})
	}

	if newHistoryID > user.LastHistoryID {
		s.updateUserHistoryID(user.ID, newHistoryID)
		log.Printf("🔖 History updated to %d", newHistoryID)
	}
}

func (s *EmailService) inboxOwner() (*models.User, error) {
	var user models.User
	q := s.DB.Order("created_at")
	if s.UserID != "" {
		q = q.Where("id = ?", s.UserID)
	}
	if err := q.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// performFullSync scans the last 7 days and resets the History ID
func (s *EmailService) performFullSync(ctx context.Context) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListMessagesResponse

	q := "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d"

	err := retry(3, 1*time.Second, func() error {
		var e error
		resp, e = s.GmailClient.Users.Messages.List("me").Q(q).MaxResults(50).Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	// The current History ID becomes the new anchor
	profile, err := s.GmailClient.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, 0, err
	}

	return s.expandMessages(ctx, resp.Messages), profile.HistoryId, nil
}

// performIncrementalSync asks Google only for what changed since startID
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListHistoryResponse

	err := retry(3, 1*time.Second, func() error {
		var e error
		call := s.GmailClient.Users.History.List("me").StartHistoryId(startID)
		// only added messages, not label changes
		call.HistoryTypes("messageAdded")
		resp, e = call.Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	var msgHeaders []*gmail.Message
	for _, h := range resp.History {
		for _, mAdded := range h.MessagesAdded {
			if mAdded.Message != nil {
				msgHeaders = append(msgHeaders, mAdded.Message)
			}
		}
	}

	return s.expandMessages(ctx, msgHeaders), resp.HistoryId, nil
}

// expandMessages fetches the full body and headers for each id
func (s *EmailService) expandMessages(ctx context.Context, headers []*gmail.Message) []*gmail.Message {
	var fullMessages []*gmail.Message
	for _, h := range headers {
		_ = retry(2, 500*time.Millisecond, func() error {
			msg, err := s.GmailClient.Users.Messages.Get("me", h.Id).Context(ctx).Do()
			if err == nil {
				fullMessages = append(fullMessages, msg)
			}
			return err
		})
	}
	return fullMessages
}

// ProcessMessage matches one email to an application and applies the status
// the LLM reads from it. It reports whether an application changed.
func (s *EmailService) ProcessMessage(ctx context.Context, user *models.User, msg *gmail.Message) bool {
	headers := parseHeaders(msg)
	subject := headers["Subject"]
	sender := headers["From"]

	shortSub := subject
	if len(shortSub) > 20 {
		shortSub = shortSub[:20] + "..."
	}
	logPrefix := fmt.Sprintf("[Email: %s]", shortSub)

	log.Printf("%s 📥 START processing from: %s", logPrefix, sender)

	body := getEmailBody(msg)

	apps, company := s.Matcher.FindApplicationsFromEmail(user.ID, subject, sender)
	if len(apps) == 0 {
		log.Printf("%s ❌ SKIPPED: no open application matches sender/subject.", logPrefix)
		return false
	}
	log.Printf("%s ✅ MATCHED Company: %s", logPrefix, company)

	var target *models.Application
	if len(apps) == 1 {
		target = &apps[0]
		log.Printf("%s 🎯 Auto-linked to single application: %s", logPrefix, target.Opportunity.Title)
	} else {
		titles := make([]string, len(apps))
		for i, a := range apps {
			titles[i] = a.Opportunity.Title
		}

		log.Printf("%s ⚠️ Ambiguous: Found %d applications (%v). Asking LLM to pick...", logPrefix, len(apps), titles)
		idx := s.Analyzer.IdentifyApplication(ctx, titles, subject, body)
		if idx == -1 {
			log.Printf("%s ❌ SKIPPED: LLM could not determine which application this email is about.", logPrefix)
			return false
		}
		target = &apps[idx]
		log.Printf("%s 🎯 LLM selected application: %s", logPrefix, target.Opportunity.Title)
	}

	log.Printf("%s 🤖 Analyzing content with LLM...", logPrefix)
	result := s.Analyzer.AnalyzeEmailStatus(ctx, company, subject, body)
	log.Printf("%s 🧠 LLM Decision: Status=%s | Summary=%s", logPrefix, result.Status, result.Summary)

	next, ok := emailStatusMap[result.Status]
	if !ok {
		log.Printf("%s ⏹️  No DB Update needed (Status is %s).", logPrefix, result.Status)
		return false
	}
	if next == target.Status || !target.Status.CanTransitionTo(next) {
		log.Printf("%s ⏹️  %s -> %s is not a forward move. Ignoring.", logPrefix, target.Status, next)
		return false
	}

	log.Printf("%s ⚡ UPDATING DB: %s -> %s", logPrefix, target.Status, next)
	if err := s.Applications.RecordResponse(target, next, result.Summary, time.Now().UTC()); err != nil {
		log.Printf("%s ❌ Update failed: %v", logPrefix, err)
		return false
	}
	log.Printf("%s ✅ Success!", logPrefix)
	return true
}

// retry executes a function with exponential backoff
func retry(attempts int, sleep time.Duration, f func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		// fail fast so the caller can switch to Full Sync
		if isHistoryExpiredError(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		log.Printf("⚠️ API Error: %v. Retrying in %v...", err, sleep)
		time.Sleep(sleep)
		sleep *= 2
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func isHistoryExpiredError(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 404
	}
	return false
}

func (s *EmailService) updateUserHistoryID(userID string, newID uint64) {
	s.DB.Model(&models.User{}).Where("id = ?", userID).Update("last_history_id", newID)
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	if msg.Payload == nil {
		return res
	}
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

func getEmailBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		for _, part := range msg.Payload.Parts {
			if part.MimeType == mime && part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data)
			}
		}
	}
	return ""
}

// Gmail bodies are base64url, with or without padding.
func decodeBody(data string) string {
	if d, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(d)
	}
	d, _ := base64.RawURLEncoding.DecodeString(data)
	return string(d)
}
