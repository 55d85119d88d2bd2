package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/playwright-community/playwright-go"
)

const manualMessage = "Application materials prepared. Manual submission required."

type SubmissionResult struct {
	Success            bool   `json:"success"`
	Method             string `json:"method"`
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
	Message            string `json:"message,omitempty"`
	Error              string `json:"error,omitempty"`
}

// browserFlow is the selector set for one job board's apply form.
type browserFlow struct {
	prefix       string
	applyButton  string
	resumeInput  string
	coverLetter  string
	submitButton string
	confirmation string
}

var flows = map[string]browserFlow{
	SourceIndeed: {
		prefix:       "IND",
		applyButton:  "#indeedApplyButton, button[id*='indeedApply']",
		resumeInput:  "input[type='file']",
		coverLetter:  "textarea[name*='cover'], textarea[id*='cover']",
		submitButton: "button[type='submit']",
		confirmation: ".ia-PostApply, [data-testid='post-apply-page']",
	},
	SourceLinkedIn: {
		prefix:       "LI",
		applyButton:  "button.jobs-apply-button",
		resumeInput:  "input[type='file']",
		coverLetter:  "textarea",
		submitButton: "button[aria-label='Submit application']",
		confirmation: "[data-test-modal-id='post-apply-modal'], .artdeco-inline-feedback--success",
	},
}

// Submitter sends applications. Indeed and LinkedIn go through a browser;
// every other source ends with materials prepared for a manual submit.
type Submitter struct {
	cfg config.BrowserConfig
	now func() time.Time
	// run drives the browser; replaced in tests.
	run func(ctx context.Context, flow browserFlow, jobURL, resumePath, coverLetter string) error
}

func NewSubmitter(cfg config.BrowserConfig) *Submitter {
	s := &Submitter{cfg: cfg, now: time.Now}
	s.run = s.runBrowser
	return s
}

func (s *Submitter) Submit(ctx context.Context, opp *models.Opportunity, app *models.Application) (result SubmissionResult) {
	flow, ok := flows[opp.Source]
	if !ok {
		return SubmissionResult{Success: true, Method: SourceManual, Message: manualMessage}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Submission to %s panicked: %v", opp.URL, r)
			result = SubmissionResult{Method: opp.Source, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	resumePath := app.ResumeVariant.Data().FilePath
	if resumePath == "" {
		return SubmissionResult{Method: opp.Source, Error: "no resume file attached to the resume"}
	}
	if _, err := os.Stat(resumePath); err != nil {
		return SubmissionResult{Method: opp.Source, Error: fmt.Sprintf("resume file: %v", err)}
	}

	if err := s.run(ctx, flow, opp.URL, resumePath, app.CoverLetter); err != nil {
		log.Printf("❌ %s submission failed for %s: %v", opp.Source, opp.URL, err)
		return SubmissionResult{Method: opp.Source, Error: err.Error()}
	}

	return SubmissionResult{
		Success:            true,
		Method:             opp.Source,
		ConfirmationNumber: flow.prefix + "-" + s.now().UTC().Format("20060102150405"),
	}
}

func (s *Submitter) runBrowser(ctx context.Context, flow browserFlow, jobURL, resumePath, coverLetter string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := float64(s.cfg.Timeout.Milliseconds())

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(!s.cfg.Headed),
	})
	if err != nil {
		return fmt.Errorf("could not launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("could not create page: %w", err)
	}

	if _, err := page.Goto(jobURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeout),
	}); err != nil {
		return fmt.Errorf("failed to load job page: %w", err)
	}

	if err := page.Locator(flow.applyButton).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(timeout),
	}); err != nil {
		return fmt.Errorf("apply button: %w", err)
	}

	data, err := os.ReadFile(resumePath)
	if err != nil {
		return err
	}
	upload := page.Locator(flow.resumeInput).First()
	if err := upload.SetInputFiles([]playwright.InputFile{{
		Name:     filepath.Base(resumePath),
		MimeType: "application/pdf",
		Buffer:   data,
	}}); err != nil {
		return fmt.Errorf("resume upload: %w", err)
	}

	if coverLetter != "" {
		letterBox := page.Locator(flow.coverLetter).First()
		if n, _ := letterBox.Count(); n > 0 {
			if err := letterBox.Fill(coverLetter); err != nil {
				return fmt.Errorf("cover letter: %w", err)
			}
		}
	}

	if err := page.Locator(flow.submitButton).First().Click(); err != nil {
		return fmt.Errorf("submit button: %w", err)
	}

	if _, err := page.WaitForSelector(flow.confirmation, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(timeout),
	}); err != nil {
		return errors.New("no confirmation shown after submit")
	}
	return nil
}
