package scraper

import (
	"context"
	"errors"
	"strings"

	"github.com/gocolly/colly/v2"
)

var ErrEmptyPage = errors.New("job page has no readable content")

// FetchJobPage downloads a job posting and returns its visible text.
func (s *Service) FetchJobPage(ctx context.Context, pageURL string) (string, error) {
	var sb strings.Builder
	c := newCollector(s.cfg)
	c.OnHTML("title", func(e *colly.HTMLElement) {
		sb.WriteString(strings.TrimSpace(e.Text) + "\n\n")
	})
	c.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find("script, style, nav, footer, noscript").Remove()
		for _, line := range strings.Split(e.DOM.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				sb.WriteString(line + "\n")
			}
		}
	})

	if err := visit(ctx, c, pageURL, nil); err != nil {
		return "", err
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyPage
	}
	return text, nil
}
