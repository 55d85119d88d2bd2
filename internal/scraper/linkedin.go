package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/models"
)

// LinkedInSource reads the public guest job search listing.
type LinkedInSource struct {
	cfg config.ScraperConfig
}

func NewLinkedInSource(cfg config.ScraperConfig) *LinkedInSource {
	return &LinkedInSource{cfg: cfg}
}

func (s *LinkedInSource) Name() string { return SourceLinkedIn }

func (s *LinkedInSource) Search(ctx context.Context, q Query) ([]models.Opportunity, error) {
	params := url.Values{}
	params.Set("keywords", q.Keywords)
	if q.Location != "" {
		params.Set("location", q.Location)
	}
	if q.RemoteOnly {
		params.Set("f_WT", "2")
	}
	params.Set("sortBy", "DD")
	params.Set("start", "0")

	var opps []models.Opportunity
	c := newCollector(s.cfg)
	c.OnHTML("li", func(e *colly.HTMLElement) {
		if q.Limit > 0 && len(opps) >= q.Limit {
			return
		}
		title := strings.TrimSpace(e.ChildText(".base-search-card__title"))
		link := e.ChildAttr("a.base-card__full-link", "href")
		if title == "" || link == "" {
			return
		}
		// drop tracking parameters
		if i := strings.Index(link, "?"); i > 0 {
			link = link[:i]
		}
		opps = append(opps, models.Opportunity{
			Title:    title,
			Company:  strings.TrimSpace(e.ChildText(".base-search-card__subtitle")),
			Location: strings.TrimSpace(e.ChildText(".job-search-card__location")),
			URL:      e.Request.AbsoluteURL(link),
		})
	})

	endpoint := s.cfg.LinkedInBaseURL + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + params.Encode()
	if err := visit(ctx, c, endpoint, nil); err != nil {
		return nil, err
	}
	return opps, nil
}
