package scraper

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strconv"

	"github.com/gocolly/colly/v2"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/models"
)

// IndeedSource uses the Indeed publisher API.
type IndeedSource struct {
	cfg config.ScraperConfig
}

func NewIndeedSource(cfg config.ScraperConfig) *IndeedSource {
	return &IndeedSource{cfg: cfg}
}

func (s *IndeedSource) Name() string { return SourceIndeed }

type indeedResponse struct {
	Results []struct {
		JobTitle          string `json:"jobtitle"`
		Company           string `json:"company"`
		FormattedLocation string `json:"formattedLocation"`
		URL               string `json:"url"`
		Snippet           string `json:"snippet"`
	} `json:"results"`
}

func (s *IndeedSource) Search(ctx context.Context, q Query) ([]models.Opportunity, error) {
	if s.cfg.IndeedPublisherID == "" {
		log.Println("⚠️ Indeed publisher id not configured, skipping")
		return nil, nil
	}

	params := url.Values{}
	params.Set("publisher", s.cfg.IndeedPublisherID)
	params.Set("q", q.Keywords)
	params.Set("l", q.Location)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("sort", "date")
	params.Set("format", "json")
	params.Set("v", "2")
	if q.RemoteOnly {
		params.Set("remotejob", "1")
	}

	var (
		opps     []models.Opportunity
		parseErr error
	)
	c := newCollector(s.cfg)
	c.OnResponse(func(r *colly.Response) {
		var resp indeedResponse
		if err := json.Unmarshal(r.Body, &resp); err != nil {
			parseErr = err
			return
		}
		for _, j := range resp.Results {
			opps = append(opps, models.Opportunity{
				Title:       j.JobTitle,
				Company:     j.Company,
				Location:    j.FormattedLocation,
				URL:         j.URL,
				Description: j.Snippet,
			})
		}
	})

	if err := visit(ctx, c, s.cfg.IndeedBaseURL+"/ads/apisearch?"+params.Encode(), &parseErr); err != nil {
		return nil, err
	}
	return opps, nil
}
