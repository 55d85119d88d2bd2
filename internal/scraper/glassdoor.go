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

// GlassdoorSource uses the Glassdoor partner API.
type GlassdoorSource struct {
	cfg config.ScraperConfig
}

func NewGlassdoorSource(cfg config.ScraperConfig) *GlassdoorSource {
	return &GlassdoorSource{cfg: cfg}
}

func (s *GlassdoorSource) Name() string { return SourceGlassdoor }

type glassdoorResponse struct {
	Response struct {
		JobListings []struct {
			JobTitle       string          `json:"jobTitle"`
			Employer       json.RawMessage `json:"employer"`
			Location       string          `json:"location"`
			JobLink        string          `json:"jobLink"`
			JobDescription string          `json:"jobDescription"`
		} `json:"jobListings"`
	} `json:"response"`
}

// employerName accepts both "Acme" and {"name": "Acme"}.
func employerName(raw json.RawMessage) string {
	var name string
	if json.Unmarshal(raw, &name) == nil {
		return name
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Name
	}
	return ""
}

func (s *GlassdoorSource) Search(ctx context.Context, q Query) ([]models.Opportunity, error) {
	if s.cfg.GlassdoorPartnerID == "" || s.cfg.GlassdoorAPIKey == "" {
		log.Println("⚠️ Glassdoor partner credentials not configured, skipping")
		return nil, nil
	}

	params := url.Values{}
	params.Set("v", "1")
	params.Set("format", "json")
	params.Set("t.p", s.cfg.GlassdoorPartnerID)
	params.Set("t.k", s.cfg.GlassdoorAPIKey)
	params.Set("action", "jobs-prog")
	params.Set("q", q.Keywords)
	params.Set("l", q.Location)
	params.Set("pn", "1")
	params.Set("ps", strconv.Itoa(q.Limit))

	var (
		opps     []models.Opportunity
		parseErr error
	)
	c := newCollector(s.cfg)
	c.OnResponse(func(r *colly.Response) {
		var resp glassdoorResponse
		if err := json.Unmarshal(r.Body, &resp); err != nil {
			parseErr = err
			return
		}
		for _, j := range resp.Response.JobListings {
			opps = append(opps, models.Opportunity{
				Title:       j.JobTitle,
				Company:     employerName(j.Employer),
				Location:    j.Location,
				URL:         j.JobLink,
				Description: j.JobDescription,
			})
		}
	})

	if err := visit(ctx, c, s.cfg.GlassdoorBaseURL+"/api/api.htm?"+params.Encode(), &parseErr); err != nil {
		return nil, err
	}
	return opps, nil
}
