package scraper

import (
	"context"
	"fmt"
	"log"

	"github.com/gocolly/colly/v2"
	"github.com/justsurfingit/agentice/internal/config"
)

func newCollector(cfg config.ScraperConfig) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.RequestDelay,
	}); err != nil {
		log.Printf("⚠️ Scraper rate limit not applied: %v", err)
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		log.Printf("🌐 Visiting: %s", r.URL)
	})
	return c
}

// visit fetches url and returns the first error seen by the collector,
// including errors from response callbacks.
func visit(ctx context.Context, c *colly.Collector, url string, callbackErr *error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = fmt.Errorf("%s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil && reqErr == nil {
		reqErr = err
	}
	c.Wait()

	if reqErr != nil {
		return reqErr
	}
	if callbackErr != nil {
		return *callbackErr
	}
	return nil
}
