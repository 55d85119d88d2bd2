package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/models"
)

const (
	SourceIndeed    = "indeed"
	SourceLinkedIn  = "linkedin"
	SourceGlassdoor = "glassdoor"
	SourceManual    = "manual"
)

type Query struct {
	Keywords   string
	Location   string
	RemoteOnly bool
	Limit      int
}

// Source is one job board.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) ([]models.Opportunity, error)
}

// Service searches every enabled source. A failing source is logged and
// skipped; it never aborts the others.
type Service struct {
	sources map[string]Source
	order   []string
	cfg     config.ScraperConfig
}

func NewService(cfg config.ScraperConfig) *Service {
	return NewServiceWithSources(cfg,
		NewIndeedSource(cfg),
		NewLinkedInSource(cfg),
		NewGlassdoorSource(cfg),
	)
}

func NewServiceWithSources(cfg config.ScraperConfig, sources ...Source) *Service {
	s := &Service{sources: map[string]Source{}, cfg: cfg}
	for _, src := range sources {
		s.sources[src.Name()] = src
		s.order = append(s.order, src.Name())
	}
	return s
}

func enabled(c models.SearchCriteria, source string) bool {
	switch source {
	case SourceIndeed:
		return c.SearchIndeed
	case SourceLinkedIn:
		return c.SearchLinkedIn
	case SourceGlassdoor:
		return c.SearchGlassdoor
	}
	return false
}

func (s *Service) Search(ctx context.Context, c models.SearchCriteria) []models.Opportunity {
	q := Query{
		Keywords:   c.Keywords,
		Location:   c.Location,
		RemoteOnly: c.RemoteOnly,
		Limit:      s.cfg.ResultsPerSource,
	}

	var all []models.Opportunity
	for _, name := range s.order {
		if !enabled(c, name) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		found, err := s.searchOne(ctx, s.sources[name], q)
		if err != nil {
			log.Printf("⚠️ %s search failed: %v", name, err)
			continue
		}
		log.Printf("🔎 %s: %d listings", name, len(found))
		all = append(all, found...)
	}
	return all
}

func (s *Service) searchOne(ctx context.Context, src Source, q Query) (found []models.Opportunity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	found, err = src.Search(ctx, q)
	now := time.Now().UTC()
	for i := range found {
		found[i].Source = src.Name()
		found[i].Status = models.OpportunityIdentified
		found[i].DiscoveredAt = now
	}
	return found, err
}
