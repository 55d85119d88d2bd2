package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/justsurfingit/agentice/internal/metrics"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/justsurfingit/agentice/internal/services"
)

const digestSubject = "Your Daily Job Application Summary"

type Summary struct {
	OpportunitiesFound    int                  `json:"opportunities_found"`
	ApplicationsSubmitted int                  `json:"applications_submitted"`
	Applications          []models.Application `json:"applications"`
	Timestamp             time.Time            `json:"timestamp"`
}

// Deduplicate keeps the first opportunity for each (url, title, company).
func Deduplicate(opps []models.Opportunity) []models.Opportunity {
	seen := make(map[string]struct{}, len(opps))
	out := make([]models.Opportunity, 0, len(opps))
	for _, o := range opps {
		key := dedupKey(o)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out
}

func dedupKey(o models.Opportunity) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(o.URL) + "\x00" + norm(o.Title) + "\x00" + norm(o.Company)
}

// RankOpportunities sorts by fit score, best first. Equal scores keep their
// discovery order.
func RankOpportunities(opps []models.Opportunity) []models.Opportunity {
	ranked := make([]models.Opportunity, len(opps))
	copy(ranked, opps)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})
	return ranked
}

// RunDailySearch searches, scores and applies for the user. A nil criteria
// uses the user's stored preferences.
func (p *Pipeline) RunDailySearch(ctx context.Context, criteria *models.SearchCriteria) (summary *Summary, err error) {
	start := time.Now()
	defer func() {
		metrics.JobSearchDuration.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ %s Daily search panicked: %v", p.logPrefix, r)
			summary, err = nil, ErrRunFailed
		}
	}()

	user, err := p.deps.Users.GetUser(p.userID)
	if err != nil {
		return nil, err
	}
	c := user.Criteria()
	if criteria != nil {
		c = *criteria
	}
	if c.MaxApplicationsPerDay <= 0 {
		c.MaxApplicationsPerDay = p.settings.MaxApplicationsPerDay
	}

	log.Printf("🔍 %s Searching %q in %q", p.logPrefix, c.Keywords, c.Location)
	found := Deduplicate(p.deps.Searcher.Search(ctx, c))

	resume, err := p.deps.Resumes.GetCurrentResume(p.userID)
	if err != nil {
		if !errors.Is(err, services.ErrNoCurrentResume) {
			return nil, err
		}
		log.Printf("⚠️ %s No current resume, opportunities will not be scored", p.logPrefix)
		resume = nil
	}

	stored := make([]models.Opportunity, 0, len(found))
	for i := range found {
		opp := found[i]
		opp.UserID = p.userID
		opp.ID = ""
		if err := p.deps.Opportunities.Save(&opp); err != nil {
			log.Printf("⚠️ %s Could not store %s at %s: %v", p.logPrefix, opp.Title, opp.Company, err)
			continue
		}
		score, analysis := p.CalculateFitScore(ctx, &opp, resume)
		if err := p.deps.Opportunities.RecordFit(&opp, score, analysis); err != nil {
			log.Printf("⚠️ %s Could not record fit for %s: %v", p.logPrefix, opp.ID, err)
		}
		if err := p.deps.Opportunities.UpdateStatus(&opp, models.OpportunityReviewing); err != nil {
			log.Printf("⚠️ %s Opportunity %s status: %v", p.logPrefix, opp.ID, err)
		}
		stored = append(stored, opp)
	}

	ranked := RankOpportunities(stored)
	if len(ranked) > c.MaxApplicationsPerDay {
		ranked = ranked[:c.MaxApplicationsPerDay]
	}
	log.Printf("📊 %s %d unique opportunities, processing top %d", p.logPrefix, len(stored), len(ranked))

	summary = &Summary{OpportunitiesFound: len(stored), Applications: []models.Application{}}
	for i := range ranked {
		if ctx.Err() != nil {
			log.Printf("⚠️ %s Run cancelled: %v", p.logPrefix, ctx.Err())
			break
		}
		app := p.ProcessOpportunity(ctx, &ranked[i], false)
		if app == nil {
			continue
		}
		summary.Applications = append(summary.Applications, *app)
		if app.Status == models.ApplicationSubmitted {
			summary.ApplicationsSubmitted++
		}
	}
	summary.Timestamp = p.now()

	p.deps.Notifier.SendEmail(ctx, user, digestSubject, digestBody(summary))
	log.Printf("✅ %s Daily search done: %d found, %d submitted", p.logPrefix, summary.OpportunitiesFound, summary.ApplicationsSubmitted)
	return summary, nil
}

func digestBody(s *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opportunities found: %d\nApplications submitted: %d\n", s.OpportunitiesFound, s.ApplicationsSubmitted)
	for _, app := range s.Applications {
		if app.Opportunity == nil {
			continue
		}
		fmt.Fprintf(&b, "\n- %s at %s (%s)", app.Opportunity.Title, app.Opportunity.Company, app.ConfirmationNumber)
	}
	return b.String()
}

// RunDailySearchForAllUsers runs every auto-apply user's search concurrently.
// One user's failure never affects another's.
func (f *Factory) RunDailySearchForAllUsers(ctx context.Context) error {
	users, err := f.deps.Users.ListAutoApplyUsers()
	if err != nil {
		return fmt.Errorf("list auto-apply users: %w", err)
	}
	metrics.ActiveUsers.Set(float64(len(users)))
	log.Printf("⏰ Daily search for %d users", len(users))

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("❌ Daily search for %s panicked: %v", userID, r)
				}
			}()
			if _, err := f.ForUser(userID).RunDailySearch(ctx, nil); err != nil {
				log.Printf("❌ Daily search for %s failed: %v", userID, err)
			}
		}(u.ID)
	}
	wg.Wait()
	return nil
}
