package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const linkedInHTML = `<html><body><ul>
<li><div class="base-card">
  <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/123?refId=abc">link</a>
  <h3 class="base-search-card__title"> Go Developer </h3>
  <h4 class="base-search-card__subtitle">Acme</h4>
  <span class="job-search-card__location">Berlin</span>
</div></li>
<li><div class="base-card"><h3 class="base-search-card__title">No link</h3></div></li>
</ul></body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ads/apisearch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pub-1", r.URL.Query().Get("publisher"))
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"jobtitle":"Backend Engineer","company":"Globex","formattedLocation":"Remote","url":"https://indeed.example/1","snippet":"Go APIs"}]}`))
	})
	mux.HandleFunc("/jobs-guest/jobs/api/seeMoreJobPostings/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(linkedInHTML))
	})
	mux.HandleFunc("/api/api.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"jobListings":[{"jobTitle":"SRE","employer":{"name":"Initech"},"location":"NYC","jobLink":"https://gd.example/9","jobDescription":"Ops"}]}}`))
	})
	mux.HandleFunc("/job/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Go Engineer at Acme</title><script>var x=1;</script></head>
<body><nav>Home</nav><h1>Go Engineer</h1><p>Build distributed systems.</p><footer>cookies</footer></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(base string) config.ScraperConfig {
	return config.ScraperConfig{
		IndeedBaseURL:      base,
		IndeedPublisherID:  "pub-1",
		LinkedInBaseURL:    base,
		GlassdoorBaseURL:   base,
		GlassdoorPartnerID: "p",
		GlassdoorAPIKey:    "k",
		UserAgent:          "test-agent",
		Timeout:            5 * time.Second,
		ResultsPerSource:   10,
	}
}

func TestSources(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(srv.URL)
	q := Query{Keywords: "golang", Limit: 10}

	indeed, err := NewIndeedSource(cfg).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, indeed, 1)
	assert.Equal(t, "Backend Engineer", indeed[0].Title)
	assert.Equal(t, "Globex", indeed[0].Company)
	assert.Equal(t, "Go APIs", indeed[0].Description)

	linkedin, err := NewLinkedInSource(cfg).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, linkedin, 1)
	assert.Equal(t, "Go Developer", linkedin[0].Title)
	assert.Equal(t, "Acme", linkedin[0].Company)
	assert.Equal(t, "Berlin", linkedin[0].Location)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/123", linkedin[0].URL)

	glassdoor, err := NewGlassdoorSource(cfg).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, glassdoor, 1)
	assert.Equal(t, "Initech", glassdoor[0].Company)
}

func TestSources_SkipWithoutCredentials(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.IndeedPublisherID = ""
	cfg.GlassdoorAPIKey = ""

	opps, err := NewIndeedSource(cfg).Search(context.Background(), Query{Keywords: "go"})
	assert.NoError(t, err)
	assert.Empty(t, opps)

	opps, err = NewGlassdoorSource(cfg).Search(context.Background(), Query{Keywords: "go"})
	assert.NoError(t, err)
	assert.Empty(t, opps)
}

func TestSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewLinkedInSource(testConfig(srv.URL)).Search(context.Background(), Query{Keywords: "go"})
	assert.Error(t, err)
}

type stubSource struct {
	name  string
	opps  []models.Opportunity
	err   error
	panic bool
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(context.Context, Query) ([]models.Opportunity, error) {
	s.calls++
	if s.panic {
		panic("selector changed")
	}
	return s.opps, s.err
}

func TestService_IsolatesSourcesAndHonoursToggles(t *testing.T) {
	indeed := &stubSource{name: SourceIndeed, err: errors.New("rate limited")}
	linkedin := &stubSource{name: SourceLinkedIn, panic: true}
	glassdoor := &stubSource{name: SourceGlassdoor, opps: []models.Opportunity{{Title: "SRE", URL: "u"}}}
	svc := NewServiceWithSources(config.ScraperConfig{}, indeed, linkedin, glassdoor)

	all := svc.Search(context.Background(), models.SearchCriteria{
		Keywords: "go", SearchIndeed: true, SearchLinkedIn: true, SearchGlassdoor: true,
	})
	require.Len(t, all, 1)
	assert.Equal(t, SourceGlassdoor, all[0].Source)
	assert.Equal(t, models.OpportunityIdentified, all[0].Status)
	assert.False(t, all[0].DiscoveredAt.IsZero())

	glassdoor.calls = 0
	svc.Search(context.Background(), models.SearchCriteria{Keywords: "go", SearchIndeed: true})
	assert.Zero(t, glassdoor.calls, "disabled source is not called")
}

func TestFetchJobPage(t *testing.T) {
	srv := newTestServer(t)
	svc := NewService(testConfig(srv.URL))

	text, err := svc.FetchJobPage(context.Background(), srv.URL+"/job/42")
	require.NoError(t, err)
	assert.Contains(t, text, "Go Engineer at Acme")
	assert.Contains(t, text, "Build distributed systems.")
	assert.NotContains(t, text, "var x=1")
	assert.NotContains(t, text, "cookies")
}

func TestCollector_DelaysRequests(t *testing.T) {
	srv := newTestServer(t)
	cfg := testConfig(srv.URL)
	cfg.RequestDelay = 150 * time.Millisecond
	cfg.Parallelism = 1

	c := newCollector(cfg)
	start := time.Now()
	require.NoError(t, visit(context.Background(), c, srv.URL+"/job/42", nil))
	require.NoError(t, visit(context.Background(), c, srv.URL+"/job/42", nil))
	assert.GreaterOrEqual(t, time.Since(start), 2*cfg.RequestDelay)
}

func appWithResume(path string) *models.Application {
	return &models.Application{
		CoverLetter:   "Dear team",
		ResumeVariant: datatypes.NewJSONType(models.ResumeVariant{FilePath: path}),
	}
}

func TestSubmitter(t *testing.T) {
	resume := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.4"), 0o600))
	fixed := time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)

	newSubmitter := func(runErr error) (*Submitter, *int) {
		calls := 0
		s := NewSubmitter(config.BrowserConfig{Timeout: time.Second})
		s.now = func() time.Time { return fixed }
		s.run = func(_ context.Context, _ browserFlow, _, _, letter string) error {
			calls++
			assert.Equal(t, "Dear team", letter)
			return runErr
		}
		return s, &calls
	}

	t.Run("manual source short-circuits", func(t *testing.T) {
		s, calls := newSubmitter(nil)
		res := s.Submit(context.Background(), &models.Opportunity{Source: SourceManual}, appWithResume(""))
		assert.True(t, res.Success)
		assert.Equal(t, "manual", res.Method)
		assert.Equal(t, manualMessage, res.Message)
		assert.Zero(t, *calls)
	})

	t.Run("indeed confirmation number", func(t *testing.T) {
		s, calls := newSubmitter(nil)
		res := s.Submit(context.Background(), &models.Opportunity{Source: SourceIndeed, URL: "u"}, appWithResume(resume))
		assert.True(t, res.Success)
		assert.Equal(t, "IND-20240305143015", res.ConfirmationNumber)
		assert.Equal(t, 1, *calls)
	})

	t.Run("linkedin confirmation number", func(t *testing.T) {
		s, _ := newSubmitter(nil)
		res := s.Submit(context.Background(), &models.Opportunity{Source: SourceLinkedIn}, appWithResume(resume))
		assert.Equal(t, "LI-20240305143015", res.ConfirmationNumber)
	})

	t.Run("missing resume file", func(t *testing.T) {
		s, calls := newSubmitter(nil)
		res := s.Submit(context.Background(), &models.Opportunity{Source: SourceIndeed}, appWithResume(filepath.Join(t.TempDir(), "gone.pdf")))
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
		assert.Zero(t, *calls)
	})

	t.Run("browser failure", func(t *testing.T) {
		s, _ := newSubmitter(errors.New("no confirmation shown after submit"))
		res := s.Submit(context.Background(), &models.Opportunity{Source: SourceIndeed}, appWithResume(resume))
		assert.False(t, res.Success)
		assert.Equal(t, "no confirmation shown after submit", res.Error)
	})
}
