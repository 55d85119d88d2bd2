package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/justsurfingit/agentice/internal/database"
	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/justsurfingit/agentice/internal/pipeline"
	"github.com/justsurfingit/agentice/internal/scraper"
	"github.com/justsurfingit/agentice/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAgents struct{}

func (stubAgents) AnalyzeFit(context.Context, *models.Opportunity, models.ResumeContent) agents.FitAnalysis {
	return agents.FitAnalysis{MatchScore: 80, Recommendation: agents.RecommendApply}
}

func (stubAgents) OptimizeResume(_ context.Context, _ *models.Opportunity, r models.ResumeContent) (agents.ResumeOptimization, error) {
	return agents.ResumeOptimization{OptimizedSummary: r.Summary}, nil
}

func (stubAgents) GenerateCoverLetter(context.Context, *models.Opportunity, models.ResumeContent) (string, error) {
	return "Dear hiring team", nil
}

func (stubAgents) ExtractJobDetails(_ context.Context, raw string) (agents.JobExtraction, error) {
	if strings.Contains(raw, "garbage") {
		return agents.JobExtraction{}, agents.ErrExtractionFailed
	}
	return agents.JobExtraction{CompanyName: "Acme", Title: "Go Engineer"}, nil
}

func (stubAgents) Chat(_ context.Context, message string, _ map[string]interface{}) string {
	return "echo: " + message
}

type stubPages struct{}

func (stubPages) FetchJobPage(_ context.Context, url string) (string, error) {
	if strings.Contains(url, "down") {
		return "", errors.New("connection refused")
	}
	return "<h1>Go Engineer</h1>", nil
}

type stubSearcher struct{}

func (stubSearcher) Search(context.Context, models.SearchCriteria) []models.Opportunity { return nil }

type stubSubmitter struct{}

func (stubSubmitter) Submit(_ context.Context, opp *models.Opportunity, _ *models.Application) scraper.SubmissionResult {
	if opp.Company == "Broken" {
		return scraper.SubmissionResult{Method: scraper.SourceManual, Error: "form rejected"}
	}
	return scraper.SubmissionResult{Success: true, Method: scraper.SourceManual}
}

type trackedBackground struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	names  []string
	closed bool
}

func (b *trackedBackground) Go(name string, fn func(context.Context)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.names = append(b.names, name)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(context.Background())
	}()
	return true
}

type testAPI struct {
	router    *gin.Engine
	db        *gorm.DB
	approvals *services.ApprovalBroker
	bg        *trackedBackground
	apps      *services.ApplicationService
	chat      *ChatHub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	users := services.NewUserService(db)
	resumes := services.NewResumeService(db)
	opps := services.NewOpportunityService(db)
	apps := services.NewApplicationService(db)
	approvals := services.NewApprovalBroker()
	bg := &trackedBackground{}

	factory := pipeline.NewFactory(pipeline.Deps{
		Users:         users,
		Resumes:       resumes,
		Opportunities: opps,
		Applications:  apps,
		Approvals:     approvals,
		Agents:        stubAgents{},
		Searcher:      stubSearcher{},
		Submitter:     stubSubmitter{},
		Notifier:      services.NewNotificationService(db),
		Background:    bg,
	}, pipeline.Settings{ApprovalTimeout: 5 * time.Second, FollowupDays: []int{7}, MaxApplicationsPerDay: 5})

	chat := NewChatHub(stubAgents{})
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	RegisterRoutes(r, &Handlers{
		Server:        config.ServerConfig{Version: "1.2.3", Environment: "test"},
		UserService:   users,
		Users:         NewUserHandler(users, resumes),
		Opportunities: NewOpportunityHandler(stubAgents{}, stubPages{}, opps),
		Applications:  NewApplicationHandler(factory, apps, approvals, services.NewExportService(apps), bg),
		Chat:          chat,
	})

	return &testAPI{router: r, db: db, approvals: approvals, bg: bg, apps: apps, chat: chat}
}

func (a *testAPI) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createUser(t *testing.T, withResume bool) string {
	t.Helper()
	w := a.do(http.MethodPost, "/api/v1/users", "", map[string]interface{}{"email": uuid.NewString() + "@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))

	if withResume {
		w = a.do(http.MethodPost, "/api/v1/resumes", u.ID, map[string]interface{}{
			"title":   "main",
			"content": map[string]interface{}{"name": "Ada", "summary": "Go engineer"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	return u.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var applyBody = map[string]interface{}{
	"job_url":         "https://acme.example/jobs/1",
	"company_name":    "Acme",
	"job_title":       "Go Engineer",
	"job_description": "Build services",
}

func withAutoSubmit(v bool) map[string]interface{} {
	out := map[string]interface{}{"auto_submit": v}
	for k, val := range applyBody {
		out[k] = val
	}
	return out
}

func TestHealthAndRecovery(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "test", body["environment"])

	w = api.do(http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRequireUser(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/me", uuid.NewString(), nil).Code)

	id := api.createUser(t, false)
	w := api.do(http.MethodGet, "/api/v1/users/me", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])
}

func TestUserLifecycle(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/users", "", map[string]string{"email": "nope"}).Code)

	id := api.createUser(t, false)
	w := api.do(http.MethodGet, "/api/v1/resumes/current", id, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(http.MethodPut, "/api/v1/users/me/preferences", id, map[string]interface{}{
		"auto_apply_enabled": true,
		"preferences":        map[string]interface{}{"keywords": "golang", "max_applications_per_day": 3},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["auto_apply_enabled"])

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/v1/users/me", id, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/me", id, nil).Code)
}

func TestOpportunities(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, false)

	w := api.do(http.MethodPost, "/api/v1/opportunities/extract", id, map[string]string{"raw_html": "<div>job</div>"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Acme", data["company_name"])

	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/opportunities/extract", id, map[string]string{"url": "https://jobs.example/1"}).Code)
	assert.Equal(t, http.StatusBadGateway, api.do(http.MethodPost, "/api/v1/opportunities/extract", id, map[string]string{"url": "https://down.example"}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/opportunities/extract", id, map[string]string{}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodPost, "/api/v1/opportunities/extract", id, map[string]string{"raw_html": "garbage"}).Code)

	w = api.do(http.MethodPost, "/api/v1/opportunities", id, map[string]interface{}{
		"company_name": "Acme", "role_title": "SRE", "job_link": "https://acme.example/sre", "description": "Ops",
		"tech_stack": []string{"Go"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "manual", decode(t, w)["source"])

	oppID := decode(t, w)["id"].(string)

	w = api.do(http.MethodGet, "/api/v1/opportunities", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = api.do(http.MethodGet, "/api/v1/opportunities/"+oppID, id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SRE", decode(t, w)["title"])

	other := api.createUser(t, false)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/opportunities/"+oppID, other, nil).Code)
}

func TestSetCurrentResume(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)

	w := api.do(http.MethodPost, "/api/v1/resumes", id, map[string]interface{}{
		"title": "backup", "is_current": false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	backupID := decode(t, w)["id"].(string)

	w = api.do(http.MethodPut, "/api/v1/resumes/"+backupID+"/current", id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, backupID, decode(t, w)["id"])

	w = api.do(http.MethodGet, "/api/v1/resumes/current", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "backup", decode(t, w)["title"])

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, "/api/v1/resumes/missing/current", id, nil).Code)
	w = api.do(http.MethodGet, "/api/v1/resumes/current", id, nil)
	assert.Equal(t, backupID, decode(t, w)["id"], "failed switch keeps the current resume")
}

func TestApply_AutoSubmit(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)

	w := api.do(http.MethodPost, "/api/v1/applications/apply", id, withAutoSubmit(true))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode(t, w)
	assert.Equal(t, "submitted", app["status"])
	appID := app["id"].(string)

	w = api.do(http.MethodGet, "/api/v1/applications/"+appID, id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme", decode(t, w)["opportunity"].(map[string]interface{})["company"])

	w = api.do(http.MethodGet, "/api/v1/applications/"+appID+"/status", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status dtos.ApplicationStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.ApplicationSubmitted, status.Status)
	assert.NotNil(t, status.SubmittedAt)
	assert.False(t, status.AwaitingApproval)

	w = api.do(http.MethodGet, "/api/v1/applications?status=submitted", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = api.do(http.MethodGet, "/api/v1/applications/stats", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats dtos.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalApplications)
	assert.Equal(t, int64(1), stats.Submitted)

	other := api.createUser(t, false)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/applications/"+appID, other, nil).Code)
}

func TestApply_SubmissionFailure(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)

	body := withAutoSubmit(true)
	body["company_name"] = "Broken"
	w := api.do(http.MethodPost, "/api/v1/applications/apply", id, body)
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	app := decode(t, w)["application"].(map[string]interface{})
	assert.Equal(t, "failed", app["status"])
	assert.Equal(t, "form rejected", app["notes"])
}

func TestApply_Validation(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, false)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/applications/apply", id, `{"job_url":"not a url"}`).Code)
	w := api.do(http.MethodPost, "/api/v1/applications/apply", id, withAutoSubmit(true))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var n int64
	api.db.Model(&models.Application{}).Where("user_id = ?", id).Count(&n)
	assert.Zero(t, n)
}

func TestApprove_LiveWaiter(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)

	w := api.do(http.MethodPost, "/api/v1/applications/apply", id, withAutoSubmit(false))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode(t, w)
	assert.Equal(t, "pending_approval", app["status"])
	appID := app["id"].(string)

	require.Eventually(t, func() bool { return api.approvals.IsWaiting(appID) }, time.Second, 5*time.Millisecond)
	w = api.do(http.MethodGet, "/api/v1/applications/"+appID+"/status", id, nil)
	assert.Equal(t, true, decode(t, w)["awaiting_approval"])

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/applications/"+appID+"/approve", id, map[string]string{"notes": "x"}).Code)

	w = api.do(http.MethodPost, "/api/v1/applications/"+appID+"/approve", id, map[string]interface{}{"approved": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", decode(t, w)["status"])

	api.bg.wg.Wait()
	stored, err := api.apps.GetApplication(id, appID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, stored.Status)

	w = api.do(http.MethodPost, "/api/v1/applications/"+appID+"/approve", id, map[string]interface{}{"approved": true})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApprove_WithoutWaiter(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)

	pending := func() string {
		opp := &models.Opportunity{UserID: id, Source: scraper.SourceManual, Title: "SRE", Company: "Acme"}
		require.NoError(t, services.NewOpportunityService(api.db).Save(opp))
		app := &models.Application{UserID: id, OpportunityID: opp.ID}
		require.NoError(t, api.apps.CreateDraft(app))
		require.NoError(t, api.apps.Transition(app, models.ApplicationDraft, models.ApplicationPendingApproval, nil))
		return app.ID
	}

	rejected := pending()
	w := api.do(http.MethodPost, "/api/v1/applications/"+rejected+"/approve", id, map[string]interface{}{"approved": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "rejected", decode(t, w)["status"])
	stored, err := api.apps.GetApplication(id, rejected)
	require.NoError(t, err)
	assert.Equal(t, "rejected by user", stored.Notes)

	approved := pending()
	w = api.do(http.MethodPost, "/api/v1/applications/"+approved+"/approve", id, map[string]interface{}{"approved": true, "notes": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "submitted", decode(t, w)["status"])
}

func TestAutoSearch(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/applications/auto-search", id, map[string]string{}).Code)

	w := api.do(http.MethodPost, "/api/v1/applications/auto-search", id, map[string]interface{}{"keywords": "golang"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "processing", decode(t, w)["status"])

	api.bg.wg.Wait()
	assert.Equal(t, []string{"auto-search " + id}, api.bg.names)

	api.bg.mu.Lock()
	api.bg.closed = true
	api.bg.mu.Unlock()
	w = api.do(http.MethodPost, "/api/v1/applications/auto-search", id, map[string]interface{}{"keywords": "golang"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExport(t *testing.T) {
	api := newTestAPI(t)
	id := api.createUser(t, true)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/applications/apply", id, withAutoSubmit(true)).Code)

	w := api.do(http.MethodGet, "/api/v1/applications/export", id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "applications.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestChat(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/chat/client-1"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(dtos.ChatMessage{Type: "message", Message: "hello"}))
	var frames []dtos.ChatFrame
	for i := 0; i < 3; i++ {
		var f dtos.ChatFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
	}
	assert.Equal(t, "typing", frames[0].Type)
	require.NotNil(t, frames[0].IsTyping)
	assert.True(t, *frames[0].IsTyping)
	assert.Equal(t, "response", frames[1].Type)
	assert.Equal(t, "echo: hello", frames[1].Message)
	assert.Equal(t, "typing", frames[2].Type)
	require.NotNil(t, frames[2].IsTyping)
	assert.False(t, *frames[2].IsTyping)

	require.NoError(t, conn.WriteJSON(dtos.ChatMessage{Type: "message"}))
	var f dtos.ChatFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, 1, api.chat.Connections())

	// A second connection for the same client replaces the first.
	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer second.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
