package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/metrics"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/justsurfingit/agentice/internal/pipeline"
	"github.com/justsurfingit/agentice/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ApplicationHandler struct {
	Pipelines    *pipeline.Factory
	Applications *services.ApplicationService
	Approvals    *services.ApprovalBroker
	Export       *services.ExportService
	Background   pipeline.Background
}

func NewApplicationHandler(pipelines *pipeline.Factory, apps *services.ApplicationService, approvals *services.ApprovalBroker, export *services.ExportService, bg pipeline.Background) *ApplicationHandler {
	return &ApplicationHandler{
		Pipelines:    pipelines,
		Applications: apps,
		Approvals:    approvals,
		Export:       export,
		Background:   bg,
	}
}

// AutoSearch is POST /applications/auto-search. The run continues after the
// response is sent.
func (h *ApplicationHandler) AutoSearch(c *gin.Context) {
	req := dtos.NewJobSearchRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID := currentUser(c).ID
	criteria := req.Criteria()

	accepted := h.Background.Go("auto-search "+userID, func(ctx context.Context) {
		h.Pipelines.ForUser(userID).RunDailySearch(ctx, &criteria)
	})
	if !accepted {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Job search started",
		"status":  "processing",
	})
}

// Apply is POST /applications/apply. Without auto_submit it returns the
// application in pending_approval.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dtos.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	job := pipeline.ManualJob{
		URL:         req.JobURL,
		Company:     req.CompanyName,
		Title:       req.JobTitle,
		Description: req.JobDescription,
	}

	app, err := h.Pipelines.ForUser(currentUser(c).ID).StartApplication(c.Request.Context(), job, req.AutoSubmit)
	if err != nil {
		respondPipelineError(c, app, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	apps, err := h.Applications.ListApplications(
		currentUser(c).ID,
		models.ApplicationStatus(c.Query("status")),
		queryLimit(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	app, err := h.Applications.GetApplication(currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) GetStatus(c *gin.Context) {
	app, err := h.Applications.GetApplication(currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.ApplicationStatusResponse{
		ApplicationID:      app.ID,
		Status:             app.Status,
		SubmittedAt:        app.SubmittedAt,
		ConfirmationNumber: app.ConfirmationNumber,
		AwaitingApproval:   h.Approvals.IsWaiting(app.ID),
	})
}

// Approve is POST /applications/:id/approve. A live pipeline run receives the
// decision directly; otherwise the decision is carried out here.
func (h *ApplicationHandler) Approve(c *gin.Context) {
	var req dtos.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user := currentUser(c)
	app, err := h.Applications.GetApplication(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if app.Status != models.ApplicationPendingApproval {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "application is not awaiting approval",
			"status": app.Status,
		})
		return
	}

	approved := *req.Approved
	if h.Approvals.Resolve(app.ID, services.Decision{Approved: approved, Notes: req.Notes}) {
		status := models.ApplicationApproved
		if !approved {
			status = models.ApplicationRejected
		}
		c.JSON(http.StatusOK, gin.H{
			"application_id": app.ID,
			"status":         status,
			"message":        "Decision recorded",
		})
		return
	}

	if approved {
		app, err = h.Pipelines.ForUser(user.ID).SubmitApproved(c.Request.Context(), app.ID, req.Notes)
		if err != nil {
			respondPipelineError(c, app, err)
			return
		}
	} else {
		notes := req.Notes
		if strings.TrimSpace(notes) == "" {
			notes = "rejected by user"
		}
		if err := h.Applications.Close(app, models.ApplicationRejected, notes); err != nil {
			respondError(c, err)
			return
		}
		metrics.ApplicationsRejected.WithLabelValues("user").Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"application_id": app.ID,
		"status":         app.Status,
		"message":        "Decision recorded",
	})
}

// respondPipelineError reports a failed submission as 502 with the failed
// application, everything else through respondError.
func respondPipelineError(c *gin.Context, app *models.Application, err error) {
	if errors.Is(err, pipeline.ErrSubmissionFailed) && app != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       "Application submission failed",
			"application": app,
		})
		return
	}
	respondError(c, err)
}

func (h *ApplicationHandler) Stats(c *gin.Context) {
	stats, err := h.Applications.Stats(currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportApplications is GET /applications/export, an xlsx download.
func (h *ApplicationHandler) ExportApplications(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Export.ExportApplications(&buf, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="applications.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
