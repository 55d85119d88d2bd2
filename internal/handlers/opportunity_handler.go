package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/models"
	"github.com/justsurfingit/agentice/internal/services"
)

type JobExtractor interface {
	ExtractJobDetails(ctx context.Context, rawHTML string) (agents.JobExtraction, error)
}

type PageFetcher interface {
	FetchJobPage(ctx context.Context, pageURL string) (string, error)
}

type OpportunityHandler struct {
	Extractor     JobExtractor
	Pages         PageFetcher
	Opportunities *services.OpportunityService
}

func NewOpportunityHandler(extractor JobExtractor, pages PageFetcher, opps *services.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{Extractor: extractor, Pages: pages, Opportunities: opps}
}

// ExtractJob is POST /opportunities/extract. It takes the raw page, or a URL
// to fetch it from, and returns the structured fields.
func (h *OpportunityHandler) ExtractJob(c *gin.Context) {
	var req dtos.JobExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	raw := req.RawHTML
	if raw == "" {
		if req.URL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "raw_html or url is required"})
			return
		}
		page, err := h.Pages.FetchJobPage(c.Request.Context(), req.URL)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not fetch job page"})
			return
		}
		raw = page
	}

	extracted, err := h.Extractor.ExtractJobDetails(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, agents.ErrExtractionFailed) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "AI Extraction failed"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    extracted,
	})
}

// CreateOpportunity is POST /opportunities.
func (h *OpportunityHandler) CreateOpportunity(c *gin.Context) {
	var req dtos.OpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	opp, err := h.Opportunities.CreateOpportunity(currentUser(c).ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, opp)
}

func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	opps, err := h.Opportunities.ListOpportunities(
		currentUser(c).ID,
		models.OpportunityStatus(c.Query("status")),
		queryLimit(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opportunities": opps, "count": len(opps)})
}

func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	opp, err := h.Opportunities.GetOpportunity(currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opp)
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
