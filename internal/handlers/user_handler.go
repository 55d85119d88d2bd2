package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/agentice/internal/dtos"
	"github.com/justsurfingit/agentice/internal/services"
)

type UserHandler struct {
	Users   *services.UserService
	Resumes *services.ResumeService
}

func NewUserHandler(users *services.UserService, resumes *services.ResumeService) *UserHandler {
	return &UserHandler{Users: users, Resumes: resumes}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dtos.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Users.CreateUser(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var req dtos.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Users.UpdatePreferences(currentUser(c).ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteMe removes the user and all of their data.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.Users.DeleteUser(currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) CreateResume(c *gin.Context) {
	var req dtos.CreateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resume, err := h.Resumes.CreateResume(currentUser(c).ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resume)
}

func (h *UserHandler) GetCurrentResume(c *gin.Context) {
	resume, err := h.Resumes.GetCurrentResume(currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// SetCurrentResume is PUT /resumes/:id/current.
func (h *UserHandler) SetCurrentResume(c *gin.Context) {
	userID := currentUser(c).ID
	if err := h.Resumes.SetCurrentResume(userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	resume, err := h.Resumes.GetCurrentResume(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}
