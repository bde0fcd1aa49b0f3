// Package assignments provides REST API handlers for the assignment
// lifecycle, SME reputation scores, and SME recommendations.
package assignments

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/sme-dispatch/internal/models"
	"github.com/aimd54/sme-dispatch/internal/repository"
	"github.com/aimd54/sme-dispatch/internal/service/lifecycle"
	"github.com/aimd54/sme-dispatch/internal/service/recommend"
	"github.com/aimd54/sme-dispatch/internal/service/reputation"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// LifecycleService interface for assignment lifecycle operations.
type LifecycleService interface {
	Accept(ctx context.Context, assignmentID, smeUserID uint) bool
	Reject(ctx context.Context, assignmentID, smeUserID uint, reason string, notes *string) bool
	Start(ctx context.Context, assignmentID, smeUserID uint) bool
	Complete(ctx context.Context, assignmentID, smeUserID uint) bool
	Abandon(ctx context.Context, assignmentID uint, reason, responsibilityParty string, notes *string) bool
	UpdateStatus(ctx context.Context, assignmentID uint, status string, outcomeReason, responsibilityParty *string, notes *string) bool
	AdminOverride(ctx context.Context, assignmentID uint, status string, outcomeReason, responsibilityParty *string, notes *string, adminUserID *uint) bool
}

// RecommendationService interface for SME recommendations.
type RecommendationService interface {
	Recommend(ctx context.Context, serviceRequestID uint, specialization string) []recommend.Recommendation
}

// ScoreService interface for reputation score reads.
type ScoreService interface {
	GetScore(ctx context.Context, smeUserID uint) int
}

// AssignmentReader interface for assignment lookups.
type AssignmentReader interface {
	GetActive(id uint) (*models.Assignment, error)
}

// Handler handles assignment API requests.
type Handler struct {
	lifecycleService LifecycleService
	recommendations  RecommendationService
	scores           ScoreService
	assignments      AssignmentReader
	log              *logger.Logger
}

// NewHandler creates a new assignments handler.
func NewHandler(
	lifecycleService *lifecycle.Service,
	recommendations *recommend.Engine,
	scores *reputation.Ledger,
	assignments *repository.AssignmentRepository,
	log *logger.Logger,
) *Handler {
	return &Handler{
		lifecycleService: lifecycleService,
		recommendations:  recommendations,
		scores:           scores,
		assignments:      assignments,
		log:              log,
	}
}

// NewHandlerWithInterfaces creates a new assignments handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	lifecycleService LifecycleService,
	recommendations RecommendationService,
	scores ScoreService,
	assignments AssignmentReader,
	log *logger.Logger,
) *Handler {
	return &Handler{
		lifecycleService: lifecycleService,
		recommendations:  recommendations,
		scores:           scores,
		assignments:      assignments,
		log:              log,
	}
}

// RegisterRoutes attaches the assignment API routes to a router group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/assignments/:id/accept", h.Accept)
	api.POST("/assignments/:id/reject", h.Reject)
	api.POST("/assignments/:id/start", h.Start)
	api.POST("/assignments/:id/complete", h.Complete)
	api.POST("/assignments/:id/abandon", h.Abandon)
	api.PUT("/assignments/:id/status", h.UpdateStatus)
	api.PUT("/assignments/:id/admin-override", h.AdminOverride)
	api.GET("/service-requests/:id/recommendations", h.GetRecommendations)
	api.GET("/smes/:id/score", h.GetScore)
}

type smeActionRequest struct {
	SmeUserID uint `json:"sme_user_id" binding:"required"`
}

type rejectRequest struct {
	SmeUserID uint    `json:"sme_user_id" binding:"required"`
	Reason    string  `json:"reason" binding:"required"`
	Notes     *string `json:"notes"`
}

type abandonRequest struct {
	Reason              string  `json:"reason" binding:"required"`
	ResponsibilityParty string  `json:"responsibility_party" binding:"required"`
	Notes               *string `json:"notes"`
}

type updateStatusRequest struct {
	Status              string  `json:"status" binding:"required"`
	OutcomeReason       *string `json:"outcome_reason"`
	ResponsibilityParty *string `json:"responsibility_party"`
	Notes               *string `json:"notes"`
}

type adminOverrideRequest struct {
	Status              string  `json:"status" binding:"required"`
	OutcomeReason       *string `json:"outcome_reason"`
	ResponsibilityParty *string `json:"responsibility_party"`
	Notes               *string `json:"notes"`
	AdminUserID         *uint   `json:"admin_user_id"`
}

// Accept lets the assigned SME accept an assignment.
// POST /api/v1/assignments/:id/accept.
func (h *Handler) Accept(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req smeActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "sme_user_id is required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.Accept(c.Request.Context(), assignmentID, req.SmeUserID) {
		h.errorResponse(c, http.StatusConflict, "Assignment cannot be accepted")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// Reject lets the assigned SME reject an assignment with a reason.
// POST /api/v1/assignments/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "sme_user_id and reason are required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.Reject(c.Request.Context(), assignmentID, req.SmeUserID, req.Reason, req.Notes) {
		h.errorResponse(c, http.StatusConflict, "Assignment cannot be rejected")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// Start lets the assigned SME begin work on an accepted assignment.
// POST /api/v1/assignments/:id/start.
func (h *Handler) Start(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req smeActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "sme_user_id is required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.Start(c.Request.Context(), assignmentID, req.SmeUserID) {
		h.errorResponse(c, http.StatusConflict, "Assignment cannot be started")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// Complete lets the assigned SME finish an in-progress assignment.
// POST /api/v1/assignments/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req smeActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "sme_user_id is required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.Complete(c.Request.Context(), assignmentID, req.SmeUserID) {
		h.errorResponse(c, http.StatusConflict, "Assignment cannot be completed")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// Abandon marks an assignment abandoned on behalf of a coordinator.
// POST /api/v1/assignments/:id/abandon.
func (h *Handler) Abandon(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req abandonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "reason and responsibility_party are required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.Abandon(c.Request.Context(), assignmentID, req.Reason, req.ResponsibilityParty, req.Notes) {
		h.errorResponse(c, http.StatusConflict, "Assignment cannot be abandoned")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// UpdateStatus applies a coordinator-level status change.
// PUT /api/v1/assignments/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "status is required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.UpdateStatus(c.Request.Context(), assignmentID, req.Status, req.OutcomeReason, req.ResponsibilityParty, req.Notes) {
		h.errorResponse(c, http.StatusConflict, "Assignment status cannot be updated")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// AdminOverride forces a status change, for correcting mistakes.
// PUT /api/v1/assignments/:id/admin-override.
func (h *Handler) AdminOverride(c *gin.Context) {
	assignmentID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req adminOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "status is required")
		return
	}

	if !h.assignmentExists(c, assignmentID) {
		return
	}

	if !h.lifecycleService.AdminOverride(c.Request.Context(), assignmentID, req.Status, req.OutcomeReason, req.ResponsibilityParty, req.Notes, req.AdminUserID) {
		h.errorResponse(c, http.StatusConflict, "Assignment status cannot be overridden")
		return
	}

	h.transitionResponse(c, assignmentID)
}

// GetRecommendations returns ranked SME candidates for a service request.
// GET /api/v1/service-requests/:id/recommendations?specialization=.
func (h *Handler) GetRecommendations(c *gin.Context) {
	serviceRequestID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	specialization := c.Query("specialization")

	recommendations := h.recommendations.Recommend(c.Request.Context(), serviceRequestID, specialization)

	h.log.Info().
		Uint("service_request_id", serviceRequestID).
		Str("specialization", specialization).
		Int("candidates", len(recommendations)).
		Msg("Retrieved SME recommendations")

	c.JSON(http.StatusOK, gin.H{
		"service_request_id": serviceRequestID,
		"recommendations":    recommendations,
		"total_candidates":   len(recommendations),
		"generated_at":       time.Now().UTC(),
	})
}

// GetScore returns an SME's current reputation score.
// GET /api/v1/smes/:id/score.
func (h *Handler) GetScore(c *gin.Context) {
	smeUserID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	score := h.scores.GetScore(c.Request.Context(), smeUserID)

	c.JSON(http.StatusOK, gin.H{
		"sme_user_id":  smeUserID,
		"score":        score,
		"generated_at": time.Now().UTC(),
	})
}

// Helper functions

// parseID extracts and validates the ID from the URL parameter.
func (h *Handler) parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ID: %s", idStr)
	}
	return uint(id), nil
}

// assignmentExists checks the assignment is present and active, writing a
// 404 response when it is not.
func (h *Handler) assignmentExists(c *gin.Context, assignmentID uint) bool {
	if _, err := h.assignments.GetActive(assignmentID); err != nil {
		h.errorResponse(c, http.StatusNotFound, "Assignment not found")
		return false
	}
	return true
}

// transitionResponse reloads the assignment after a successful transition
// and returns it.
func (h *Handler) transitionResponse(c *gin.Context, assignmentID uint) {
	assignment, err := h.assignments.GetActive(assignmentID)
	if err != nil {
		// The transition committed; reply with the ID even if the reload raced.
		c.JSON(http.StatusOK, gin.H{"assignment_id": assignmentID, "success": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignment": assignment,
		"success":    true,
	})
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
