package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/service"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
	"github.com/shulecore/academic-api/pkg/response"
)

// SequenceServiceAPI is the surface the handler needs from the sequence
// service.
type SequenceServiceAPI interface {
	Next(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string, overrides *service.SequenceConfigOverrides) (string, error)
	Peek(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string) (string, error)
	CurrentValue(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string) (*int64, error)
	Reset(ctx context.Context, kind models.NumberKind, startValue int64, scope tenancy.Scope, schoolID string) error
	Batch(ctx context.Context, kind models.NumberKind, count int, scope tenancy.Scope, schoolID string) ([]string, error)
}

// SequenceHandler exposes the number registry endpoints.
type SequenceHandler struct {
	sequences SequenceServiceAPI
}

// NewSequenceHandler constructs SequenceHandler.
func NewSequenceHandler(sequences SequenceServiceAPI) *SequenceHandler {
	return &SequenceHandler{sequences: sequences}
}

func kindFromParam(c *gin.Context) models.NumberKind {
	return models.NumberKind(strings.ToUpper(c.Param("kind")))
}

// Next godoc
// @Summary Claim the next identifier for a kind
// @Tags Sequences
// @Produce json
// @Param kind path string true "Number kind (ADMISSION, EMPLOYEE, RECEIPT)"
// @Param schoolId query string false "Explicit school (superuser only)"
// @Success 200 {object} response.Envelope
// @Router /sequences/{kind}/next [post]
func (h *SequenceHandler) Next(c *gin.Context) {
	number, err := h.sequences.Next(c.Request.Context(), kindFromParam(c), scopeFromContext(c), c.Query("schoolId"), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"number": number}, nil)
}

// Peek godoc
// @Summary Preview the next identifier without claiming it
// @Tags Sequences
// @Produce json
// @Param kind path string true "Number kind"
// @Param schoolId query string false "Explicit school (superuser only)"
// @Success 200 {object} response.Envelope
// @Router /sequences/{kind}/peek [get]
func (h *SequenceHandler) Peek(c *gin.Context) {
	number, err := h.sequences.Peek(c.Request.Context(), kindFromParam(c), scopeFromContext(c), c.Query("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	// Advisory only: a concurrent caller may claim this value first.
	response.JSON(c, http.StatusOK, gin.H{"number": number}, nil)
}

// Current godoc
// @Summary Read the raw counter value
// @Tags Sequences
// @Produce json
// @Param kind path string true "Number kind"
// @Param schoolId query string false "Explicit school (superuser only)"
// @Success 200 {object} response.Envelope
// @Router /sequences/{kind}/current [get]
func (h *SequenceHandler) Current(c *gin.Context) {
	value, err := h.sequences.CurrentValue(c.Request.Context(), kindFromParam(c), scopeFromContext(c), c.Query("schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"current_value": value}, nil)
}

type resetSequenceRequest struct {
	StartValue int64  `json:"start_value" binding:"min=0"`
	SchoolID   string `json:"school_id,omitempty"`
}

// Reset godoc
// @Summary Administratively reset a counter
// @Tags Sequences
// @Accept json
// @Produce json
// @Param kind path string true "Number kind"
// @Param payload body resetSequenceRequest true "Reset payload"
// @Success 204 "No Content"
// @Router /sequences/{kind}/reset [put]
func (h *SequenceHandler) Reset(c *gin.Context) {
	var req resetSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.sequences.Reset(c.Request.Context(), kindFromParam(c), req.StartValue, scopeFromContext(c), req.SchoolID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type batchSequenceRequest struct {
	Count    int    `json:"count" binding:"required"`
	SchoolID string `json:"school_id,omitempty"`
}

// Batch godoc
// @Summary Claim a batch of identifiers
// @Tags Sequences
// @Accept json
// @Produce json
// @Param kind path string true "Number kind"
// @Param payload body batchSequenceRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /sequences/{kind}/batch [post]
func (h *SequenceHandler) Batch(c *gin.Context) {
	var req batchSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	numbers, err := h.sequences.Batch(c.Request.Context(), kindFromParam(c), req.Count, scopeFromContext(c), req.SchoolID)
	if err != nil {
		// Identifiers claimed before the failure stay claimed; return them so
		// the caller can recover the partial batch.
		if len(numbers) > 0 {
			appErr := appErrors.FromError(err)
			response.JSON(c, appErr.Status, gin.H{"numbers": numbers}, nil, map[string]interface{}{"error": appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"numbers": numbers}, nil)
}
