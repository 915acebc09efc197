package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
	"github.com/shulecore/academic-api/pkg/response"
)

// SubjectEnrollmentServiceAPI is the surface the handler needs from the
// subject enrollment service.
type SubjectEnrollmentServiceAPI interface {
	EnrollInSubject(ctx context.Context, studentID, classSubjectID, enrollmentID string, scope tenancy.Scope) (*models.SubjectEnrollment, error)
	BulkEnroll(ctx context.Context, enrollmentIDs []string, classSubjectID string, scope tenancy.Scope) (int, error)
	Drop(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) error
	AvailableElectives(ctx context.Context, enrollmentID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
	List(ctx context.Context, filter models.SubjectEnrollmentFilter, scope tenancy.Scope) ([]models.SubjectEnrollmentDetail, *models.Pagination, error)
}

// SubjectEnrollmentHandler exposes per-subject enrollment endpoints.
type SubjectEnrollmentHandler struct {
	subjects SubjectEnrollmentServiceAPI
}

// NewSubjectEnrollmentHandler constructs SubjectEnrollmentHandler.
func NewSubjectEnrollmentHandler(subjects SubjectEnrollmentServiceAPI) *SubjectEnrollmentHandler {
	return &SubjectEnrollmentHandler{subjects: subjects}
}

type enrollInSubjectRequest struct {
	StudentID      string `json:"student_id" binding:"required"`
	ClassSubjectID string `json:"class_subject_id" binding:"required"`
	EnrollmentID   string `json:"enrollment_id" binding:"required"`
}

// Enroll godoc
// @Summary Enroll a student in a subject
// @Tags Subject Enrollments
// @Accept json
// @Produce json
// @Param payload body enrollInSubjectRequest true "Subject enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /subject-enrollments [post]
func (h *SubjectEnrollmentHandler) Enroll(c *gin.Context) {
	var req enrollInSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.subjects.EnrollInSubject(c.Request.Context(), req.StudentID, req.ClassSubjectID, req.EnrollmentID, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

type bulkEnrollRequest struct {
	EnrollmentIDs  []string `json:"enrollment_ids" binding:"required"`
	ClassSubjectID string   `json:"class_subject_id" binding:"required"`
}

// BulkEnroll godoc
// @Summary Enroll many enrollments into one subject
// @Tags Subject Enrollments
// @Accept json
// @Produce json
// @Param payload body bulkEnrollRequest true "Bulk enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /subject-enrollments/bulk [post]
func (h *SubjectEnrollmentHandler) BulkEnroll(c *gin.Context) {
	var req bulkEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	count, err := h.subjects.BulkEnroll(c.Request.Context(), req.EnrollmentIDs, req.ClassSubjectID, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"enrolled_count": count}, nil)
}

type dropSubjectRequest struct {
	EnrollmentID   string `json:"enrollment_id" binding:"required"`
	ClassSubjectID string `json:"class_subject_id" binding:"required"`
}

// Drop godoc
// @Summary Drop a subject
// @Tags Subject Enrollments
// @Accept json
// @Produce json
// @Param payload body dropSubjectRequest true "Drop payload"
// @Success 204 "No Content"
// @Router /subject-enrollments/drop [post]
func (h *SubjectEnrollmentHandler) Drop(c *gin.Context) {
	var req dropSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.subjects.Drop(c.Request.Context(), req.EnrollmentID, req.ClassSubjectID, scopeFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableElectives godoc
// @Summary List electives an enrollment can still join
// @Tags Subject Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/available-electives [get]
func (h *SubjectEnrollmentHandler) AvailableElectives(c *gin.Context) {
	bindings, err := h.subjects.AvailableElectives(c.Request.Context(), c.Param("id"), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bindings, nil)
}

// List godoc
// @Summary List subject enrollments
// @Tags Subject Enrollments
// @Produce json
// @Param enrollmentId query string false "Filter by enrollment"
// @Param classSubjectId query string false "Filter by class subject binding"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /subject-enrollments [get]
func (h *SubjectEnrollmentHandler) List(c *gin.Context) {
	var filter models.SubjectEnrollmentFilter
	filter.EnrollmentID = c.Query("enrollmentId")
	filter.ClassSubjectID = c.Query("classSubjectId")
	filter.Status = models.SubjectEnrollmentStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	records, pagination, err := h.subjects.List(c.Request.Context(), filter, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
