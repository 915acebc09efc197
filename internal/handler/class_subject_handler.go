package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
	"github.com/shulecore/academic-api/pkg/response"
)

// CatalogServiceAPI is the surface the handler needs from the catalog
// service.
type CatalogServiceAPI interface {
	ListByClass(ctx context.Context, classID string, category models.SubjectCategory, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
	CoreSubjects(ctx context.Context, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error)
	CreateBinding(ctx context.Context, binding *models.ClassSubject, scope tenancy.Scope) error
}

// ClassSubjectHandler exposes the class-subject catalog endpoints.
type ClassSubjectHandler struct {
	catalog CatalogServiceAPI
}

// NewClassSubjectHandler constructs ClassSubjectHandler.
func NewClassSubjectHandler(catalog CatalogServiceAPI) *ClassSubjectHandler {
	return &ClassSubjectHandler{catalog: catalog}
}

// ListByClass godoc
// @Summary List subject bindings for a class
// @Tags Catalog
// @Produce json
// @Param classId path string true "Class ID"
// @Param category query string false "Filter by category (CORE, ELECTIVE, ...)"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/subjects [get]
func (h *ClassSubjectHandler) ListByClass(c *gin.Context) {
	category := models.SubjectCategory(strings.ToUpper(c.Query("category")))
	if category != "" && !category.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown subject category"))
		return
	}
	bindings, err := h.catalog.ListByClass(c.Request.Context(), c.Param("classId"), category, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bindings, nil)
}

// CoreSubjects godoc
// @Summary List core subject bindings for a class
// @Tags Catalog
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/subjects/core [get]
func (h *ClassSubjectHandler) CoreSubjects(c *gin.Context) {
	bindings, err := h.catalog.CoreSubjects(c.Request.Context(), c.Param("classId"), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bindings, nil)
}

type createBindingRequest struct {
	SchoolID       string  `json:"school_id" binding:"required"`
	ClassID        string  `json:"class_id" binding:"required"`
	StreamID       *string `json:"stream_id,omitempty"`
	SubjectID      string  `json:"subject_id" binding:"required"`
	AcademicYearID string  `json:"academic_year_id" binding:"required"`
	Term           *string `json:"term,omitempty"`
	Category       string  `json:"category" binding:"required"`
	TeacherID      *string `json:"teacher_id,omitempty"`
}

// CreateBinding godoc
// @Summary Bind a subject to a class
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body createBindingRequest true "Binding payload"
// @Success 201 {object} response.Envelope
// @Router /class-subjects [post]
func (h *ClassSubjectHandler) CreateBinding(c *gin.Context) {
	var req createBindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	binding := &models.ClassSubject{
		SchoolID:       req.SchoolID,
		ClassID:        req.ClassID,
		StreamID:       req.StreamID,
		SubjectID:      req.SubjectID,
		AcademicYearID: req.AcademicYearID,
		Term:           req.Term,
		Category:       models.SubjectCategory(strings.ToUpper(req.Category)),
		TeacherID:      req.TeacherID,
	}
	if err := h.catalog.CreateBinding(c.Request.Context(), binding, scopeFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, binding)
}
