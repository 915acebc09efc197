package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/service"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
	"github.com/shulecore/academic-api/pkg/response"
)

// StudentServiceAPI is the surface the handler needs from the student
// service.
type StudentServiceAPI interface {
	Create(ctx context.Context, req service.CreateStudentRequest, scope tenancy.Scope) (*models.Student, error)
	Get(ctx context.Context, id string, scope tenancy.Scope) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter, scope tenancy.Scope) ([]models.Student, *models.Pagination, error)
}

// StudentHandler exposes student record endpoints.
type StudentHandler struct {
	students StudentServiceAPI
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students StudentServiceAPI) *StudentHandler {
	return &StudentHandler{students: students}
}

// Create godoc
// @Summary Register a new student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Name or admission number search"
// @Param classId query string false "Filter by active enrollment class"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = c.Query("search")
	filter.ClassID = c.Query("classId")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.students.List(c.Request.Context(), filter, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}
