package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Example(ctx context.Context) (*dto.GenerateTimetableResponse, error)
	Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, *models.Pagination, error)
	GetSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
	Delete(ctx context.Context, timetableID string) error
	Export(ctx context.Context, proposalID string, format dto.ExportFormat) (*dto.ExportedFile, error)
	ExportTimetable(ctx context.Context, timetableID string, format dto.ExportFormat) (*dto.ExportedFile, error)
}

type timetableJobs interface {
	Submit(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.SolveJobResponse, error)
	Get(ctx context.Context, id, actorID string, role models.UserRole) (*dto.SolveJobResponse, error)
}

// TimetableHandler exposes timetable generation endpoints.
type TimetableHandler struct {
	service timetableService
	jobs    timetableJobs
}

// NewTimetableHandler constructs the handler. jobs may be nil when the worker queue is disabled.
func NewTimetableHandler(svc timetableService, jobs timetableJobs) *TimetableHandler {
	return &TimetableHandler{service: svc, jobs: jobs}
}

// Generate godoc
// @Summary Solve a weekly timetable proposal
// @Description Builds the model for the grid, applies preferences and hard constraints, solves it and returns the hour x day grid.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Timetable grid"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.preview(c, result)
}

// Example godoc
// @Summary Solve the built-in five day example
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/example [get]
func (h *TimetableHandler) Example(c *gin.Context) {
	result, err := h.service.Example(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.preview(c, result)
}

func (h *TimetableHandler) preview(c *gin.Context, result *dto.GenerateTimetableResponse) {
	middleware.SetCacheHit(c, result.Cached)
	middleware.SetMeta(c, "mode", "preview")
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// SubmitJob godoc
// @Summary Queue a timetable solve
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Timetable grid"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /timetables/jobs [post]
func (h *TimetableHandler) SubmitJob(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "background solving is disabled"))
		return
	}
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	caller, _ := actorFromContext(c)
	result, err := h.jobs.Submit(c.Request.Context(), req, caller.id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, c.FullPath()+"/"+result.Job.ID, result)
}

// GetJob godoc
// @Summary Poll a queued timetable solve
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) GetJob(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "background solving is disabled"))
		return
	}
	caller, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.jobs.Get(c.Request.Context(), c.Param("id"), caller.id, caller.role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist a proposal as a new timetable version
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List saved timetables for a class-term
// @Tags Timetables
// @Produce json
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	query := dto.TimetableQuery{
		TermID:  c.Query("termId"),
		ClassID: c.Query("classId"),
	}
	var err error
	if query.Page, err = intQuery(c, "page"); err != nil {
		response.Error(c, err)
		return
	}
	if query.PageSize, err = intQuery(c, "pageSize"); err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Slots godoc
// @Summary Get slots of a saved timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/slots [get]
func (h *TimetableHandler) Slots(c *gin.Context) {
	slots, err := h.service.GetSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Delete godoc
// @Summary Delete an unpublished timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportProposal godoc
// @Summary Download a proposal grid
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Proposal ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/proposals/{id}/export [get]
func (h *TimetableHandler) ExportProposal(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), dto.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// ExportTimetable godoc
// @Summary Download a saved timetable grid
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) ExportTimetable(c *gin.Context) {
	file, err := h.service.ExportTimetable(c.Request.Context(), c.Param("id"), dto.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *dto.ExportedFile) {
	response.Attachment(c, file.FileName, file.ContentType, file.Content)
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return value, nil
}
