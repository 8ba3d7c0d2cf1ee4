package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/app"
	"github.com/yourusername/sldl-jobs/internal/domain"
)

// JobService is the part of app.JobManager the HTTP layer drives
type JobService interface {
	StartJob(ctx context.Context, req app.StartRequest) (string, error)
	ListJobs() []domain.Job
	GetJob(id string) (domain.Job, bool)
	Stats() domain.JobStats
	CancelJob(ctx context.Context, id string) error
	ClearTerminalJobs(ctx context.Context) int
	IsRunning() bool
	ActiveProcesses() int
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	jobs   JobService
	logger *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs JobService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// StartJob handles POST /api/v1/jobs
func (h *JobHandler) StartJob(c *gin.Context) {
	var req app.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.jobs.StartJob(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to start job", zap.String("query", req.Query), zap.Error(err))
		writeError(c, err)
		return
	}

	job, ok := h.jobs.GetJob(id)
	if !ok {
		// Already cleared; the id is still valid for history lookups
		c.JSON(http.StatusCreated, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.jobs.GetJob(c.Param("id"))
	if !ok {
		writeError(c, domain.ErrJobNotFound)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs := h.jobs.ListJobs()

	if status := c.Query("status"); status != "" {
		filtered := make([]domain.Job, 0, len(jobs))
		for _, j := range jobs {
			if string(j.Status) == status {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}

	c.JSON(http.StatusOK, jobs)
}

// GetStats handles GET /api/v1/jobs/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.Stats())
}

// CancelJob handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")

	if err := h.jobs.CancelJob(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to cancel job", zap.String("id", id), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job canceled"})
}

// ClearJobs handles DELETE /api/v1/jobs
func (h *JobHandler) ClearJobs(c *gin.Context) {
	removed := h.jobs.ClearTerminalJobs(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// writeError maps domain errors onto HTTP status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var spawnErr *domain.ProcessSpawnError

	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyQuery):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrManagerStopped):
		status = http.StatusServiceUnavailable
	case errors.As(err, &spawnErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
