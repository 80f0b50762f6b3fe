package handler

import (
	"context"
	"errors"
	"net/http"

	"brewpos/internal/apierror"
	"brewpos/internal/dto"
	"brewpos/internal/worker"

	"github.com/gin-gonic/gin"
)

// DeadLetterStore is satisfied by *worker.DeadLetters.
type DeadLetterStore interface {
	Counts(ctx context.Context) (map[string]int64, error)
	List(ctx context.Context, queue string, limit int64) ([]worker.DeadLetter, error)
	Requeue(ctx context.Context, queue string, limit int) (int, error)
}

// JobsHandler lets managers inspect and replay parked receipt and email jobs.
type JobsHandler struct{ dead DeadLetterStore }

func NewJobsHandler(dead DeadLetterStore) *JobsHandler {
	return &JobsHandler{dead: dead}
}

func (h *JobsHandler) Counts(c *gin.Context) {
	counts, err := h.dead.Counts(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to count dead letters")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// List godoc
// @Summary List parked jobs of a queue, newest first
// @Tags jobs
// @Produce json
// @Param queue path string true "receipt or email"
// @Param limit query int false "Max entries (default 20)"
// @Success 200 {array} worker.DeadLetter
// @Failure 404 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/jobs/dead-letters/{queue} [get]
func (h *JobsHandler) List(c *gin.Context) {
	var q dto.DeadLetterQuery
	if !bindQuery(c, &q) {
		return
	}
	entries, err := h.dead.List(c.Request.Context(), c.Param("queue"), int64(q.Limit))
	if err != nil {
		h.fail(c, err, "Failed to list dead letters")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Requeue moves parked jobs back onto their queue, oldest first.
func (h *JobsHandler) Requeue(c *gin.Context) {
	var q dto.DeadLetterQuery
	if !bindQuery(c, &q) {
		return
	}
	queue := c.Param("queue")
	n, err := h.dead.Requeue(c.Request.Context(), queue, q.Limit)
	if err != nil && n == 0 {
		h.fail(c, err, "Failed to requeue dead letters")
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, dto.RequeueResponse{Queue: queue, Requeued: n})
}

func (h *JobsHandler) fail(c *gin.Context, err error, fallback string) {
	if errors.Is(err, worker.ErrUnknownQueue) {
		c.JSON(http.StatusNotFound, apierror.New("Unknown job queue"))
		return
	}
	respondError(c, err, fallback)
}
