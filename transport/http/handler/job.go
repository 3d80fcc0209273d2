package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/scheduler"
	"github.com/dshaw/letl-go/store"
	"github.com/gin-gonic/gin"
)

// JobHandler exposes the catalog and its recorded state over HTTP.
type JobHandler struct {
	catalog  *domain.Catalog
	statuses store.StatusStore
	logs     store.LogStore
	jobQueue *queue.SetQueue
	logger   *slog.Logger
}

// NewJobHandler builds a JobHandler. jobQueue may be nil, in which case
// RunNow is disabled — used when the admin API is wired up without a live
// supervisor, e.g. for read-only dashboards.
func NewJobHandler(catalog *domain.Catalog, statuses store.StatusStore, logs store.LogStore, jobQueue *queue.SetQueue, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		catalog:  catalog,
		statuses: statuses,
		logs:     logs,
		jobQueue: jobQueue,
		logger:   logger.With("component", "job_handler"),
	}
}

type jobSummary struct {
	Name           string   `json:"name"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Retries        int      `json:"retries"`
	Dependencies   []string `json:"dependencies"`
}

// List returns every registered job and its current status, if any.
func (h *JobHandler) List(c *gin.Context) {
	names := h.catalog.Names()
	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		job, _ := h.catalog.Get(name)
		status, err := h.statuses.Status(c.Request.Context(), name)
		if err != nil {
			h.logger.Error("list: status lookup failed", "job", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
			return
		}
		out = append(out, gin.H{"job": toSummary(job), "status": status})
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one job's definition and current status.
func (h *JobHandler) Get(c *gin.Context) {
	name := c.Param("name")
	job, ok := h.catalog.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}

	status, err := h.statuses.Status(c.Request.Context(), name)
	if err != nil {
		h.logger.Error("get: status lookup failed", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": toSummary(job), "status": status})
}

// History returns the job's recent terminal dispatches, most recent first.
func (h *JobHandler) History(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.catalog.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}

	limit := parseLimit(c, 50)
	history, err := h.statuses.History(c.Request.Context(), name, limit)
	if err != nil {
		h.logger.Error("history: lookup failed", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, history)
}

// Logs returns the job's most recent log records.
func (h *JobHandler) Logs(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.catalog.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}

	limit := parseLimit(c, 200)
	records, err := h.logs.Recent(c.Request.Context(), name, limit)
	if err != nil {
		h.logger.Error("logs: lookup failed", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, records)
}

// RunNow enqueues the job for immediate dispatch, bypassing its schedule.
// Dependency and already-running checks are evaluated here, synchronously,
// so an admin-triggered run can't race a live dispatch of the same job or
// jump ahead of an unresolved dependency the way an unchecked enqueue would.
func (h *JobHandler) RunNow(c *gin.Context) {
	name := c.Param("name")
	job, ok := h.catalog.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
		return
	}
	if h.jobQueue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run-now is not available on this instance"})
		return
	}

	ctx := c.Request.Context()
	inFlight, err := scheduler.InFlight(ctx, h.statuses, job, time.Now())
	if err != nil {
		h.logger.Error("run now: in-flight check failed", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	if inFlight {
		c.JSON(http.StatusConflict, gin.H{"error": "job is already running"})
		return
	}

	satisfied, err := scheduler.DependenciesSatisfied(ctx, h.statuses, job)
	if err != nil {
		h.logger.Error("run now: dependency check failed", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	if !satisfied {
		c.JSON(http.StatusConflict, gin.H{"error": "job dependencies are not satisfied"})
		return
	}

	if err := h.jobQueue.Put(name); err != nil {
		if errors.Is(err, domain.ErrQueueClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue is shut down"})
			return
		}
		h.logger.Error("run now: enqueue failed", "job", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": name, "queued": true})
}

func toSummary(job domain.Job) jobSummary {
	deps := make([]string, 0, len(job.Dependencies))
	for dep := range job.Dependencies {
		deps = append(deps, dep)
	}
	return jobSummary{
		Name:           job.Name,
		TimeoutSeconds: job.TimeoutSeconds,
		Retries:        job.Retries,
		Dependencies:   deps,
	}
}

func parseLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
