// Package router assembles the admin API: read access to the catalog and
// its recorded state, plus a force-run escape hatch, behind a single
// static bearer token.
package router

import (
	"log/slog"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/internal/health"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/store"
	"github.com/dshaw/letl-go/transport/http/handler"
	"github.com/dshaw/letl-go/transport/http/middleware"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

// New builds the admin API's gin.Engine. jobQueue may be nil to disable
// the run-now endpoint.
func New(catalog *domain.Catalog, statuses store.StatusStore, logs store.LogStore, checker *health.Checker, jobQueue *queue.SetQueue, adminToken string, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	jobHandler := handler.NewJobHandler(catalog, statuses, logs, jobQueue, logger)
	healthHandler := handler.NewHealthHandler(checker)

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	jobs := r.Group("/jobs", middleware.Auth([]byte(adminToken)))
	jobs.GET("", jobHandler.List)
	jobs.GET("/:name", jobHandler.Get)
	jobs.GET("/:name/history", jobHandler.History)
	jobs.GET("/:name/logs", jobHandler.Logs)
	jobs.POST("/:name/run", jobHandler.RunNow)

	return r
}
