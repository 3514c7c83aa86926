package api

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "trend-pipeline/docs"
	"trend-pipeline/internal/api/handler"
	"trend-pipeline/internal/pipeline"
	"trend-pipeline/pkg/router"
)

// Deps are the collaborators the HTTP API serves from.
type Deps struct {
	Store      handler.RunStore
	Executor   handler.Executor
	Registry   *pipeline.Registry
	Tracker    *pipeline.Tracker
	RunTimeout time.Duration
	Logger     *slog.Logger
}

// NewRouter builds the API router.
func NewRouter(d Deps) *router.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := router.New(d.Logger)
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *router.Router, d Deps) {
	runs := &handler.RunsHandler{Store: d.Store, Executor: d.Executor, Timeout: d.RunTimeout, Logger: d.Logger}
	schemas := &handler.SchemasHandler{Registry: d.Registry}

	r.POST("/api/v1/runs", runs.CreateRun)
	r.GET("/api/v1/runs", runs.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/series", runs.GetSeries)
	r.GET("/api/v1/runs/*/trends", runs.GetTrends)
	// Generic run route last
	r.GET("/api/v1/runs/*", runs.GetRun)
	r.GET("/api/v1/schemas", schemas.ListSchemas)
	r.GET("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", d.Tracker.Handler())
	r.Handle("/swagger/", httpSwagger.WrapHandler)
}
