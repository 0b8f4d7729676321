package api

import (
	"log/slog"

	"cineflow/console/internal/auth"
	"cineflow/console/internal/job"
	"cineflow/console/internal/store"
	"cineflow/console/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxUploadBytes = 32 << 20

type Server struct {
	auth     *auth.Service
	store    *store.MemoryStore
	jobs     *job.Service
	log      *slog.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

func NewServer(authSvc *auth.Service, st *store.MemoryStore, jobs *job.Service, logger *slog.Logger, metrics *telemetry.Metrics, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = telemetry.Discard()
	}
	if metrics == nil {
		metrics = telemetry.NewIsolatedMetrics()
	}
	return &Server{
		auth:     authSvc,
		store:    st,
		jobs:     jobs,
		log:      logger,
		metrics:  metrics,
		gatherer: gatherer,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(MetricsMiddleware(s.metrics))
	r.Use(RequestLogMiddleware(s.log))

	r.GET("/healthz", s.healthz)
	r.GET("/uploads/*name", s.serveUpload)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", s.healthz)
	v1.POST("/auth/token", s.exchangeToken)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.auth))
	{
		authed.POST("/client-events", s.recordClientEvents)

		authed.GET("/storyboards", s.listStoryboards)
		authed.POST("/storyboards", s.uploadStoryboard)
		authed.GET("/storyboards/:storyboard_id", s.getStoryboard)
		authed.DELETE("/storyboards/:storyboard_id", s.deleteStoryboard)
		authed.GET("/storyboards/:storyboard_id/segments", s.listSegments)
		authed.PATCH("/segments/:segment_id", s.patchSegment)
		authed.POST("/segments/:segment_id/assets/start-image", s.uploadStartImage)

		authed.GET("/runs", s.listRuns)
		authed.POST("/runs", s.createRun)
		authed.GET("/runs/:run_id", s.getRun)
		authed.DELETE("/runs/:run_id", s.deleteRun)
		authed.GET("/runs/:run_id/tasks", s.listRunTasks)

		authed.GET("/tasks/:task_id", s.getTask)
		authed.POST("/tasks/:task_id/retry", s.retryTask)
		authed.GET("/tasks/:task_id/download", s.downloadTask)
		authed.GET("/tasks/:task_id/metadata", s.taskMetadata)

		authed.GET("/providers", s.listProviders)
		authed.GET("/providers/:provider_id", s.getProvider)
		authed.GET("/providers/:provider_id/capabilities", s.providerCapabilities)
		authed.GET("/models", s.listModels)
		authed.GET("/models/:model_id", s.getModel)

		admin := authed.Group("/admin")
		admin.GET("/providers", s.listProviders)
		admin.PATCH("/providers/:provider_id", s.patchProvider)
		admin.GET("/models", s.adminListModels)
		admin.GET("/models/:model_id", s.adminGetModel)
		admin.PATCH("/models/:model_id", s.patchModel)
		admin.PATCH("/models/:model_id/providers/:provider_id", s.patchModelProviders)
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	writeJSON(c, 200, gin.H{"status": "ok"})
}
