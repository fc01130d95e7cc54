// Package server assembles the reference portal backend: a gin
// implementation of the endpoints the client pipeline consumes. It exists
// for local development and integration testing; the production portal API
// is an external system.
package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/internal/server/handler/doctor"
	"github.com/medilink/patient-portal/internal/server/handler/user"
	"github.com/medilink/patient-portal/internal/server/middleware"
	"github.com/medilink/patient-portal/internal/server/repository/memory"
	"github.com/medilink/patient-portal/internal/server/service/auth"
	"github.com/medilink/patient-portal/pkg/metrics"
)

type Config struct {
	JWTSecret string
	JWTExpiry time.Duration
	Metrics   *metrics.Metrics
}

// Router wires the reference backend.
type Router struct {
	engine *gin.Engine
	store  *memory.Store
	auth   *auth.Service
}

func NewRouter(cfg Config, log zerolog.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	store := memory.NewStore()
	authSvc := auth.NewService(store, cfg.JWTSecret, cfg.JWTExpiry)
	authMW := middleware.NewAuthMiddleware(authSvc)

	userHandler := user.NewHandler(store, authSvc, log)
	doctorHandler := doctor.NewHandler(store, log)

	api := engine.Group("/api")
	userHandler.RegisterRoutes(api, authMW)
	doctorHandler.RegisterRoutes(api, authMW)

	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	return &Router{engine: engine, store: store, auth: authSvc}
}

// Engine exposes the gin engine for http.Server or httptest.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Store exposes the backing store for seeding.
func (r *Router) Store() *memory.Store {
	return r.store
}

// SeedDoctors loads directory entries, typically at startup.
func (r *Router) SeedDoctors(doctors []model.DoctorSummary) {
	for _, d := range doctors {
		r.store.UpsertDoctor(context.Background(), d)
	}
}
