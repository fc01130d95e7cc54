package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medilink/patient-portal/internal/config"
	"github.com/medilink/patient-portal/internal/model"
	"github.com/medilink/patient-portal/internal/server"
	"github.com/medilink/patient-portal/internal/server/repository/memory"
	"github.com/medilink/patient-portal/internal/server/service/auth"
	"github.com/medilink/patient-portal/pkg/logger"
	"github.com/medilink/patient-portal/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.New(&logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console})

	m := metrics.New()
	r := server.NewRouter(server.Config{
		JWTSecret: cfg.JWT.Secret,
		JWTExpiry: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		Metrics:   m,
	}, appLog)

	seed(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLog.Info().Int("port", cfg.Server.Port).Msg("portal backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error().Err(err).Msg("forced shutdown")
	}
}

// seed loads a demo account and directory so the client flows work against a
// fresh instance.
func seed(r *server.Router) {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed demo account")
	}
	demo := &memory.User{
		Record: model.PatientRecord{
			Email:      "patient@example.com",
			Gender:     "Female",
			DOB:        "1992-04-16",
			BloodGroup: "O+",
			Age:        "33",
		},
		PasswordHash: hash,
	}
	if err := r.Store().CreateUser(context.Background(), demo); err != nil {
		log.Fatal().Err(err).Msg("failed to seed demo account")
	}

	r.SeedDoctors([]model.DoctorSummary{
		{Name: "Dr. Asha Rao", Email: "asha.rao@clinic.example", Speciality: "Cardiology", Available: true},
		{Name: "Dr. Marcus Webb", Email: "marcus.webb@clinic.example", Speciality: "Dermatology", Available: true},
		{Name: "Dr. Lena Fischer", Email: "lena.fischer@clinic.example", Speciality: "Pediatrics", Available: false},
	})
}
