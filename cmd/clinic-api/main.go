package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medrex/clinic-api/internal/clinical"
	"github.com/medrex/clinic-api/internal/gateway"
	"github.com/medrex/clinic-api/internal/iam"
	"github.com/medrex/clinic-api/internal/inventory"
	internalrbac "github.com/medrex/clinic-api/internal/rbac"
	"github.com/medrex/clinic-api/internal/reporting"
	"github.com/medrex/clinic-api/internal/scheduling"
	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/config"
	"github.com/medrex/clinic-api/pkg/database"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
)

const (
	serviceName    = "clinic-api"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithComponent("main").WithField("version", serviceVersion).Info("Starting clinic API")

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.CreateSchema(context.Background()); err != nil {
			log.WithError(err).Fatal("Failed to create database schema")
		}
	}

	// Monitoring
	metrics := monitoring.NewMetricsCollector(serviceName)
	tracing, err := monitoring.NewTracingManager(&monitoring.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		JaegerEndpoint: cfg.Monitoring.JaegerEndpoint,
		Environment:    cfg.Environment,
		SamplingRate:   cfg.Monitoring.SamplingRate,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize tracing")
	}

	store := monitoring.NewDatabaseHealthChecker(db)
	health := monitoring.NewHealthManager(serviceName, serviceVersion)
	health.RegisterChecker("database", store)

	// Repositories
	accounts := iam.NewAccountRepository(db, log)
	appointments := scheduling.NewRepository(db, log)
	prescriptions := clinical.NewPrescriptionRepository(db, log)
	records := clinical.NewMedicalRecordRepository(db, log)
	stock := inventory.NewRepository(db, log)
	reports := reporting.NewRepository(db, log)

	// Access control
	policy := internalrbac.NewEngine(log, metrics)
	resolver := internalrbac.NewResolver(accounts, log)

	responder := api.NewResponder(log, cfg.IsDevelopment())
	tokens := gateway.NewTokenValidator(cfg.JWT.SecretKey,
		time.Duration(cfg.JWT.AccessTokenTTL)*time.Second, cfg.JWT.Issuer)

	// Services
	iamService := iam.NewService(log, accounts, iam.NewPasswordManager(), tokens, policy, metrics, responder)
	schedulingService := scheduling.New(log, appointments, accounts, policy, resolver, metrics, responder)
	clinicalService := clinical.NewService(log, prescriptions, records, appointments, accounts, policy, resolver, responder)
	inventoryService := inventory.NewService(log, stock, policy, responder)
	reportingService := reporting.NewService(log, reports, stock, policy, responder)

	requestsPerMin := 0
	if cfg.RateLimit.Enabled {
		requestsPerMin = cfg.RateLimit.RequestsPerMin
	}

	server := gateway.NewServer(
		&gateway.Config{
			Addr:           cfg.Server.Addr(),
			ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestsPerMin: requestsPerMin,
		},
		&gateway.Dependencies{
			Logger:     log,
			Responder:  responder,
			Tokens:     tokens,
			Metrics:    metrics,
			Monitoring: monitoring.NewMonitoringMiddleware(metrics, tracing, log),
			Health:     health,
			Store:      store,
		},
		[]gateway.PublicRouteRegistrar{iamService},
		[]gateway.RouteRegistrar{iamService, schedulingService, clinicalService, inventoryService, reportingService},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server failed")
		}
	case <-ctx.Done():
	}

	log.WithComponent("main").Info("Shutting down clinic API...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.WithComponent("main").Info("Clinic API stopped")
}
