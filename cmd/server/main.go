package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"fhir-bridge/internal/audit"
	"fhir-bridge/internal/conformance"
	patienthandler "fhir-bridge/internal/patient/handler"
	"fhir-bridge/internal/person"
	"fhir-bridge/internal/pipeline"
	"fhir-bridge/internal/pipeline/tracer"
	"fhir-bridge/internal/platform/config"
	"fhir-bridge/internal/platform/database"
	"fhir-bridge/internal/platform/health"
	"fhir-bridge/internal/platform/httpserver"
	"fhir-bridge/internal/platform/kafka/producer"
	"fhir-bridge/internal/platform/logger"
	"fhir-bridge/internal/platform/metrics"
	"fhir-bridge/internal/platform/middleware"
	"fhir-bridge/internal/registry"
	"fhir-bridge/internal/runlog"
)

const maxBodyBytes = 1 << 20

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing fhir-bridge",
		"addr", cfg.Addr,
		"registry_base_url", cfg.RegistryBaseURL,
	)

	engine, err := conformance.NewGoFHIREngine()
	if err != nil {
		log.Error("initializing conformance engine", "error", err)
		os.Exit(1)
	}

	schema, err := person.NewSchemaValidator()
	if err != nil {
		log.Error("compiling person schema", "error", err)
		os.Exit(1)
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("connecting to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var store runlog.Store = runlog.NewInMemoryStore()
	if pool != nil {
		store = runlog.NewPostgresStore(pool.DB())
		log.Info("run log backed by postgres")
	}

	var auditor audit.Publisher = audit.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = cfg.KafkaBrokers
		kafkaProducer, err := producer.New(producerCfg, log)
		if err != nil {
			log.Error("initializing kafka producer", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditor = audit.NewKafkaPublisher(kafkaProducer, cfg.AuditTopic, log)
		log.Info("audit events enabled", "topic", cfg.AuditTopic)
	}

	m := metrics.New()

	client := registry.NewPersonClient(cfg.RegistryBaseURL, cfg.RegistryTimeout)

	runner := pipeline.NewRunner(engine, schema, client, log,
		pipeline.WithMetrics(m),
		pipeline.WithRunLog(store),
		pipeline.WithAuditor(auditor),
		pipeline.WithTracer(tracer.NewOTel()),
	)

	healthHandler := health.New()
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeFHIRJSON)
		r.Use(middleware.BodyLimit(maxBodyBytes))
		patienthandler.New(runner, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
