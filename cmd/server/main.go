package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	applicationhandler "covergate/internal/application/handler"
	applicationservice "covergate/internal/application/service"
	applicationstore "covergate/internal/application/store"
	"covergate/internal/audit"
	consultationhandler "covergate/internal/consultation/handler"
	consultationservice "covergate/internal/consultation/service"
	consultationstore "covergate/internal/consultation/store"
	contracthandler "covergate/internal/contract/handler"
	contractservice "covergate/internal/contract/service"
	contractstore "covergate/internal/contract/store"
	notificationhandler "covergate/internal/notification/handler"
	notificationservice "covergate/internal/notification/service"
	notificationstore "covergate/internal/notification/store"
	paymenthandler "covergate/internal/payment/handler"
	paymentservice "covergate/internal/payment/service"
	"covergate/internal/payment/zalopay"
	"covergate/internal/platform/config"
	"covergate/internal/platform/httpserver"
	"covergate/internal/platform/logger"
	"covergate/internal/platform/metrics"
	"covergate/internal/platform/postgres"
	"covergate/internal/platform/redis"
	"covergate/internal/platform/token"
	"covergate/internal/platform/uploads"
	productmodels "covergate/internal/product/models"
	productstore "covergate/internal/product/store"
	"covergate/internal/ratelimit"
	statshandler "covergate/internal/stats/handler"
	statsservice "covergate/internal/stats/service"
	transporthttp "covergate/internal/transport/http"
	id "covergate/pkg/domain"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Storage selection: postgres when configured, in-memory otherwise.
	var (
		db            *sql.DB
		products      productstore.Store
		applications  applicationservice.Store
		contracts     contractservice.Store
		notifications notificationservice.Store
		consultations consultationservice.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		products = productstore.NewPostgres(db)
		applications = applicationstore.NewPostgres(db)
		contracts = contractstore.NewPostgres(db)
		notifications = notificationstore.NewPostgres(db)
		consultations = consultationstore.NewPostgres(db)
	} else {
		log.Info("no DATABASE_URL configured, using in-memory stores")
		memProducts := productstore.NewInMemory()
		seedProducts(ctx, memProducts, log)
		products = memProducts
		applications = applicationstore.NewInMemory()
		contracts = contractstore.NewInMemory()
		notifications = notificationstore.NewInMemory()
		consultations = consultationstore.NewInMemory()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	var limiter ratelimit.Store
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewRedisStore(redisClient.Client)
	} else {
		limiter = ratelimit.NewInMemoryStore()
	}

	var auditor audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaAuditor, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaAuditor.Close()
		auditor = kafkaAuditor
	} else {
		auditor = audit.NewLogPublisher(log)
	}

	documentStore, err := uploads.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Error("upload directory unavailable", "error", err)
		os.Exit(1)
	}

	notificationSvc := notificationservice.New(notifications, log, m)
	applicationSvc := applicationservice.New(applications, products, notificationSvc, m)
	contractSvc := contractservice.New(contracts, applicationSvc, products, notificationSvc, auditor, m, log)
	gateway := zalopay.NewClient(cfg.ZaloPay)
	paymentSvc := paymentservice.New(gateway, contractSvc, m, log)
	consultationSvc := consultationservice.New(consultations)
	statsSvc := statsservice.New(products, applicationSvc, contractSvc, consultationSvc)

	health := map[string]transporthttp.HealthChecker{
		"postgres": nil,
		"redis":    nil,
	}
	if db != nil {
		health["postgres"] = dbHealth{db: db}
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	router := transporthttp.NewRouter(transporthttp.Deps{
		Applications:   applicationhandler.New(applicationSvc, products, documentStore, log),
		Contracts:      contracthandler.New(contractSvc, products, documentStore, log),
		Payments:       paymenthandler.New(paymentSvc),
		Notifications:  notificationhandler.New(notificationSvc, log),
		Consultations:  consultationhandler.New(consultationSvc, products, log),
		Stats:          statshandler.New(statsSvc),
		TokenValidator: token.NewValidator(cfg.JWTSigningKey),
		RateLimiter:    limiter,
		RateLimit:      cfg.PaymentRateLimit,
		RateWindow:     cfg.PaymentRateWindow,
		Metrics:        m,
		Registry:       registry,
		Logger:         log,
		Health:         health,
		UploadDir:      cfg.UploadDir,
	})

	srv := httpserver.New(cfg.Addr, router, httpserver.Timeouts{
		ReadHeader: cfg.ReadHeaderTimeout,
		Idle:       cfg.IdleTimeout,
	})
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// seedProducts loads a small demo catalog into the in-memory store so the
// API is exercisable without a database.
func seedProducts(ctx context.Context, store *productstore.InMemoryStore, log *slog.Logger) {
	now := time.Now()
	demo := []*productmodels.Product{
		{
			ID:                    id.ProductID(uuid.New()),
			Name:                  "Family Health Shield",
			Provider:              "Bao Viet",
			Category:              "health",
			Price:                 500000,
			Description:           "Annual health coverage for the whole family.",
			InsuredObject:         "person",
			AnnualInsurableAmount: 200000000,
			InsuranceTerm:         "1 year",
			CreatedAt:             now,
			UpdatedAt:             now,
		},
		{
			ID:                    id.ProductID(uuid.New()),
			Name:                  "Motorbike Liability Plus",
			Provider:              "PTI",
			Category:              "vehicle",
			Price:                 150000,
			Description:           "Compulsory liability plus theft protection.",
			InsuredObject:         "vehicle",
			AnnualInsurableAmount: 50000000,
			InsuranceTerm:         "1 year",
			CreatedAt:             now,
			UpdatedAt:             now,
		},
	}
	for _, p := range demo {
		if err := store.Seed(ctx, p); err != nil {
			continue
		}
		log.Info("seeded demo product", "product_id", p.ID.String(), "name", p.Name)
	}
}
