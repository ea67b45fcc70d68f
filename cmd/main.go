package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/vrpay/handler"
	"github.com/mstgnz/vrpay/infra/config"
	"github.com/mstgnz/vrpay/infra/dedupe"
	"github.com/mstgnz/vrpay/infra/events"
	"github.com/mstgnz/vrpay/infra/logger"
	"github.com/mstgnz/vrpay/infra/metrics"
	"github.com/mstgnz/vrpay/infra/middle"
	"github.com/mstgnz/vrpay/infra/opensearch"
	"github.com/mstgnz/vrpay/infra/storage"
	"github.com/mstgnz/vrpay/infra/validate"
	"github.com/mstgnz/vrpay/provider"
	"github.com/mstgnz/vrpay/provider/vrpay"
	"github.com/mstgnz/vrpay/router"
)

func main() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Load Env Error: %v", err)
	}

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	gwCfg, err := config.LoadGatewayConfig()
	if err != nil {
		log.Fatalf("gateway config: %v", err)
	}
	if err := validate.CustomValidate(); err != nil {
		log.Fatalf("validator: %v", err)
	}

	// OpenSearch archive and system logs
	var openSearchLogger *opensearch.Logger
	if appCfg.EnableLogging {
		osClient, err := opensearch.NewClient(appCfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			openSearchLogger = opensearch.NewLogger(osClient)
		}
	}
	if openSearchLogger != nil {
		logger.InitGlobalLogger(openSearchLogger)
	} else {
		logger.InitGlobalLogger(nil)
	}

	ctx := context.Background()

	store, err := storage.Open(ctx, appCfg)
	if err != nil {
		logger.Fatal("Failed to open storage", err)
	}
	defer store.Close()

	clientCfg, err := vrpay.ConfigFromMap(gwCfg.Map())
	if err != nil {
		logger.Fatal("Invalid VR Payment configuration", err)
	}
	gateway, err := vrpay.NewClient(clientCfg)
	if err != nil {
		logger.Fatal("Failed to create VR Payment client", err)
	}

	services := map[string]handler.Pinger{}
	var deduper provider.Deduper
	if appCfg.RedisAddr != "" {
		redisDeduper, err := dedupe.NewRedisDeduper(appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB, appCfg.WebhookDedupeTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer redisDeduper.Close()
		deduper = redisDeduper
		services["redis"] = redisDeduper
	} else {
		logger.Warn("REDIS_ADDR not set, webhook duplicates are tracked in memory")
		deduper = dedupe.NewMemoryDeduper(appCfg.WebhookDedupeTTL)
	}

	publisher, err := events.New(appCfg)
	if err != nil {
		logger.Fatal("Failed to create event publisher", err)
	}
	defer publisher.Close()

	recorder, err := metrics.NewRecorder(store)
	if err != nil {
		logger.Fatal("Failed to create metrics recorder", err)
	}

	opts := []provider.ServiceOption{
		provider.WithDeduper(deduper),
		provider.WithEventPublisher(publisher),
		provider.WithMetrics(recorder),
	}
	var searcher handler.ExchangeSearcher
	if openSearchLogger != nil {
		opts = append(opts, provider.WithExchangeLogger(openSearchLogger))
		searcher = openSearchLogger
	}

	paymentService := provider.NewPaymentService(store, gateway, provider.ServiceConfig{
		WebhookKey:       gwCfg.WebhookKey,
		ShopperResultURL: gwCfg.ShopperResultURL,
		PaymentBrands:    gwCfg.Brands(),
	}, opts...)

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recorder.Middleware)
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300, // Preflight cache time (second)
	}))

	// Security Middleware
	rateLimiter := middle.NewRateLimiter(appCfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware(appCfg.IPWhitelist))
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	router.Routes(r, router.Deps{
		APIKey: appCfg.APIKey,
		Payments: handler.NewPaymentHandler(paymentService, handler.RedirectURLs{
			Success:  gwCfg.SuccessURL,
			Pending:  gwCfg.PendingURL,
			Rejected: gwCfg.RejectedURL,
			Error:    gwCfg.ErrorURL,
		}),
		Exchanges: handler.NewExchangeHandler(searcher, gateway.Sandbox()),
		Health:    handler.NewHealthHandler(store, services, appCfg.Environment),
		Metrics:   recorder.Handler(),
	})

	// Create a context that listens for interrupt and terminate signals
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", appCfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run your HTTP server in a goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{
		"port":    appCfg.Port,
		"sandbox": gateway.Sandbox(),
		"storage": appCfg.StorageDriver,
		"broker":  appCfg.EventBroker,
	}})

	// Block until a signal is received
	<-sigCtx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", err)
	}
	if err := recorder.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics shutdown failed", err)
	}
}
