// Package main Souq Orders API
//
// Order lifecycle and payment settlement service: order creation with
// catalog verification, payment initiation and confirmation, per-seller
// settlement and stock-checked fulfillment.
//
//	@title			Souq Orders API
//	@version		1.0
//	@description	Order lifecycle and payment settlement service
//
//	@contact.name	API Support
//	@contact.email	support@example.com
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//	@schemes	https http
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "souq-backend/docs/swagger"
	"souq-backend/internal/orders/adapters"
	"souq-backend/internal/orders/application"
	"souq-backend/internal/orders/infrastructure"
	"souq-backend/pkg/config"
	"souq-backend/pkg/db"
	"souq-backend/pkg/events"
	"souq-backend/pkg/logger"
	"souq-backend/pkg/middleware"
	"souq-backend/pkg/rabbitmq"
	pkgtls "souq-backend/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting orders service")

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	// Initialize adapters and run migrations
	repo := adapters.NewPostgresOrderRepository(dbConn)
	inventory := adapters.NewPostgresInventoryLedger(dbConn)
	sellers := adapters.NewPostgresSellerLedger(dbConn)

	if err := repo.Migrate(); err != nil {
		log.Fatal("failed to migrate orders schema: " + err.Error())
	}
	if err := inventory.Migrate(); err != nil {
		log.Fatal("failed to migrate products schema: " + err.Error())
	}
	if err := sellers.Migrate(); err != nil {
		log.Fatal("failed to migrate sellers schema: " + err.Error())
	}

	txManager := db.NewTxManager(dbConn)

	// Payment gateway client
	gateway := adapters.NewHTTPPaymentGateway(
		cfg.GatewayBaseURL,
		cfg.GatewaySecretKey,
		cfg.GatewayTimeout,
		cfg.GatewayRetryMax,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to RabbitMQ
	var publisher *adapters.RabbitMQPublisher
	var rabbitConn *rabbitmq.Connection
	rabbitConn, err = rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to RabbitMQ, events will be disabled: " + err.Error())
	} else {
		defer rabbitConn.Close()

		pub, err := rabbitmq.NewPublisher(rabbitConn, events.ExchangeOrders, log)
		if err != nil {
			log.Warn("failed to create publisher: " + err.Error())
		} else {
			publisher = adapters.NewRabbitMQPublisher(pub, log)
		}
	}

	// Initialize use case
	useCase := application.NewOrderUseCase(
		repo,
		inventory,
		sellers,
		gateway,
		publisher,
		txManager,
		cfg.GatewayCurrency,
		cfg.GatewayTimeout,
		log,
	)

	// Consume payment.succeeded events from the processor
	if rabbitConn != nil {
		consumer, err := adapters.NewPaymentSucceededConsumer(rabbitConn, useCase, log)
		if err != nil {
			log.Warn("failed to create payment consumer: " + err.Error())
		} else if err := consumer.Start(ctx); err != nil {
			log.Warn("failed to start payment consumer: " + err.Error())
		}
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewHTTPMetrics(registry, cfg.ServiceName)

	// Setup Gin router
	httpHandler := infrastructure.NewHTTPHandler(useCase)
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())
	router.Use(httpMetrics.Handler())

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(cfg.JWTSecret))
	httpHandler.RegisterRoutes(api)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics and API docs
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	if cfg.TLSEnabled {
		tlsConfig, err := pkgtls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			log.Fatal("failed to load TLS config: " + err.Error())
		}
		httpServer.Addr = ":" + cfg.HTTPSPort
		httpServer.TLSConfig = tlsConfig

		go func() {
			log.Info("HTTPS server listening on :" + cfg.HTTPSPort)
			if err := httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTPS server error: " + err.Error())
			}
		}()
	} else {
		httpServer.Addr = ":" + cfg.HTTPPort

		go func() {
			log.Info("HTTP server listening on :" + cfg.HTTPPort)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTP server error: " + err.Error())
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("server stopped")
}
