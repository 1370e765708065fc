package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/config"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/handlers"
	"github.com/andesviajes/tours-backend/internal/middleware"
	"github.com/andesviajes/tours-backend/internal/services"
	"github.com/andesviajes/tours-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting AndesViajes Tours Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	tourRepo := database.NewTourRepository(db)
	scheduleRepo := database.NewScheduleRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)
	commissionRepo := database.NewCommissionRepository(db.DB)
	paymentRepo := database.NewPaymentRepository(db.DB)
	eventRepo := database.NewEventRepository(db.DB)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	eventService := services.NewEventService(eventRepo, logger)
	pricingService := services.NewPricingService()
	inventoryService := services.NewScheduleInventoryService(db.DB, scheduleRepo, bookingRepo, tourRepo, eventService, logger)
	paymentService := services.NewPaymentService(paymentRepo, cfg.Payment, logger)
	commissionService := services.NewCommissionService(commissionRepo, logger)
	tourService := services.NewTourService(tourRepo, logger)
	rateLimitService := services.NewRateLimitService(db.DB)
	bookingService := services.NewBookingService(
		db.DB,
		bookingRepo,
		tourRepo,
		inventoryService,
		pricingService,
		paymentService,
		commissionService,
		eventService,
		logger,
	)
	logger.Info("Services initialized")

	// Background jobs: nightly schedule close-out, rate limit cleanup
	cronService := services.NewCronService(inventoryService, rateLimitService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	// Initialize handlers
	tourHandler := handlers.NewTourHandler(tourService, logger)
	scheduleHandler := handlers.NewScheduleHandler(inventoryService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, eventService, rateLimitService, logger)
	reportHandler := handlers.NewReportHandler(commissionService, paymentService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public catalog and availability
		v1.GET("/tours", tourHandler.ListTours)
		v1.GET("/tours/:id", tourHandler.GetTour)
		v1.GET("/tours/:id/schedules", scheduleHandler.ListTourSchedules)
		v1.GET("/schedules", scheduleHandler.SearchSchedules)
		v1.GET("/schedules/:id", scheduleHandler.GetSchedule)

		// Authenticated booking lifecycle
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/number/:number", bookingHandler.GetBookingByNumber)
			bookings.PUT("/:id", bookingHandler.UpdateBooking)
			bookings.POST("/:id/confirm", bookingHandler.ConfirmBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.POST("/:id/payment", bookingHandler.ProcessPayment)
			bookings.GET("/:id/history", bookingHandler.GetBookingHistory)

			// Operator and admin views
			bookings.GET("/:id/payments", middleware.RequireRole(jwt.RoleOperator, jwt.RoleAdmin), reportHandler.ListBookingPayments)
			bookings.POST("/:id/no-show", middleware.RequireRole(jwt.RoleOperator, jwt.RoleAdmin), bookingHandler.MarkNoShow)
		}

		// Operator tour and schedule management
		manage := v1.Group("")
		manage.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(jwt.RoleOperator, jwt.RoleAdmin))
		{
			manage.POST("/tours", tourHandler.CreateTour)
			manage.DELETE("/tours/:id", tourHandler.DeactivateTour)
			manage.POST("/tours/:id/schedules", scheduleHandler.CreateSchedule)
			manage.POST("/schedules/:id/cancel", scheduleHandler.CancelSchedule)
			manage.POST("/schedules/:id/complete", scheduleHandler.CompleteSchedule)
		}

		// Admin reports and refunds
		admin := v1.Group("")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(jwt.RoleAdmin))
		{
			admin.GET("/reports/commissions", reportHandler.GetRangeReport)
			admin.GET("/reports/commissions/:year", reportHandler.GetYearlyReport)
			admin.GET("/reports/commissions/:year/:month", reportHandler.GetMonthlyReport)
			admin.POST("/reports/commissions/mark-paid", reportHandler.MarkCommissionsPaid)
			admin.POST("/payments/:id/refund", bookingHandler.RefundPayment)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID.String()
			fields["roles"] = userCtx.Roles
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
