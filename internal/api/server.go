package api

import (
	"fmt"
	"net/http"

	"skybook/internal/cache"
	"skybook/internal/config"
	"skybook/internal/database"
	"skybook/internal/external"
	"skybook/internal/handlers"
	"skybook/internal/logger"
	"skybook/internal/messaging"
	"skybook/internal/metrics"
	"skybook/internal/middleware"
	"skybook/internal/repository"
	"skybook/internal/search"
	"skybook/internal/service"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP API server with all its backing connections.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	locks    *cache.LockManager
	nats     *messaging.NATSClient
	index    *search.BookingIndex
	services *service.Services
}

// NewServer connects every backing store and wires the booking API.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	locks, err := cache.NewLockManager(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	var index *search.BookingIndex
	if cfg.SearchEnabled {
		index, err = search.NewBookingIndex(cfg.Search)
		if err != nil {
			logger.Get().Warn("Search index unavailable, admin queries fall back to SQL", "error", err)
			index = nil
		}
	}

	flightClient := external.NewFlightClient(cfg.Flights)
	userClient := external.NewUserClient(cfg.Users)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, flightClient, userClient, locks, natsClient, index)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		locks:    locks,
		nats:     natsClient,
		index:    index,
		services: services,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.BearerAuth(s.config.JWTSecret))
	{
		bookings := api.Group("/bookings")
		{
			bookings.GET("", h.ListBookings)
			bookings.GET("/mine", h.ListMyBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.POST("", h.CreateBooking)
			bookings.PUT("/:id", h.UpdateBooking)
			bookings.DELETE("/:id", h.DeleteBooking)
			bookings.PUT("/:id/confirm", h.ConfirmBooking)
			bookings.PUT("/:id/cancel", h.CancelBooking)
			bookings.GET("/:id/review", h.ReviewBooking)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Handler())
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	checks := gin.H{"database": dbHealth}
	healthy := dbHealth.Status == "healthy"

	if s.index != nil {
		if err := s.index.HealthCheck(c.Request.Context()); err != nil {
			checks["search"] = err.Error()
		} else {
			checks["search"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":  state,
		"service": "skybook-api",
		"checks":  checks,
	})
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes all backing connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.locks != nil {
		if err := s.locks.Close(); err != nil {
			logger.Get().Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
