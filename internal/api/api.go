// Package api implements the HTTP API over the harvested data.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/liharvest/internal/config"
	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/store"
)

// PostStore is the post persistence surface the API reads and updates.
type PostStore interface {
	GetAll(ctx context.Context) ([]models.PostRecord, error)
	UpdateStatsByID(ctx context.Context, activityID string, incoming models.Stats) (models.PostRecord, error)
}

// ScheduleStore is the scheduled-post persistence surface.
type ScheduleStore interface {
	AddScheduled(ctx context.Context, post models.ScheduledPost) (models.ScheduledPost, error)
	ListScheduled(ctx context.Context) ([]models.ScheduledPost, error)
	GetScheduled(ctx context.Context, id string) (models.ScheduledPost, error)
	CancelScheduled(ctx context.Context, id string) error
}

// Publisher publishes a scheduled post immediately.
type Publisher interface {
	PublishNow(ctx context.Context, post *models.ScheduledPost) error
}

// AnalyticsStore reads account-level analytics snapshots.
type AnalyticsStore interface {
	LatestSnapshot(ctx context.Context) (models.AnalyticsSnapshot, error)
}

// Deps bundles everything the router serves from.
type Deps struct {
	Posts     PostStore
	Schedule  ScheduleStore
	Publisher Publisher
	Analytics AnalyticsStore
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(log logger.Interface, deps Deps) *gin.Engine {
	// Disable Gin's default logging
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/posts", handleListPosts(deps.Posts))
	v1.PATCH("/posts/:id/stats", handleUpdateStats(deps.Posts))
	v1.GET("/analytics", handleAnalytics(deps.Analytics))
	v1.GET("/scheduled", handleListScheduled(deps.Schedule))
	v1.POST("/scheduled", handleAddScheduled(deps.Schedule))
	v1.DELETE("/scheduled/:id", handleCancelScheduled(deps.Schedule))
	v1.POST("/scheduled/:id/publish", handlePublishNow(deps.Schedule, deps.Publisher))

	return router
}

func handleListPosts(posts PostStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := posts.GetAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"posts": records, "count": len(records)})
	}
}

func handleUpdateStats(posts PostStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var incoming models.Stats
		if err := c.ShouldBindJSON(&incoming); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		record, err := posts.UpdateStatsByID(c.Request.Context(), c.Param("id"), incoming)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func handleAnalytics(analytics AnalyticsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := analytics.LatestSnapshot(c.Request.Context())
		if errors.Is(err, store.ErrNoSnapshot) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analytics snapshot recorded"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

type scheduleRequest struct {
	Content      string    `json:"content" binding:"required"`
	ScheduledAt  time.Time `json:"scheduledAt" binding:"required"`
	FirstComment string    `json:"firstComment"`
}

func handleListScheduled(schedule ScheduleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := schedule.ListScheduled(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scheduled": posts, "count": len(posts)})
	}
}

func handleAddScheduled(schedule ScheduleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		post, err := schedule.AddScheduled(c.Request.Context(), models.ScheduledPost{
			Content:      req.Content,
			ScheduledAt:  req.ScheduledAt,
			FirstComment: req.FirstComment,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

func handleCancelScheduled(schedule ScheduleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := schedule.CancelScheduled(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrScheduledNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scheduled post not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handlePublishNow(schedule ScheduleStore, publisher Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := schedule.GetScheduled(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrScheduledNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scheduled post not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err = publisher.PublishNow(c.Request.Context(), &post); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// loggingMiddleware creates a middleware that logs HTTP requests
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", statusCode,
			"latency", latency,
		)
	}
}

// corsMiddleware adds CORS headers to allow frontend access
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Server wraps the router in an http.Server with sane timeouts.
type Server struct {
	httpServer *http.Server
	logger     logger.Interface
}

// NewServer builds the API server from configuration.
func NewServer(cfg *config.ServerConfig, log logger.Interface, deps Deps) *Server {
	router := SetupRouter(log, deps)
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: log,
	}
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}
