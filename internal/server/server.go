package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/boardpush/internal/agent"
	"anoa.com/boardpush/internal/agent/agents"
	"anoa.com/boardpush/internal/bootstrap"
	"anoa.com/boardpush/internal/config"
	"anoa.com/boardpush/internal/eventbus"
	"anoa.com/boardpush/internal/middleware"

	boardRepo "anoa.com/boardpush/internal/modules/board/repository"
	agentHttp "anoa.com/boardpush/internal/modules/agent/delivery/http"
	eventHttp "anoa.com/boardpush/internal/modules/event/delivery/http"
	notiHttp "anoa.com/boardpush/internal/modules/notification/delivery/http"
	"anoa.com/boardpush/internal/modules/notification/push"
	notifRepo "anoa.com/boardpush/internal/modules/notification/repository"
	notifService "anoa.com/boardpush/internal/modules/notification/service"
	"anoa.com/boardpush/internal/modules/notification/template"
	userRepo "anoa.com/boardpush/internal/modules/user/repository"
	"anoa.com/boardpush/pkg/database"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// transport is a live delivery backend that clients can also subscribe to.
type transport interface {
	push.Channel
	push.Subscriber
}

type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	runner      *eventbus.Runner
	scheduler   *agent.Scheduler
	db          *gorm.DB
	redisClient *redis.Client
	closers     []func() error
	logger      *zap.Logger
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{logger: logger, scheduler: agent.NewScheduler(logger)}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.addCloser(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := bootstrap.Migrate(db); err != nil {
		s.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	if cfg.EventSource == "redis" || cfg.PushDriver == "redis" {
		s.redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.addCloser(s.redisClient.Close)
	}

	users := userRepo.NewUserRepository(db)

	// Board lookup
	var (
		boards  notifService.BoardLookup
		indexer bootstrap.BoardIndexer
	)
	switch cfg.BoardLookup {
	case "meilisearch":
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliRepo := boardRepo.NewMeiliBoardRepository(meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
		// The index trails the database until the next sync, so misses go to gorm.
		boards = boardRepo.NewFallbackBoardRepository(meiliRepo, boardRepo.NewBoardRepository(db))
		indexer = meiliRepo

		syncConfig := agents.DefaultBoardIndexConfig()
		syncConfig.Schedule = cfg.BoardSyncSchedule
		syncAgent := agents.NewBoardIndexAgent(boardRepo.NewBoardFeed(db), meiliRepo, syncConfig, logger)
		if err := s.scheduler.RegisterAgent(syncAgent); err != nil {
			s.Close()
			return nil, fmt.Errorf("invalid BOARD_SYNC_SCHEDULE: %w", err)
		}
	default:
		boards = boardRepo.NewBoardRepository(db)
	}

	if cfg.IsDevelopment() {
		if err := bootstrap.SeedDevData(db, indexer, logger); err != nil {
			s.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	// Notification Module
	var notifications notifRepo.NotificationRepository
	switch cfg.NotificationStore {
	case "memory":
		logger.Warn("notifications are kept in memory and lost on restart")
		notifications = notifRepo.NewMemoryRepository()
	default:
		notifications = notifRepo.NewNotificationRepository(db)
	}

	var live transport
	switch cfg.PushDriver {
	case "hub":
		live = push.NewHub()
	default:
		live = push.NewRedisChannel(s.redisClient)
	}
	delivery := push.NewAsyncChannel(live, cfg.PushTimeout, logger)
	s.addCloser(func() error {
		delivery.Close()
		return nil
	})

	notificationSvc := notifService.NewNotificationService(
		notifications,
		users,
		boards,
		template.NewResolver(cfg.DefaultLocale),
		delivery,
		logger,
		cfg.PageLimit,
	)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, users, live, logger)

	// Event bus
	var (
		source    eventbus.Source
		publisher eventbus.Publisher
	)
	switch cfg.EventSource {
	case "kafka":
		source = eventbus.NewKafkaSource(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		publisher = eventbus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	default:
		queue := eventbus.NewRedisQueue(s.redisClient, cfg.EventQueueKey)
		source, publisher = queue, queue
	}
	// Closers run in reverse: the bus closes before pending deliveries drain.
	s.addCloser(source.Close)
	s.addCloser(publisher.Close)
	s.runner = eventbus.NewRunner(source, notificationSvc, cfg.EventWorkers, logger)
	if s.redisClient != nil && cfg.EventDedupTTL > 0 {
		s.runner.WithDeduplicator(eventbus.NewRedisDeduplicator(s.redisClient, cfg.EventDedupTTL))
	}
	eventHandler := eventHttp.NewEventHandler(publisher, logger)
	agentHandler := agentHttp.NewAgentHandler(s.scheduler, logger)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET is not set, using the development secret")
		jwtSecret = "12345"
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtSecret)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger, "/healthz", "/metrics"))

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Notification routes
		protected.GET("/notifications/newer", notificationHandler.GetNewerNotifications)
		protected.GET("/notifications/unconfirmed-count", notificationHandler.UnconfirmedCount)
		protected.POST("/notifications/:id/confirm", notificationHandler.ConfirmNotification)
		protected.PUT("/notifications/confirm-all", notificationHandler.ConfirmAll)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Producer and operator routes
		internal := protected.Group("/internal")
		internal.Use(authMiddleware.RequireAudience(cfg.InternalAudience))
		{
			internal.POST("/events", eventHandler.PublishEvent)
			internal.GET("/agents", agentHandler.ListAgents)
			internal.POST("/agents/:name/run", agentHandler.RunAgent)
		}
	}

	s.engine = router
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Run serves HTTP, consumes events and runs scheduled agents until ctx is
// cancelled or the listener fails, then shuts all of them down.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	g, ctx := errgroup.WithContext(ctx)
	s.scheduler.Start(ctx)

	g.Go(func() error {
		s.runner.Run(ctx)
		return nil
	})

	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown incomplete", zap.Error(err))
		}
		s.scheduler.Stop(shutdownCtx)
		return nil
	})

	return g.Wait()
}

// Close releases resources in reverse order of acquisition.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", zap.Error(err))
		}
	}
	s.closers = nil
}

func (s *Server) addCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if s.redisClient != nil {
		checks["redis"] = "ok"
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, checks)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
