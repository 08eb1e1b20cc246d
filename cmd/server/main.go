package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HammerMeetNail/rideparty/internal/config"
	"github.com/HammerMeetNail/rideparty/internal/database"
	"github.com/HammerMeetNail/rideparty/internal/handlers"
	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/metrics"
	"github.com/HammerMeetNail/rideparty/internal/middleware"
	"github.com/HammerMeetNail/rideparty/internal/notify"
	"github.com/HammerMeetNail/rideparty/internal/realtime"
	"github.com/HammerMeetNail/rideparty/internal/services"
	"github.com/HammerMeetNail/rideparty/migrations"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", logging.Fields{"error": err})
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, ok := logging.ParseLevel(cfg.Log.Level)
	if !ok {
		logger.Warn("Unknown LOG_LEVEL; using info", logging.Fields{"value": cfg.Log.Level})
	}
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting ride party server", logging.Fields{"env": cfg.Server.Environment})

	logger.Info("Connecting to PostgreSQL", logging.Fields{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(cfg.Database.DSN(), migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return err
	}
	version, dirty, err := migrator.Version()
	_ = migrator.Close()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	logger.Info("Migrations completed", logging.Fields{"version": version})

	logger.Info("Connecting to Redis", logging.Fields{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)
	events := services.NewEventPublisher(redisAdapter, cfg.Realtime.Channel)

	profileService := services.NewProfileService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter)
	friendService := services.NewFriendService(dbAdapter)
	partyService := services.NewPartyService(dbAdapter, redisAdapter, events, services.PartyOptions{
		CacheTTL:           cfg.Party.ActiveCacheTTL,
		MaxExtendMinutes:   cfg.Party.MaxExtendMinutes,
		MaxDurationMinutes: cfg.Party.MaxDurationMinutes,
	})
	memberService := services.NewPartyMemberService(dbAdapter, partyService, profileService, friendService, events)

	sweeper := services.NewExpirySweeper(partyService, cfg.Party.SweepInterval)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer func() { <-sweeper.Stop().Done() }()

	// Realtime
	registry := notify.NewRegistry(cfg.Party.NotificationCap)
	hub := realtime.NewHub(cfg.Realtime.AllowedOrigins)
	go hub.Run(ctx)

	dispatcher := realtime.NewDispatcher(partyService, profileService, registry, hub)
	pubsub := redisDB.Client.Subscribe(ctx, cfg.Realtime.Channel)
	defer func() { _ = pubsub.Close() }()
	go dispatcher.Run(ctx, pubsub.Channel())
	logger.Info("Subscribed to change feed", logging.Fields{"channel": cfg.Realtime.Channel})

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(profileService, authService, registry, cfg.Server.Secure)
	partyHandler := handlers.NewPartyHandler(partyService)
	memberHandler := handlers.NewMemberHandler(memberService)
	notificationHandler := handlers.NewNotificationHandler(registry)
	friendHandler := handlers.NewFriendHandler(friendService)
	realtimeHandler := handlers.NewRealtimeHandler(hub)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	csrfMiddleware := middleware.NewCSRFMiddleware(cfg.Server.Secure)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	counter := middleware.NewRedisCounter(redisDB.Client)
	authLimit := middleware.NewAuthRateLimiter(counter).Limit
	joinLimit := middleware.NewJoinRateLimiter(counter, cfg.Party.JoinRateLimit).Limit
	requireAuth := authMiddleware.RequireAuthFunc

	mux := http.NewServeMux()

	// Health and metrics (no auth)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/csrf", csrfMiddleware.GetToken)

	// Auth
	mux.Handle("POST /api/auth/register", authLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	// Parties
	mux.Handle("GET /api/parties", requireAuth(partyHandler.List))
	mux.Handle("POST /api/parties", requireAuth(partyHandler.Create))
	mux.Handle("GET /api/parties/{id}", requireAuth(partyHandler.Get))
	mux.Handle("PUT /api/parties/{id}/extend", requireAuth(partyHandler.Extend))
	mux.Handle("PUT /api/parties/{id}/cancel", requireAuth(partyHandler.Cancel))

	// Membership
	mux.Handle("POST /api/parties/{id}/join", requireAuth(joinLimit(http.HandlerFunc(memberHandler.Join)).ServeHTTP))
	mux.Handle("POST /api/parties/{id}/leave", requireAuth(memberHandler.Leave))
	mux.Handle("GET /api/parties/{id}/members", requireAuth(memberHandler.Members))
	mux.Handle("GET /api/parties/{id}/members/count", requireAuth(memberHandler.Count))
	mux.Handle("GET /api/parties/{id}/membership", requireAuth(memberHandler.Membership))
	mux.Handle("DELETE /api/parties/{id}/members/{userId}", requireAuth(memberHandler.Kick))
	mux.Handle("POST /api/parties/{id}/requests", requireAuth(joinLimit(http.HandlerFunc(memberHandler.RequestToJoin)).ServeHTTP))
	mux.Handle("GET /api/requests/pending", requireAuth(memberHandler.Pending))
	mux.Handle("PUT /api/requests/{id}/approve", requireAuth(memberHandler.Approve))
	mux.Handle("PUT /api/requests/{id}/decline", requireAuth(memberHandler.Decline))

	// Notifications
	mux.Handle("GET /api/notifications", requireAuth(notificationHandler.List))
	mux.Handle("GET /api/notifications/unread-count", requireAuth(notificationHandler.UnreadCount))
	mux.Handle("PUT /api/notifications/read-all", requireAuth(notificationHandler.MarkAllRead))
	mux.Handle("PUT /api/notifications/{id}/read", requireAuth(notificationHandler.MarkRead))
	mux.Handle("DELETE /api/notifications/{id}", requireAuth(notificationHandler.Remove))

	// Friends
	mux.Handle("GET /api/friends", requireAuth(friendHandler.List))
	mux.Handle("POST /api/friends/requests", requireAuth(friendHandler.SendRequest))
	mux.Handle("PUT /api/friends/requests/{id}/accept", requireAuth(friendHandler.AcceptRequest))

	// Realtime
	mux.HandleFunc("GET /ws", realtimeHandler.Connect)

	// Build middleware chain (outermost last). The logger sits directly on
	// the mux so it sees the matched route pattern.
	var handler http.Handler = requestLogger.Apply(mux)
	handler = csrfMiddleware.Protect(handler)
	handler = authMiddleware.Authenticate(handler)
	handler = securityHeaders.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", logging.Fields{"addr": addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	server.SetKeepAlivesEnabled(false)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Could not gracefully shutdown the server", logging.Fields{"error": err})
	}

	logger.Info("Server stopped")
	return nil
}
