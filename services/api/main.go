package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmchat/internal/config"
	"github.com/dmchat/internal/handler"
	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/middleware"
	"github.com/dmchat/internal/service"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB required)")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Production)
	logger.SetPrefix("api")
	defer logger.Sync()
	logger.Info("starting API service")

	if err := checkFlags(cfg.Storage, *migrate, *dev); err != nil {
		logger.Errorf("%v", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, *dev)
	if err != nil {
		logger.Errorf("storage: %v", err)
		os.Exit(1)
	}
	defer st.close()
	if *migrate {
		logger.Info("migrations applied, exiting")
		return
	}

	chatSvc := service.NewChatService(st.backend)
	authSvc := service.NewAuthService(st.backend.Users, st.sessions, st.secrets, cfg.TimestampSkew)

	authMW := middleware.SessionAuth(authSvc)
	if cfg.AuthServiceURL != "" {
		logger.Infof("delegating request validation to %s", cfg.AuthServiceURL)
		authMW = middleware.AuthServiceValidate(cfg.AuthServiceURL, nil)
	}

	h := handler.Handlers{
		Chats:    handler.NewChatHandler(chatSvc),
		Messages: handler.NewMessageHandler(chatSvc),
		Blocks:   handler.NewBlockHandler(chatSvc),
		Auth:     handler.NewAuthHandler(authSvc),
	}

	r := chi.NewRouter()
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	r.Use(chimw.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Id", "X-Timestamp", "X-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.With(middleware.InternalOnly(cfg.InternalSecret)).Post("/internal/validate", h.Auth.ValidateSession)
	// RealIP is scoped to /api: /internal/validate must judge the socket address.
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	h.Mount(r,
		chimw.RealIP,
		middleware.RateLimit(limiter), // per IP, before auth
		authMW,
		middleware.RateLimit(limiter), // per user
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server error: %v", err)
			st.close()
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("server stopped")
}

// checkFlags rejects flag combinations that would otherwise be ignored.
func checkFlags(storageKind string, migrate, dev bool) error {
	if migrate && !dev && storageKind == config.StorageMemory {
		return errors.New("-migrate needs STORAGE=postgres or -dev: the memory store has no schema")
	}
	return nil
}
