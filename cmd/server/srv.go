package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/urfave/cli/v2"
	"github.com/welldanyogia/webrana-chat-backend/internal/api"
	"github.com/welldanyogia/webrana-chat-backend/internal/attachment"
	"github.com/welldanyogia/webrana-chat-backend/internal/auth"
	"github.com/welldanyogia/webrana-chat-backend/internal/config"
	"github.com/welldanyogia/webrana-chat-backend/internal/database"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/services"
	"github.com/welldanyogia/webrana-chat-backend/internal/storage"
	"github.com/welldanyogia/webrana-chat-backend/internal/websocket"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

type srv struct {
	cfg      *config.Config
	logger   *slog.Logger
	security *logger.SecurityLogger

	db    *gorm.DB
	store repository.Store

	files     storage.FileStorage
	processor *attachment.Processor

	hub      *websocket.Hub
	messages services.MessageService
	sweeper  *services.OrphanSweeper
}

func (s *srv) loadConfig(c *cli.Context) error {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return err
	}

	cfg, err := config.LoadWithValidation()
	if err != nil {
		return err
	}
	s.cfg = cfg

	s.logger = logger.New(os.Stdout, cfg.SlogLevel())
	slog.SetDefault(s.logger)
	s.security = logger.NewSecurityLoggerFrom(s.logger)

	cfg.LogConfig(s.logger)
	return nil
}

func (s *srv) loadDatabase() error {
	db, err := database.Connect(s.cfg.DatabaseDriver, s.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	s.db = db
	s.store = repository.NewStore(db)
	return nil
}

func (s *srv) closeDatabase() {
	if s.db == nil {
		return
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Error("failed to close database", slog.Any("error", err))
	}
}

func (s *srv) loadStorage() error {
	files, err := storage.NewLocalStorage(s.cfg.UploadDir)
	if err != nil {
		return err
	}
	s.files = files
	s.processor = attachment.NewProcessor(files, s.store, s.logger)
	return nil
}

func (s *srv) loadServices() {
	s.hub = websocket.NewHub(websocket.NewRegistry(), s.logger)
	s.messages = services.NewMessageService(s.store, s.processor, s.hub, services.MessageServiceConfig{
		DefaultLimit: s.cfg.RecentMessageLimit,
	}, s.logger)
	s.sweeper = services.NewOrphanSweeper(s.store, s.files, s.processor, services.OrphanSweeperConfig{
		Interval:    s.cfg.OrphanSweepInterval,
		GracePeriod: s.cfg.OrphanGracePeriod,
	}, s.logger)
}

// sessionSecret returns the configured secret. Development without one gets
// a random key, so sessions do not survive a restart.
func (s *srv) sessionSecret() []byte {
	if s.cfg.SessionSecret != "" {
		return []byte(s.cfg.SessionSecret)
	}
	s.logger.Warn("SESSION_SECRET not set, using an ephemeral key")
	return securecookie.GenerateRandomKey(32)
}

func (s *srv) startServer(c *cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}
	defer s.closeDatabase()

	if err := database.Migrate(s.db); err != nil {
		return err
	}
	if err := s.loadStorage(); err != nil {
		return err
	}
	s.loadServices()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubCtx, stopHub := context.WithCancel(context.Background())
	go s.hub.Run(hubCtx)
	s.sweeper.Start()

	production := s.cfg.AppEnv == "production"
	sessions := auth.NewSessionManager(s.sessionSecret(), auth.SessionOptions{
		MaxAge: s.cfg.SessionMaxAge,
		Secure: production,
	})

	router := api.NewRouter(&api.RouterConfig{
		Store:          s.store,
		Messages:       s.messages,
		Auth:           auth.NewService(s.store.Users(), s.logger),
		Sessions:       sessions,
		Gateway:        websocket.NewGateway(s.hub, websocket.NewSecureUpgrader(s.cfg.Origins(), s.security), s.logger),
		Logger:         s.logger,
		Security:       s.security,
		AllowedOrigins: s.cfg.Origins(),
		Production:     production,
		RateLimit:      s.cfg.RateLimitRequests,
		RateBurst:      s.cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.Int("port", s.cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	case runErr = <-serveErr:
		s.logger.Error("http server failed", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; the hub
	// closes them, announcing each session offline
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http shutdown failed", slog.Any("error", err))
	}
	stopHub()
	<-s.hub.Done()
	s.sweeper.Stop()

	s.logger.Info("server stopped")
	return runErr
}

func (s *srv) runMigrate(*cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}
	defer s.closeDatabase()

	return database.Migrate(s.db)
}

func (s *srv) runSweep(c *cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}
	defer s.closeDatabase()

	if err := s.loadStorage(); err != nil {
		return err
	}
	s.loadServices()

	result, err := s.sweeper.SweepOnce(c.Context)
	if err != nil {
		return err
	}
	s.logger.Info("orphan sweep finished",
		slog.Int("rows", result.Rows),
		slog.Int("files", result.Files))
	return nil
}
