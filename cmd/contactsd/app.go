package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contactly/backend/internal/cache"
	"github.com/contactly/backend/internal/db"
	"github.com/contactly/backend/internal/handlers"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/repository/postgres"
	"github.com/contactly/backend/internal/service/auth"
	"github.com/contactly/backend/internal/service/auth/tokencodec"
	"github.com/contactly/backend/internal/service/contact"
	"github.com/contactly/backend/internal/service/mail"
	"github.com/contactly/backend/internal/service/upload"
	"github.com/contactly/backend/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	pool    *pgxpool.Pool
	cache   *cache.SessionCache
	sweeper *auth.Sweeper
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	sessionCache, err := cache.Connect(ctx, c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	codec, err := tokencodec.New(tokencodec.Config{SecretKey: c.SecretKey, Alg: c.Algorithm})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	// Mail is optional: without SMTP settings the service runs, it just
	// never sends confirmation or reset messages
	var mailer mail.Sender
	if c.MailHost != "" {
		mailer, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:       c.MailHost,
			Port:       c.MailPort,
			Username:   c.MailUsername,
			Password:   c.MailPassword,
			From:       c.MailFrom,
			FromName:   c.MailFromName,
			AppBaseURL: c.AppBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("error while creating smtp sender. Err: %w", err)
		}
	}

	authService, err := auth.NewService(
		auth.Config{
			AccessTokenTTL:  time.Duration(c.AccessTokenMinutes) * time.Minute,
			RefreshTokenTTL: time.Duration(c.RefreshTokenDays) * 24 * time.Hour,
			Logger:          log,
		},
		codec, sessionCache, mailer, storage.User(), storage.Refresh(),
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	userService, err := user.NewService(codec, nil, sessionCache, mailer, storage.User(), log)
	if err != nil {
		return nil, fmt.Errorf("error while creating user service. Err: %w", err)
	}

	contactService := contact.NewService(storage.Contact())

	uploader, err := upload.NewLocal(c.UploadDir, c.AppBaseURL+"/static/avatars")
	if err != nil {
		return nil, fmt.Errorf("error while preparing upload dir. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, userService, contactService, uploader, pool, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		pool:       pool,
		cache:      sessionCache,
		sweeper:    auth.NewSweeper(storage.Refresh(), log),
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.sweeper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	if cerr := s.cache.Close(); cerr != nil {
		s.logger.Warn("can't close redis connection", "error", cerr.Error())
	}
	s.pool.Close()

	return err
}
