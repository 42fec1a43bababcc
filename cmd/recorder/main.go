package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openvortex/wire-data/internal/api"
	"github.com/openvortex/wire-data/internal/config"
	"github.com/openvortex/wire-data/internal/database"
	"github.com/openvortex/wire-data/internal/feed"
	"github.com/openvortex/wire-data/internal/version"
	"github.com/openvortex/wire-data/internal/wire"
	"github.com/openvortex/wire-data/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"instruments", len(cfg.Instruments),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	db, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	// Obtain access token
	apiClient := api.NewClient(
		cfg.Auth.RestURL,
		cfg.Auth.APIKey,
		cfg.Auth.ApplicationID,
		api.WithLogger(logger),
		api.WithTimeout(30*time.Second),
		api.WithRetries(3, time.Second),
	)

	accessToken := cfg.Auth.AccessToken
	if accessToken == "" {
		accessToken, err = apiClient.Login(ctx, cfg.Auth.ClientCode, cfg.Auth.Password, cfg.Auth.TOTP)
		if err != nil {
			logger.Error("login failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			logoutCtx, logoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer logoutCancel()
			if err := apiClient.Logout(logoutCtx); err != nil {
				logger.Warn("logout failed", "error", err)
			}
		}()
	} else {
		apiClient.SetAccessToken(accessToken)
	}

	// Start writers
	runID := uuid.New()
	logger.Info("starting writers", "run_id", runID)

	writerCfg := writer.Config{
		BatchSize:     cfg.Writer.BatchSize,
		FlushInterval: cfg.Writer.FlushInterval,
	}
	tickBuf := writer.NewBuffer[writer.TickRecord](cfg.Writer.BufferSize)
	orderBuf := writer.NewBuffer[writer.OrderRecord](cfg.Writer.BufferSize)

	tickWriter := writer.NewTickWriter(writerCfg, runID, tickBuf, db, logger)
	orderWriter := writer.NewOrderUpdateWriter(writerCfg, runID, orderBuf, db, logger)

	if err := tickWriter.Start(ctx); err != nil {
		logger.Error("failed to start tick writer", "error", err)
		os.Exit(1)
	}
	if err := orderWriter.Start(ctx); err != nil {
		logger.Error("failed to start order update writer", "error", err)
		os.Exit(1)
	}

	// Create feed session
	feedCfg := feed.Config{
		Endpoint:           cfg.Feed.Endpoint,
		AccessToken:        accessToken,
		ReconnectMaxTries:  cfg.Feed.ReconnectMaxTries,
		ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
		ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
		ConnectTimeout:     cfg.Feed.ConnectTimeout,
		PingInterval:       cfg.Feed.PingInterval,
	}

	listener := &recorderListener{
		logger:      logger,
		instruments: cfg.Instruments,
		ticks:       tickBuf,
		orders:      orderBuf,
		cancel:      cancel,
	}

	session := feed.NewSession(feedCfg, listener, logger)

	// Run the session in the foreground under the errgroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Connect(gctx, false)
	})

	logger.Info("recorder running", "instance_id", cfg.Instance.ID)

	if err := g.Wait(); err != nil {
		logger.Error("session ended with error", "error", err)
	}

	logger.Info("shutting down...")
	session.Close()

	tickBuf.Close()
	orderBuf.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	tickWriter.Stop(shutdownCtx)
	orderWriter.Stop(shutdownCtx)

	logger.Info("recorder stopped",
		"ticks", tickWriter.Stats().Inserts,
		"order_updates", orderWriter.Stats().Inserts,
	)
}

// recorderListener pushes feed events into the writer buffers and
// subscribes the configured instruments on the first open.
type recorderListener struct {
	feed.NopListener

	logger      *slog.Logger
	instruments []config.InstrumentConfig
	ticks       *writer.Buffer[writer.TickRecord]
	orders      *writer.Buffer[writer.OrderRecord]
	cancel      context.CancelFunc

	subscribeOnce sync.Once
}

func (l *recorderListener) OnOpen(s *feed.Session) {
	l.logger.Info("feed connected")
	l.subscribeOnce.Do(func() {
		for _, inst := range l.instruments {
			if err := s.Subscribe(inst.Exchange, inst.Token, wire.Mode(inst.Mode)); err != nil {
				l.logger.Error("subscribe failed",
					"exchange", inst.Exchange,
					"token", inst.Token,
					"error", err,
				)
				return
			}
		}
		l.logger.Info("subscribed", "instruments", len(l.instruments))
	})
}

func (l *recorderListener) OnTick(s *feed.Session, tick wire.Tick) {
	l.ticks.Push(writer.TickRecord{Tick: tick, ReceivedAt: time.Now()})
}

func (l *recorderListener) OnOrderUpdate(s *feed.Session, update wire.OrderUpdate) {
	l.orders.Push(writer.OrderRecord{Update: update, ReceivedAt: time.Now()})
}

func (l *recorderListener) OnClose(s *feed.Session, err error) {
	if err != nil {
		l.logger.Warn("feed closed", "error", err)
	} else {
		l.logger.Info("feed closed")
	}
}

func (l *recorderListener) OnError(s *feed.Session, err error) {
	l.logger.Error("feed error", "error", err)
}

func (l *recorderListener) OnReconnect(s *feed.Session, attempt int) {
	l.logger.Info("reconnecting", "attempt", attempt)
}

func (l *recorderListener) OnNoReconnect(s *feed.Session) {
	l.logger.Error("retry budget exhausted, shutting down")
	l.cancel()
}
