package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/boardgame-backend/internal/config"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
	"github.com/rocketscienceinc/boardgame-backend/internal/observer"
	"github.com/rocketscienceinc/boardgame-backend/internal/registry"
	"github.com/rocketscienceinc/boardgame-backend/internal/repository"
	"github.com/rocketscienceinc/boardgame-backend/internal/repository/storage"
	"github.com/rocketscienceinc/boardgame-backend/internal/usecase"
	"github.com/rocketscienceinc/boardgame-backend/transport/rest"
	"github.com/rocketscienceinc/boardgame-backend/transport/tcp"
	"github.com/rocketscienceinc/boardgame-backend/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	variant, err := entity.ParseVariant(conf.Session.Variant)
	if err != nil {
		return fmt.Errorf("invalid session variant: %w", err)
	}

	sessions := registry.New(registry.Settings{
		Rows:       conf.Session.Rows,
		Cols:       conf.Session.Cols,
		MaxPlayers: conf.Session.MaxPlayers,
		Variant:    variant,
	})
	defer sessions.Close()

	stats := observer.NewStats()
	observers := []observer.Observer{observer.Logging(logger), stats.Observe}

	// nil leaves /leaderboard disabled
	var leaderboard rest.LeaderboardReader

	if conf.Redis.Enabled {
		redisStorage, redisErr := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr(), conf.Redis.Password, conf.Redis.DB)
		if redisErr != nil {
			return fmt.Errorf("could not connect to redis storage: %w", redisErr)
		}

		defer func() {
			if closeErr := redisStorage.Close(); closeErr != nil {
				log.Error("could not close redis storage", "error", closeErr)
			}
		}()

		sessionRepo := repository.NewSessionRepository(redisStorage.Connection, conf.Redis.SnapshotTTL)
		board := repository.NewLeaderboard(redisStorage.Connection, conf.Redis.LeaderboardKey)
		leaderboard = board

		observers = append(observers,
			repository.SnapshotObserver(sessionRepo),
			repository.LeaderboardObserver(board),
		)
	}

	dispatcher := observer.NewDispatcher(logger, observers...)
	manager := usecase.NewSessionManager(logger, sessions, dispatcher, conf.Session.AutoStart)

	group, groupCtx := errgroup.WithContext(ctx)

	// run TCP server
	group.Go(func() error {
		log.Info("Starting TCP server", "port", conf.TCPPort)
		if tcpErr := tcp.New(logger, manager, conf.ReadTimeout).Start(groupCtx, conf.TCPPort); tcpErr != nil {
			return fmt.Errorf("TCP server error: %w", tcpErr)
		}
		return nil
	})

	// run Websocket server
	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := websocket.New(logger, manager).Start(groupCtx, conf.SocketPort); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}
		return nil
	})

	// run HTTP server
	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		router := rest.NewRouter(logger, manager, stats, leaderboard)
		if httpErr := rest.Start(groupCtx, conf.HTTPPort, router); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	if err = group.Wait(); err != nil {
		log.Error("server failed", "error", err)
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
