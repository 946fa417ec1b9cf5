package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/hsautopilot/tracker-go/internal/cards"
	"github.com/hsautopilot/tracker-go/internal/config"
	"github.com/hsautopilot/tracker-go/internal/feed"
	"github.com/hsautopilot/tracker-go/internal/game"
	"github.com/hsautopilot/tracker-go/internal/logtail"
	"github.com/hsautopilot/tracker-go/internal/server"
)

const defaultConfigPath = "config/config.yaml"

var (
	configPath     = flag.String("config", defaultConfigPath, "path to configuration file")
	replayGame     = flag.String("replay", "", "serve a saved game's snapshots by game id instead of tailing the log")
	replayInterval = flag.Duration("replay-interval", time.Second, "delay between replayed snapshots")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration; the default file is optional
	path := *configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting tracker",
		zap.String("version", version),
		zap.String("config", path),
		zap.String("log_path", cfg.Log.Path),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	db, err := loadCards(ctx, cfg.Cards, logger)
	if err != nil {
		logger.Fatal("failed to load card database", zap.Error(err))
	}
	logger.Info("card database loaded",
		zap.String("source", cfg.Cards.Source),
		zap.Int("cards", db.Len()),
	)

	session := game.NewSession(db, logger.Named("session"), game.Options{
		MaxDepth:       cfg.Parser.MaxDepth,
		FriendlyPlayer: cfg.Player.Friendly,
	})
	// a bad deck code leaves the session in direct mode; already logged
	_ = session.ApplyDeckCode(cfg.Deck.Code)

	bus := feed.NewBus()
	bus.Subscribe(func(snap game.Snapshot) {
		logger.Debug("snapshot published",
			zap.String("game_id", snap.GameID),
			zap.Int("turn", snap.Turn),
			zap.String("phase", snap.Phase),
			zap.Int("hand", len(snap.Hand)),
			zap.Int("choices", len(snap.Choices)),
		)
	})

	var recorder *game.ReplayRecorder
	if cfg.Replay.Enabled && *replayGame == "" {
		recorder = game.NewReplayRecorder(logger.Named("replay"), cfg.Replay.Dir)
		bus.Subscribe(recorder.RecordSnapshot)
		logger.Info("replay recording enabled", zap.String("directory", cfg.Replay.Dir))
	}

	var (
		grpcServer *grpc.Server
		snapshots  *server.SnapshotServer
	)
	if cfg.Server.GRPC.Address != "" {
		snapshots = server.NewSnapshotServer(bus, logger.Named("grpc"))

		opts := []grpc.ServerOption{
			grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
				server.RecoveryInterceptor(logger),
				server.LoggingInterceptor(logger),
			)),
			grpc.ChainStreamInterceptor(
				server.StreamRecoveryInterceptor(logger),
				server.StreamLoggingInterceptor(logger),
			),
			grpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    30 * time.Second,
				Timeout: 10 * time.Second,
			}),
		}
		if n := cfg.Server.GRPC.MaxConcurrentStreams; n > 0 {
			opts = append(opts, grpc.MaxConcurrentStreams(uint32(n)))
		}
		grpcServer = grpc.NewServer(opts...)
		server.RegisterSnapshotServiceServer(grpcServer, snapshots)

		lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
		if err != nil {
			logger.Fatal("failed to listen", zap.Error(err))
		}
		go func() {
			logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
			if serveErr := grpcServer.Serve(lis); serveErr != nil {
				logger.Error("gRPC server error", zap.Error(serveErr))
			}
		}()
	}

	if cfg.Server.WebSocket.Address != "" {
		hub := server.NewHub(bus, logger.Named("websocket"))
		go hub.Run(ctx)
		go func() {
			if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, hub, logger); wsErr != nil {
				logger.Error("WebSocket server error", zap.Error(wsErr))
			}
		}()
	}

	tailDone := make(chan struct{})
	if *replayGame != "" {
		replay, err := game.LoadReplayFromFile(cfg.Replay.Dir, *replayGame)
		if err != nil {
			logger.Fatal("failed to load replay",
				zap.String("game_id", *replayGame),
				zap.String("directory", cfg.Replay.Dir),
				zap.Error(err),
			)
		}
		logger.Info("replaying saved game",
			zap.String("game_id", replay.GameID),
			zap.Int("snapshot_count", replay.Size()),
			zap.Duration("interval", *replayInterval),
		)
		go func() {
			defer close(tailDone)
			played, err := replay.Play(ctx, *replayInterval, bus.Publish)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("replay stopped", zap.Error(err))
			}
			logger.Info("replay finished", zap.Int("played", played))
		}()
	} else {
		tailer := logtail.New(logtail.Options{
			Path:      cfg.Log.Path,
			Interval:  cfg.Log.PollInterval,
			FromStart: cfg.Log.FromStart,
		}, logger.Named("logtail"))

		go func() {
			defer close(tailDone)
			_ = tailer.Run(ctx, func(chunk string, rotated bool) {
				if rotated {
					session.Reset()
					bus.Reset()
					_ = session.ApplyDeckCode(cfg.Deck.Code)
				}
				if chunk != "" {
					// failures keep the previous state and are logged by the session
					_ = session.Feed(chunk)
				}
				if snap, ok := session.Poll(); ok {
					bus.Publish(snap)
				}
			})
		}()
	}

	logger.Info("tracker initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.Stringer("deck_mode", session.DeckMode()),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()
	<-tailDone

	if grpcServer != nil {
		// open watch streams only end once the service is closed
		snapshots.Close()
		grpcServer.GracefulStop()
	}
	if recorder != nil {
		if err := recorder.Flush(); err != nil {
			logger.Warn("failed to save replay", zap.Error(err))
		}
	}

	logger.Info("tracker stopped")
}

// loadCards builds the in-memory card database from the configured source.
func loadCards(ctx context.Context, cfg config.CardsConfig, logger *zap.Logger) (*cards.Database, error) {
	var (
		list []cards.Card
		err  error
	)
	switch cfg.Source {
	case config.CardSourcePostgres:
		store, openErr := cards.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
		if openErr != nil {
			return nil, openErr
		}
		defer store.Close()
		list, err = store.LoadAll(ctx)

	case config.CardSourceSQLite:
		store, openErr := cards.OpenSQLite(cfg.Path, logger)
		if openErr != nil {
			return nil, openErr
		}
		defer store.Close()
		list, err = store.LoadAll(ctx)

	default:
		f, openErr := os.Open(cfg.Path)
		if openErr != nil {
			return nil, fmt.Errorf("open card file: %w", openErr)
		}
		defer f.Close()
		list, err = cards.LoadJSON(f, cfg.Locale)
	}
	if err != nil {
		return nil, err
	}
	return cards.NewDatabase(list), nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
