package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"marketplace-escrow-go/internal/api"
	"marketplace-escrow-go/internal/database"
	"marketplace-escrow-go/internal/formance"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/relay"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService     *database.Service
	EscrowService *api.EscrowService
}

// BootstrapLogger installs a production logger as the global logger so that
// failures before the configuration is loaded are still printed.
func BootstrapLogger() *zap.Logger {
	logger := zap.Must(zap.NewProduction())
	zap.ReplaceGlobals(logger)
	return logger
}

// InitializeLogger builds the global production logger. When cfg.File is
// set the same entries are also written to a size-rotated JSON file.
func InitializeLogger(cfg models.LogConfig) (*zap.Logger, func()) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			log.Printf("Unknown LOG_LEVEL %q, using info\n", cfg.Level)
		} else {
			level = parsed
		}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    withDefault(cfg.MaxSizeMB, 100),
			MaxBackups: withDefault(cfg.MaxBackups, 3),
			MaxAge:     withDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zapCfg.EncoderConfig),
			zapcore.AddSync(rotator),
			zapCfg.Level,
		)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
		if rotator != nil {
			if err := rotator.Close(); err != nil {
				log.Printf("Failed to close log file: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	return &Services{
		DbService:     dbService,
		EscrowService: api.NewEscrowService(dbService),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

// InitializeSinks builds the relay sinks enabled by cfg. The log sink is
// used when neither Kafka nor Formance is configured.
func InitializeSinks(ctx context.Context, cfg *models.Config) ([]relay.Sink, func(), error) {
	var sinks []relay.Sink
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := relay.NewKafkaSink(cfg.Kafka)
		if err != nil {
			return nil, cleanup, err
		}
		sinks = append(sinks, kafkaSink)
		closers = append(closers, func() {
			if err := kafkaSink.Close(); err != nil {
				zap.L().Warn("Failed to close kafka writer", zap.Error(err))
			}
		})
	}

	if cfg.Formance.StackURL != "" {
		mirror, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("unable to initialize formance mirror: %w", err)
		}
		sinks = append(sinks, mirror)
		closers = append(closers, mirror.Close)
	}

	if len(sinks) == 0 {
		zap.L().Info("No external sinks configured, events will be logged")
		sinks = append(sinks, relay.LogSink{})
	}

	return sinks, cleanup, nil
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
