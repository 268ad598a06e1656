package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lulubrolive/server/internal/controller"
	feedRedis "github.com/lulubrolive/server/internal/repository/feed/redis"
	roomGorm "github.com/lulubrolive/server/internal/repository/room/gorm"
	roomRedis "github.com/lulubrolive/server/internal/repository/room/redis"
	"github.com/lulubrolive/server/internal/service/room"
	"github.com/lulubrolive/server/pkg/ctxlogger"
	"github.com/lulubrolive/server/pkg/database"
	"github.com/lulubrolive/server/pkg/redisclient"
	"github.com/lulubrolive/server/pkg/ytvideo"
)

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"

	shutdownTimeout   = 30 * time.Second
	videoFetchTimeout = 5 * time.Second
)

type AppConfig struct {
	Secret         string   `json:"-"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	LogLevel       string   `json:"log_level"`
	CreationKey    string   `json:"-"`
	MessagesLimit  int      `json:"messages_limit"`
	StoreDriver    string   `json:"store_driver"`
	RedisHost      string   `json:"redis_host"`
	RedisPort      int      `json:"redis_port"`
	RedisPassword  string   `json:"-"`
	RedisDB        int      `json:"redis_db"`
	DBHost         string   `json:"db_host"`
	DBPort         int      `json:"db_port"`
	DBUser         string   `json:"db_user"`
	DBPassword     string   `json:"-"`
	DBName         string   `json:"db_name"`
	DBSSLMode      string   `json:"db_ssl_mode"`
	DBPath         string   `json:"db_path"`
	FetchVideoMeta bool     `json:"fetch_video_meta"`
	AllowedOrigins []string `json:"allowed_origins"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return errors.New("secret must be set")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if cfg.MessagesLimit < 1 {
		return errors.New("messages limit must be greater than 0")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	switch cfg.StoreDriver {
	case StoreRedis, StorePostgres, StoreMySQL:
	case StoreSQLite:
		if cfg.DBPath == "" {
			return errors.New("db path must be set for sqlite")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	return nil
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		logLevel = slog.LevelInfo
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h)
}

type videoFetcher interface {
	Get(ctx context.Context, videoId string) (*ytvideo.VideoData, error)
}

// newHandler wires the store selected by cfg, the room service and the
// controller. The change feed always runs on redis.
func newHandler(ctx context.Context, cfg *AppConfig, rc *redis.Client, logger *slog.Logger) (http.Handler, func(), error) {
	fd := feedRedis.New(rc, logger)

	var fetcher videoFetcher
	if cfg.FetchVideoMeta {
		fetcher = ytvideo.NewFetcher(&http.Client{Timeout: videoFetchTimeout})
	}

	serviceCfg := &room.Config{
		Secret:        cfg.Secret,
		CreationKey:   cfg.CreationKey,
		MessagesLimit: cfg.MessagesLimit,
	}
	controllerCfg := &controller.Config{
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.StoreDriver == StoreRedis || cfg.StoreDriver == "" {
		roomService := room.NewService(roomRedis.NewRepo(rc, logger), fetcher, logger, serviceCfg)
		return controller.NewController(roomService, fd, logger, controllerCfg).GetMux(), func() {}, nil
	}

	maxOpenConns := 20
	if cfg.StoreDriver == StoreSQLite {
		// sqlite allows a single writer
		maxOpenConns = 1
	}

	db, err := database.New(&database.Config{
		Driver:          cfg.StoreDriver,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		FilePath:        cfg.DBPath,
		MaxIdleConns:    5,
		MaxOpenConns:    maxOpenConns,
		ConnMaxLifetime: time.Hour,
		LogSQL:          strings.EqualFold(cfg.LogLevel, "debug"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	roomRepo := roomGorm.NewRepo(db, fd, logger)
	if err := roomRepo.Migrate(ctx); err != nil {
		database.Close(db)
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	roomService := room.NewService(roomRepo, fetcher, logger, serviceCfg)
	closeDB := func() {
		if err := database.Close(db); err != nil {
			logger.WarnContext(ctx, "failed to close database", "error", err)
		}
	}

	return controller.NewController(roomService, fd, logger, controllerCfg).GetMux(), closeDB, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	handler, closeRepo, err := newHandler(ctx, cfg, rc, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, shutdownTimeout)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
