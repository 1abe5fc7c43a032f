package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// sqlPool is what both database backends provide.
type sqlPool interface {
	io.Closer
	DB() *sql.DB
	Dialect() database.Dialect
}

// newLogger builds the process logger and installs it as the zap global.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// openStore connects to the configured database, registers it as the active
// backend and returns the query service on top of it.
func openStore(cfg *config.Config, log *zap.Logger) (*attendance.QueryService, io.Closer, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	driver := cfg.Database.Driver
	if driver == "" {
		driver = "mysql"
	}
	dialect, err := database.DialectFor(driver)
	if err != nil {
		return nil, nil, fmt.Errorf("DATABASE_DRIVER: %w (use mysql or postgres)", err)
	}

	var pool sqlPool
	switch dialect {
	case database.Postgres:
		pool, err = postgres.Initialize(&cfg.Database)
	default:
		pool, err = mariadb.NewPool(&cfg.Database)
	}
	if err != nil {
		return nil, nil, err
	}

	svc := attendance.NewQueryService(pool.DB(), pool.Dialect(), attendance.WithLogger(log))
	database.RegisterBackend(dialect.Name(),
		func() database.AttendanceReader { return svc },
		func() database.EmployeeReader { return svc })

	log.Debug("database connected", zap.String("driver", dialect.Name()))
	return svc, pool, nil
}

// openRedis connects to REDIS_URL. Without one the stats cache stays in memory.
func openRedis(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("redis stats cache enabled", zap.String("addr", opts.Addr))
	return rdb, nil
}

// openDevice picks the capture device from the camera configuration.
// A non-empty dir overrides the configuration.
func openDevice(cfg config.CameraConfig, dir string) (capture.Device, error) {
	switch {
	case dir != "":
		return capture.NewFileDevice(dir), nil
	case cfg.SnapshotURL != "":
		return capture.NewSnapshotDevice(cfg.SnapshotURL, &http.Client{Timeout: 10 * time.Second}), nil
	case cfg.Dir != "":
		return capture.NewFileDevice(cfg.Dir), nil
	}
	return nil, errors.New("no camera configured: set CAMERA_SNAPSHOT_URL or CAMERA_DIR")
}

// sessionOptions applies the configured resolution and JPEG quality.
func sessionOptions(cfg config.CameraConfig) []capture.Option {
	return []capture.Option{
		capture.WithConstraints(capture.Constraints{
			Width:  cfg.Width,
			Height: cfg.Height,
			Facing: capture.FacingUser,
		}),
		capture.WithJPEGQuality(cfg.JPEGQuality),
	}
}
