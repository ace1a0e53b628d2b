// Package persistence provides the version metadata database for riskserve.
// It opens a gorm connection on SQLite (default) or PostgreSQL, migrates the
// registry tables and implements repository.VersionRepository on top of them.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// DBConnection manages the metadata database lifecycle.
type DBConnection struct {
	db     *gorm.DB
	driver string
	logger logger.Logger
}

// NewDBConnection opens the database selected by cfg.Driver and migrates the schema.
//
// Parameters:
//   - ctx: Context for the initial health check
//   - cfg: Tracking configuration (driver and DSN)
//   - paths: Resolved paths; the SQLite file lives at paths.TrackingDBPath
//   - log: Logger instance for connection lifecycle events
func NewDBConnection(ctx context.Context, cfg *config.TrackingConfig, paths config.Paths, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, errors.ErrInvalidConfig
	}
	driver := strings.ToLower(cfg.Driver)

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		// busy_timeout lets the admin CLI and the server share one file
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", paths.TrackingDBPath)
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.InvalidConfig("tracking.driver", fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}

	log.Info(ctx, "Initializing metadata database", logger.Fields{
		"driver": driver,
		"path":   paths.TrackingDBPath,
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error(ctx, "Failed to open metadata database", err, logger.Fields{"driver": driver})
		return nil, errors.ArtifactStore("open", "", err)
	}

	conn := &DBConnection{db: db, driver: driver, logger: log}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info(ctx, "Metadata database initialized successfully", logger.Fields{"driver": driver})
	return conn, nil
}

// DB returns the underlying gorm handle.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Migrate creates or updates the registry tables.
func (c *DBConnection) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&modelVersionRecord{}, &versionParamRecord{}, &versionMetricRecord{}); err != nil {
		c.logger.Error(ctx, "Failed to migrate metadata schema", err)
		return errors.ArtifactStore("migrate", "", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (c *DBConnection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return errors.ArtifactStore("ping", "", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	startTime := time.Now()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		c.logger.Error(ctx, "Database ping failed", err)
		return errors.ArtifactStore("ping", "", err)
	}

	// Warn if latency is high (> 100ms)
	if latency := time.Since(startTime); latency > 100*time.Millisecond {
		c.logger.Warn(ctx, "High database latency detected", logger.Fields{
			"latency_ms":   latency.Milliseconds(),
			"threshold_ms": 100,
		})
	}
	return nil
}

// Close releases the connection pool.
func (c *DBConnection) Close() {
	sqlDB, err := c.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Warn(context.Background(), "Failed to close metadata database", logger.Fields{"error": err.Error()})
		return
	}
	c.logger.Info(context.Background(), "Metadata database closed", logger.Fields{"driver": c.driver})
}

//Personal.AI order the ending
