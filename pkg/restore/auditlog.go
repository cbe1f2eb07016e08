package restore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RestoreRecord is one logged Copier.Restore invocation.
type RestoreRecord struct {
	ID             uint `gorm:"primaryKey"`
	SnapshotPath   string
	DestPath       string
	PreserveAttrs  bool
	Outcome        string
	Error          string
	StartedAt      time.Time
	DurationMillis int64
}

// DatabaseConfig selects and configures the audit log's backing store.
// Driver is "sqlite" (default, no-cgo via glebarez/sqlite) or "postgres".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	Postgres struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Database string `mapstructure:"database"`
		SSLMode  string `mapstructure:"ssl_mode"`
	} `mapstructure:"postgres"`
}

// AuditLog records every restore-copier invocation for later review --
// what was restored from which snapshot path to which destination, and
// whether it succeeded. The invoking user is not recorded.
// Observational only: it never influences where a restore goes.
type AuditLog struct {
	log logrus.FieldLogger
	cfg DatabaseConfig
	db  *gorm.DB
}

// NewAuditLog builds an AuditLog against cfg. Call Start before recording.
func NewAuditLog(log logrus.FieldLogger, cfg DatabaseConfig) *AuditLog {
	return &AuditLog{
		log: log.WithField("component", "restore-audit-log"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (a *AuditLog) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	switch a.cfg.Driver {
	case "", "sqlite":
		path := a.cfg.SQLite.Path
		if path == "" {
			path = "timewalk-restores.db"
		}

		dialector = sqlite.Open(path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			a.cfg.Postgres.Host,
			a.cfg.Postgres.Port,
			a.cfg.Postgres.User,
			a.cfg.Postgres.Password,
			a.cfg.Postgres.Database,
			a.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported restore audit log driver: %s", a.cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return fmt.Errorf("opening restore audit log database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&RestoreRecord{}); err != nil {
		return fmt.Errorf("running restore audit log migrations: %w", err)
	}

	a.db = db

	a.log.WithField("driver", a.cfg.Driver).Info("Restore audit log connected")

	return nil
}

// Stop closes the underlying database connection.
func (a *AuditLog) Stop() error {
	if a.db == nil {
		return nil
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying restore audit log db: %w", err)
	}

	return sqlDB.Close()
}

// Record inserts one outcome row. A logging failure is itself only logged,
// never returned -- a restore that already succeeded or failed must not be
// reported back to the caller as failed merely because its audit entry
// couldn't be written.
func (a *AuditLog) Record(ctx context.Context, rec RestoreRecord) {
	if a.db == nil {
		return
	}

	if err := a.db.WithContext(ctx).Create(&rec).Error; err != nil {
		a.log.WithError(err).Warn("Could not write restore audit log entry")
	}
}

// ListRecent returns the limit most recent restore records, newest first.
func (a *AuditLog) ListRecent(ctx context.Context, limit int) ([]RestoreRecord, error) {
	var records []RestoreRecord

	if err := a.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing restore audit log entries: %w", err)
	}

	return records, nil
}

// RecordingRestore wraps Restore, timing the call and logging its outcome
// to log once it returns.
func RecordingRestore(ctx context.Context, c Copier, log *AuditLog, snapshotPath, newPath string, preserveAttrs bool) error {
	start := time.Now()

	err := Restore(ctx, c, snapshotPath, newPath, preserveAttrs)

	rec := RestoreRecord{
		SnapshotPath:   snapshotPath,
		DestPath:       newPath,
		PreserveAttrs:  preserveAttrs,
		StartedAt:      start,
		DurationMillis: time.Since(start).Milliseconds(),
		Outcome:        "ok",
	}

	if err != nil {
		rec.Outcome = "error"
		rec.Error = err.Error()
	}

	log.Record(ctx, rec)

	return err
}
