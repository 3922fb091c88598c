package db

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/eqstudio/eqstudio/internal/domain"
	"github.com/eqstudio/eqstudio/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Database struct {
	db   *gorm.DB
	path string
	mu   sync.RWMutex
}

type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        string
}

func DefaultConfig() Config {
	return Config{
		Path:            filepath.Join(getDataDir(), "presets.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		LogLevel:        "warn",
	}
}

// Open opens (creating if needed) the preset database at cfg.Path and runs
// migrations.
func Open(cfg Config) (*Database, error) {
	d := &Database{}
	if err := d.Initialize(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) Initialize(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	var logLevel gormlogger.LogLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "info":
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d.db = db
	d.path = cfg.Path

	if err := d.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Preset database initialized", logger.String("path", cfg.Path))
	return nil
}

// dsn carries the connection pragmas so every pooled connection gets them.
func dsn(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// migrate runs with d.mu held.
func (d *Database) migrate() error {
	if d.db == nil {
		return fmt.Errorf("database not initialized")
	}

	models := []interface{}{
		&domain.Preset{},
	}
	for _, model := range models {
		if err := d.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	if err := d.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Debug("Database migrations completed")
	return nil
}

func (d *Database) createIndexes() error {
	indexes := []struct {
		Table   string
		Name    string
		Columns []string
	}{
		{"presets", "idx_presets_mode_window", []string{"mode", "window"}},
		{"presets", "idx_presets_updated_at", []string{"updated_at"}},
	}

	for _, idx := range indexes {
		var count int64
		d.db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", idx.Name).Scan(&count)
		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.Name, idx.Table, strings.Join(quote(idx.Columns), ", "))
		if err := d.db.Exec(sql).Error; err != nil {
			logger.Warn("Failed to create index",
				logger.String("index", idx.Name),
				logger.Error(err))
		}
	}
	return nil
}

// quote guards column names that are SQL keywords, such as window.
func quote(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = `"` + c + `"`
	}
	return out
}

func (d *Database) DB() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

func (d *Database) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		sqlDB, err := d.db.DB()
		if err != nil {
			return err
		}
		d.db = nil
		return sqlDB.Close()
	}
	return nil
}

// Backup writes a consistent copy of the database to path.
func (d *Database) Backup(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	// VACUUM refuses to run beside open statements, so bypass the gorm
	// statement cache.
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if _, err := sqlDB.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}

	logger.Info("Database backed up", logger.String("path", path))
	return nil
}

func (d *Database) GetStats() (map[string]interface{}, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stats := make(map[string]interface{})

	var count int64
	if err := d.db.Model(&domain.Preset{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count presets: %w", err)
	}
	stats["presets_count"] = count

	var dbSize int64
	d.db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&dbSize)
	stats["size_bytes"] = dbSize

	return stats, nil
}

func getDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "EqStudio")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "eqstudio")
}
