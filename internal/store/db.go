package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/city-weather-tracker/internal/auth"
	"github.com/i474232898/city-weather-tracker/internal/common"
	"github.com/i474232898/city-weather-tracker/internal/weather"
)

// Store persists users and tracked cities. It satisfies auth.UserStore and
// weather.CityStore.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var (
	_ auth.UserStore    = (*Store)(nil)
	_ weather.CityStore = (*Store)(nil)
)

// Open connects to dsn and migrates the schema. A postgres:// URL (or a
// key=value DSN with host=) selects PostgreSQL; anything else is treated as
// a SQLite path, ":memory:" included.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	isPostgres := isPostgresDSN(dsn)

	var dialector gorm.Dialector
	if isPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(slogWriter{logger}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if !isPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// Every SQLite connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&auth.User{}, &weather.TrackedCity{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	driver := "sqlite"
	if isPostgres {
		driver = "postgres"
	}
	logger.Info("database ready", slog.String("driver", driver))

	return &Store{db: db, logger: logger}, nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// isDuplicate reports whether err is a uniqueness violation. Drivers that do
// not translate their errors are matched on message.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return common.HasAny(err.Error(), "unique constraint", "duplicate key")
}

type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(fmt.Sprintf(format, args...), slog.String("component", "gorm"))
}
