// internal/storage/gormdb/gormdb.go
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/solana-counter/internal/storage"
	"github.com/rovshanmuradov/solana-counter/internal/storage/models"
)

// gormLogger реализует интерфейс logger.Interface для GORM
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace пишет SQL в debug; not-found не считается ошибкой
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(begin)),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Warn("Query failed", append(fields, zap.Error(err))...)
		return
	}
	l.zapLogger.Debug("Query", fields...)
}

// gormStorage реализует интерфейс storage.Storage
type gormStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// IsPostgres reports whether dsn points at a PostgreSQL server rather than a
// SQLite file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// NewStorage opens dsn and migrates the schema. A postgres:// URL selects
// PostgreSQL; anything else is a SQLite path, ":memory:" included.
func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	if dsn == "" {
		return nil, errors.New("empty history dsn")
	}

	var dialector gorm.Dialector
	if IsPostgres(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if IsPostgres(dsn) {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// один писатель на файл SQLite
		sqlDB.SetMaxOpenConns(1)
	}

	s := &gormStorage{db: db, logger: zapLogger.Named("history")}
	if err := s.RunMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *gormStorage) RunMigrations() error {
	if err := s.db.AutoMigrate(&models.Submission{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *gormStorage) SaveSubmission(ctx context.Context, sub *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

func (s *gormStorage) GetSubmission(ctx context.Context, signature string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.WithContext(ctx).
		Where("signature = ?", signature).
		Order("id desc").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStorage) ListSubmissions(ctx context.Context, payer string, limit, offset int) ([]*models.Submission, error) {
	var subs []*models.Submission
	query := s.db.WithContext(ctx).Order("id desc").Offset(offset)
	if payer != "" {
		query = query.Where("payer = ?", payer)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

func (s *gormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
