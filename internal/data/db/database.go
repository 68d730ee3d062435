package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/utils"
)

// DatabaseService owns the gorm handle. The driver is picked with DB_DRIVER:
// sqlite (default, file path from SQLITE_PATH) or postgres (POSTGRES_* vars).
type DatabaseService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatabaseService(logg *logger.Logger) (*DatabaseService, error) {
	serviceLog := logg.With("service", "DatabaseService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{Logger: gormLog}

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "sqlite", logg))

	var (
		handle *gorm.DB
		err    error
	)
	switch driver {
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", logg)
		port := utils.GetEnv("POSTGRES_PORT", "5432", logg)
		user := utils.GetEnv("POSTGRES_USER", "postgres", logg)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", logg)
		name := utils.GetEnv("POSTGRES_NAME", "briefbot", logg)
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, password, host, port, name,
		)
		handle, err = gorm.Open(postgres.Open(dsn), gormCfg)
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "briefbot.db", logg)
		handle, err = gorm.Open(sqlite.Open(path), gormCfg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	serviceLog.Info("Database connected", "driver", driver)
	return &DatabaseService{db: handle, log: serviceLog}, nil
}

func (s *DatabaseService) DB() *gorm.DB { return s.db }

func (s *DatabaseService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
