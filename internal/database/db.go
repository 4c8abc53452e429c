package database

import (
	"fmt"
	"time"

	"salestrack-backend/internal/config"
	"salestrack-backend/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	logg := config.GetLogger()

	db, err := Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logg.Fatalf("could not connect to database: %v", err)
	}
	if err := Migrate(db); err != nil {
		logg.Fatalf("AutoMigrate failed: %v", err)
	}
	DB = db

	logg.WithField("driver", cfg.DatabaseDriver).Info("database connected, migration done")
}

// Open connects with the gorm dialector of the given driver. SQL logging goes
// through logrus at warn level.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(config.GetLogger(), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer, and every connection to ":memory:" opens
	// a separate empty database.
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.Sale{},
		&models.AuditLog{},
	)
}
