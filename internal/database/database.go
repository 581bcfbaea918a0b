package database

import (
	"embed"
	"fmt"
	"time"

	"figures/internal/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations
var migrations embed.FS

// Dialector returns the gorm dialector for the configured database type.
func Dialector(config models.DatabaseConfiguration) (gorm.Dialector, error) {
	switch config.Type {
	case "postgres":
		sslMode := config.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			config.Host, config.User, config.Password, config.Name, config.Port, sslMode,
		)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := mysqldriver.NewConfig()
		dsn.User = config.User
		dsn.Passwd = config.Password
		dsn.Net = "tcp"
		dsn.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
		dsn.DBName = config.Name
		dsn.ParseTime = true
		dsn.Loc = time.UTC
		return mysql.Open(dsn.FormatDSN()), nil
	case "sqlite":
		return sqlite.Open(config.Name + "?_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", config.Type)
	}
}

func Open(config models.DatabaseConfiguration) (*gorm.DB, error) {
	dialector, err := Dialector(config)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func gooseDialect(dbType string) string {
	if dbType == "sqlite" {
		return "sqlite3"
	}
	return dbType
}

// Migrate applies the embedded migrations for the Figures tables. Host
// platform tables are never touched.
func Migrate(db *gorm.DB, dbType string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	dialect := gooseDialect(dbType)
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err = goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err = goose.Up(sqlDB, "migrations/"+dialect); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// MigrationVersion returns the version of the last applied migration.
func MigrationVersion(db *gorm.DB, dbType string) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, err
	}
	goose.SetBaseFS(migrations)
	if err = goose.SetDialect(gooseDialect(dbType)); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(sqlDB)
}

func InitDB(config models.DatabaseConfiguration) *gorm.DB {
	db, err := Open(config)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}

	if config.Migrate {
		if err = Migrate(db, config.Type); err != nil {
			zap.L().Fatal("Failed to migrate database", zap.Error(err))
		}
		zap.L().Info("Database migrations applied", zap.String("type", config.Type))
	}
	return db
}
