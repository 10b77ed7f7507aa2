package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/teyvattales/models"
)

// Models lists every table owned by the forum, in migration order.
var Models = []interface{}{&models.User{}, &models.Post{}, &models.Comment{}, &models.ActivityEvent{}}

// BuildDSN returns DatabaseURI when set, otherwise a MySQL DSN from the discrete settings.
func BuildDSN(c AppConfig) string {
	if c.DatabaseURI != "" {
		return c.DatabaseURI
	}
	mc := mysqldriver.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// OpenDatabase connects to MySQL, configures the pool and migrates the schema.
// The caller owns the returned handle and must close it on shutdown.
func OpenDatabase(c AppConfig) (*gorm.DB, error) {
	// Raise slow-sql threshold to reduce noise; statement logs only in debug
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(c.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(BuildDSN(c)), &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	// Recycle idle connections before the server's wait_timeout does
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates missing tables. Existing tables are left alone.
func Migrate(db *gorm.DB) error {
	for _, model := range Models {
		if db.Migrator().HasTable(model) {
			continue
		}
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migration failed for %T: %w", model, err)
		}
	}
	return pinEmailCollation(db)
}

// emailCollationDDL returns the statement that makes userDetails.email compare
// case-sensitively, or "" when the dialect already does.
func emailCollationDDL(dialect string) string {
	if dialect != "mysql" {
		return ""
	}
	return "ALTER TABLE `userDetails` MODIFY `email` VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"
}

// pinEmailCollation keeps the unique email index case-sensitive under MySQL's
// default case-insensitive collation.
func pinEmailCollation(db *gorm.DB) error {
	ddl := emailCollationDDL(db.Dialector.Name())
	if ddl == "" {
		return nil
	}
	var collation string
	err := db.Raw("SELECT COLLATION_NAME FROM information_schema.COLUMNS "+
		"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?", "userDetails", "email").
		Scan(&collation).Error
	if err != nil {
		return fmt.Errorf("read email collation: %w", err)
	}
	if collation == "utf8mb4_bin" {
		return nil
	}
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("pin email collation: %w", err)
	}
	return nil
}

// CloseDatabase releases the pool behind db.
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
