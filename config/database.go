package config

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// DSN builds the go-sql-driver/mysql data source name.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
	)
}

// MigrateURL is the golang-migrate URL for the same database.
func (d DatabaseSettings) MigrateURL() string {
	return "mysql://" + d.DSN() + "&multiStatements=true"
}

func InitDB() {
	var err error

	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if Current.IsProduction() && !Current.Database.DebugSQL {
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.StandardLogger(),
			logger.Config{LogLevel: logLevel, IgnoreRecordNotFoundError: true},
		),
	}

	DB, err = gorm.Open(mysql.Open(Current.Database.DSN()), gormConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.WithFields(log.Fields{
		"host":     Current.Database.Host,
		"database": Current.Database.Name,
	}).Info("Database connected successfully")
}
