package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/amruthadental/clinic-backend/internal/config"
)

// Connect opens the configured database
func Connect(cfg config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Printf("✅ Database connected successfully (%s)", cfg.DBDialect)
	return db, nil
}

func dialectorFor(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBDialect {
	case "", "postgres", "postgresql":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT %q", cfg.DBDialect)
	}
}

func postgresDSN(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	port := cfg.DBPort
	if port == "" {
		port = "5432"
	}
	log.Println("Connecting to PostgreSQL over TCP")
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, port)
}

func mysqlDSN(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	port := cfg.DBPort
	if port == "" {
		port = "3306"
	}
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
	}
	log.Println("Connecting to MySQL over TCP")
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, cfg.DBHost, port, cfg.DBName)
	if cfg.DBTLS != "" {
		dsn += "&tls=" + cfg.DBTLS
	}
	return dsn
}
