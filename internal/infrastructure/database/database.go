package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Config controls GORM/PostgreSQL connectivity. ReadDSN is an optional
// replica; when empty, reads share the write connection.
type Config struct {
	WriteDSN        string
	ReadDSN         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        gormlogger.LogLevel
}

// Connection is the read/write handle pair the repositories are built
// on. Write is authoritative; Read may lag behind it, so read-your-own-
// write paths must go through Write.
type Connection struct {
	Write *gorm.DB
	Read  *gorm.DB
}

// Connect bootstraps the write database (creating it when missing) and
// attaches the read replica when one is configured.
func Connect(cfg Config) (*Connection, error) {
	if cfg.WriteDSN == "" {
		return nil, fmt.Errorf("write DSN is empty")
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = gormlogger.Warn
	}

	// Only the primary is bootstrapped; a replica is managed by its
	// primary and cannot accept a CREATE DATABASE anyway.
	if err := ensureDatabaseExists(cfg.WriteDSN); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	write, err := open(cfg, cfg.WriteDSN)
	if err != nil {
		return nil, fmt.Errorf("connect write database: %w", err)
	}

	read := write
	if cfg.ReadDSN != "" && cfg.ReadDSN != cfg.WriteDSN {
		read, err = open(cfg, cfg.ReadDSN)
		if err != nil {
			return nil, fmt.Errorf("connect read database: %w", err)
		}
	}

	return &Connection{Write: write, Read: read}, nil
}

func open(cfg Config, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("retrieve sql db: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

func ensureDatabaseExists(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil // non-URL formats are ignored
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" || dbName == "postgres" {
		return nil
	}

	adminURL := *u
	adminURL.Path = "/postgres"

	sqlDB, err := sql.Open("postgres", adminURL.String())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var exists bool
	err = sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pqQuoteIdentifier(dbName))
	return err
}

func pqQuoteIdentifier(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
