package database

import (
	"chatapp-local/internal/models"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Sqlite Dialect = "sqlite"
	Mysql  Dialect = "mysql"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(db *sql.DB, sugar *zap.SugaredLogger) error {
	var journalModeValue string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}

	var synchronousValue int
	err = db.QueryRow("PRAGMA synchronous").Scan(&synchronousValue)
	if err != nil {
		return err
	}

	var synchronousValueStr string
	switch synchronousValue {
	case 0:
		synchronousValueStr = "off"
	case 1:
		synchronousValueStr = "normal"
	case 2:
		synchronousValueStr = "full"
	case 3:
		synchronousValueStr = "extra"
	default:
		return fmt.Errorf("synchronous value is unsupported")
	}

	sugar.Infof("sqlite PRAGMA journal_mode: %s, synchronous: %s", journalModeValue, synchronousValueStr)

	return nil
}

// OpenSqlite opens (creating if needed) the sqlite file at path.
func OpenSqlite(path string, sugar *zap.SugaredLogger) (*sql.DB, error) {
	sugar.Infof("Connecting to database sqlite at %s...", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// there can be sqlite busy errors if this is not set to 1
	db.SetMaxOpenConns(1)

	if err := setPragmaValues(db); err != nil {
		return nil, fmt.Errorf("set pragma: %w", err)
	}

	if err := readPragmaValues(db, sugar); err != nil {
		return nil, fmt.Errorf("read pragma: %w", err)
	}

	if err := setupTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func OpenMysql(cfg *models.ConfigFile, sugar *zap.SugaredLogger) (*sql.DB, error) {
	sugar.Infof("Connecting to database mysql/mariadb at %s:%s...", cfg.DbAddress, cfg.DbPort)

	db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	if err := setupTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Setup opens the database the config asks for.
func Setup(cfg *models.ConfigFile, sugar *zap.SugaredLogger) (*sql.DB, Dialect, error) {
	if cfg.SelfContained {
		path := cfg.SqlitePath
		if path == "" {
			path = "./database.db"
		}
		db, err := OpenSqlite(path, sugar)
		return db, Sqlite, err
	}

	db, err := OpenMysql(cfg, sugar)
	return db, Mysql, err
}

func setupTables(db *sql.DB) error {
	// the value column holds whole tables serialized as JSON
	_, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS key_values (
				name VARCHAR(191) NOT NULL PRIMARY KEY,
				value LONGTEXT NOT NULL,
				revision BIGINT NOT NULL,
				expires_at BIGINT NOT NULL DEFAULT 0
			);
		`)
	if err != nil {
		return fmt.Errorf("create key_values: %w", err)
	}

	return nil
}
