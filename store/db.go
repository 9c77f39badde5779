package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps the raw sqlx handle (used for migrations and manual SQL) and
// remembers which driver opened it so Gorm can attach to the same database.
type DB struct {
	*sqlx.DB
	Driver string
	dsn    string
}

// OpenFromConfig opens a database based on the provided url/path. A db_url
// selects postgres; otherwise a sqlite file is used.
func OpenFromConfig(dbURL, sqlitePath, driverOverride string) (*DB, error) {
	sqlx.NameMapper = toSnake

	driver := strings.TrimSpace(driverOverride)
	dsn := ""

	switch strings.ToLower(driver) {
	case "", "default":
		if dbURL != "" {
			driver = DriverPostgres
			dsn = dbURL
		} else {
			driver = DriverSQLite
			if sqlitePath == "" {
				sqlitePath = "scholarseek.db"
			}
			dsn = sqlitePath
		}
	case "postgres", "pgx":
		if dbURL == "" {
			return nil, fmt.Errorf("db_url required for %s driver", driver)
		}
		driver = DriverPostgres
		dsn = dbURL
	case "sqlite", "sqlite3":
		driver = DriverSQLite
		if sqlitePath == "" {
			sqlitePath = "scholarseek.db"
		}
		dsn = sqlitePath
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{DB: db, Driver: driver, dsn: dsn}, nil
}

// Gorm opens an ORM handle over the same database. The models layer works
// through gorm; migrations and the stats queries stay on the raw handle.
func (db *DB) Gorm(debug bool) (*gorm.DB, error) {
	if db == nil {
		return nil, fmt.Errorf("nil db")
	}
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}
	switch db.Driver {
	case DriverPostgres:
		return gorm.Open(postgres.Open(db.dsn), cfg)
	default:
		return gorm.Open(sqlite.Open(db.dsn), cfg)
	}
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rune(s[i-1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					out.WriteByte('_')
				}
			}
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}
