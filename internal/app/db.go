package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/sqlite"
)

func CreateSqliteDb(ctx context.Context, dialect, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := "file:" + name + "?cache=shared&mode=rwc"
	db, err := sql.Open(dialect, connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func InitSqliteDb(db *sql.DB) error {
	return sqlite.Migrate(db)
}
