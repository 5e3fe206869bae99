package db

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/elsakane2015/classtrack/migrations"
)

func Migrate(database *sql.DB) error {
	const op = "db.Migrate"

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := goose.Up(database, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
