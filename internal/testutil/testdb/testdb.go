//go:build testutil
// +build testutil

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/elsakane2015/classtrack/internal/db"
)

type DBHandle struct {
	DB     *sql.DB
	cancel func()
	stop   func(context.Context) error
}

func (h *DBHandle) Close() {
	if h.DB != nil {
		_ = h.DB.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start spins up a throwaway postgres and applies the embedded migrations.
func Start(ctx context.Context) (*DBHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:17-alpine"),
		postgres.WithDatabase("classtrack"),
		postgres.WithUsername("classtrack"),
		postgres.WithPassword("classtrack"),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	database, err := sql.Open("postgres", uri)
	if err != nil {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}
	if err := waitReady(ctx, database); err != nil {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	if err := db.Migrate(database); err != nil {
		_ = pg.Terminate(ctx)
		cancel()
		return nil, err
	}

	return &DBHandle{
		DB:     database,
		cancel: cancel,
		stop:   pg.Terminate,
	}, nil
}

func waitReady(ctx context.Context, database *sql.DB) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := database.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("db not ready")
}
