// Package storage picks the datastore backend from configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"room_booking/internal/adapters/supabase"
	"room_booking/internal/domain"
	"room_booking/internal/shared"
	mysqlrepo "room_booking/internal/storage/mysql"
)

// Backend is an opened store plus its release func.
type Backend struct {
	Store domain.Store
	DB    *sql.DB // nil for remote backends
	Close func() error
}

// Open connects the backend named by cfg.Store. With migrate set, MySQL
// schema migrations run before returning.
func Open(ctx context.Context, cfg shared.Config, migrate bool) (*Backend, error) {
	switch cfg.Store {
	case shared.StoreSupabase:
		cl, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseRPS)
		if err != nil {
			return nil, err
		}
		log.Info().Str("store", cfg.Store).Msg("datastore ready")
		return &Backend{Store: cl, Close: func() error { return nil }}, nil

	case shared.StoreMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		if migrate {
			if err := mysqlrepo.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		log.Info().Str("store", cfg.Store).Msg("datastore ready")
		return &Backend{Store: mysqlrepo.New(db), DB: db, Close: db.Close}, nil
	}
	return nil, fmt.Errorf("unknown store %q (want %s or %s)", cfg.Store, shared.StoreMySQL, shared.StoreSupabase)
}
