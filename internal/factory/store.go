package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/config"
	"github.com/gurujiofficial51-wq/info1/internal/store"
	"github.com/gurujiofficial51-wq/info1/internal/store/postgres"
	"github.com/gurujiofficial51-wq/info1/internal/store/sqlite"
)

// NewStore selects the store adapter based on cfg.DBDriver. Pending
// migrations are applied before the store is returned.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLitePath).Msg("opening sqlite store")
		return sqlite.New(ctx, cfg.SQLitePath, log)
	case "postgres":
		log.Info().Msg("opening postgres store")
		return postgres.New(ctx, cfg.PostgresDSN, log)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
