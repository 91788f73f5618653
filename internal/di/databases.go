package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/tradejournal/internal/config"
	"github.com/aristath/tradejournal/internal/database"
)

// InitializeDatabases creates the connection manager for the journal database.
// The connection itself is opened and migrated on first use.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{
		Registry: database.NewRegistry(),
	}
	container.Manager = database.NewManager(cfg.ManagerConfig(), container.Registry, log)

	log.Info().
		Str("path", container.Manager.Path()).
		Str("driver", string(cfg.DBDriver)).
		Msg("Journal database configured")

	return container, nil
}
