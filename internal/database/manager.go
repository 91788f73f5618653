package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultName is the reserved connection name of the trade journal
const DefaultName = "trades_db"

// ManagerConfig describes the single connection a Manager owns
type ManagerConfig struct {
	DataDir string
	Name    string // defaults to DefaultName
	Path    string // overrides DataDir/Name.db when set
	Driver  Driver
	Version int // schema version to migrate to on creation; 0 = latest
}

// Manager owns the journal's one database connection. It opens the
// connection lazily, migrates the schema on first creation and hands the
// same handle to every caller.
type Manager struct {
	cfg      ManagerConfig
	registry *Registry
	log      zerolog.Logger

	mu sync.Mutex
	db *DB
}

// NewManager creates a connection manager. A nil registry gets a private one.
func NewManager(cfg ManagerConfig, registry *Registry, log zerolog.Logger) *Manager {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.Path == "" {
		cfg.Path = filepath.Join(cfg.DataDir, cfg.Name+".db")
	}
	if registry == nil {
		registry = NewRegistry()
	}

	return &Manager{
		cfg:      cfg,
		registry: registry,
		log:      log.With().Str("component", "db_manager").Str("database", cfg.Name).Logger(),
	}
}

// EnsureConnection returns the open connection, creating and migrating it on
// first use. Concurrent callers wait on the same initialization.
func (m *Manager) EnsureConnection(ctx context.Context) (*DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}

	if !DriverAvailable(m.cfg.Driver) {
		m.log.Error().Str("driver", string(m.cfg.Driver)).Msg("SQLite driver not available")
		return nil, fmt.Errorf("%w: driver %q is not registered", ErrPlatformUnsupported, m.cfg.Driver)
	}

	var (
		db  *DB
		err error
	)
	if m.registry.IsConnection(m.cfg.Name) {
		db, err = m.registry.Reopen(ctx, m.cfg.Name)
		if err != nil {
			return nil, m.initFailed("reopen", err)
		}
		m.log.Debug().Msg("Reusing registered connection")
	} else {
		db, err = m.registry.Create(Config{
			Path:    m.cfg.Path,
			Profile: ProfileLedger,
			Driver:  m.cfg.Driver,
			Name:    m.cfg.Name,
			Version: m.cfg.Version,
		})
		if err != nil {
			return nil, m.initFailed("open", err)
		}

		if err := db.Migrate(ctx, m.cfg.Version); err != nil {
			_ = m.registry.Close(m.cfg.Name)
			return nil, m.initFailed("migrate", err)
		}

		m.log.Info().
			Str("path", db.Path()).
			Str("driver", string(db.Driver())).
			Msg("Database initialized")
	}

	m.db = db
	return db, nil
}

func (m *Manager) initFailed(stage string, cause error) error {
	m.log.Error().Err(cause).Str("stage", stage).Msg("Database initialization failed")
	return fmt.Errorf("%w: %s: %w", ErrInitializationFailed, stage, cause)
}

// Conn is a convenience wrapper returning the raw *sql.DB
func (m *Manager) Conn(ctx context.Context) (*sql.DB, error) {
	db, err := m.EnsureConnection(ctx)
	if err != nil {
		return nil, err
	}
	return db.Conn(), nil
}

// Current returns the open connection without initializing it
func (m *Manager) Current() *DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

// Name returns the connection name
func (m *Manager) Name() string {
	return m.cfg.Name
}

// Path returns the database file path
func (m *Manager) Path() string {
	return m.cfg.Path
}

// Registry returns the registry the manager opens connections through
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Close releases the connection. A later EnsureConnection reopens it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	m.db = nil
	if err := m.registry.Close(m.cfg.Name); err != nil {
		return fmt.Errorf("failed to close %s: %w", m.cfg.Name, err)
	}
	m.log.Info().Msg("Database closed")
	return nil
}

// DriverAvailable reports whether the driver is registered with database/sql
func DriverAvailable(driver Driver) bool {
	for _, name := range sql.Drivers() {
		if name == string(driver) {
			return true
		}
	}
	return false
}
