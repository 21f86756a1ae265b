package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"

	"github.com/zlovtnik/graphqlScala-sub003/internal/audit"
	"github.com/zlovtnik/graphqlScala-sub003/internal/catalog"
	"github.com/zlovtnik/graphqlScala-sub003/internal/config"
	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/reader"
)

// loadConfig merges the config file with SSF_-prefixed environment overrides
// picked up by viper. Flag values override both.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if file := viper.ConfigFileUsed(); file != "" {
		loaded, err := config.LoadFile(file)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if v := viper.GetString("database.dialect"); v != "" {
		cfg.Database.Dialect = v
	}
	if v := viper.GetString("database.dsn"); v != "" {
		cfg.Database.DSN = v
	}
	if v := viper.GetString("audit.dsn"); v != "" {
		cfg.Audit.DSN = v
	}
	if v := viper.GetString("audit.table"); v != "" {
		cfg.Audit.Table = v
	}
	if v := viper.GetString("auth.jwt_secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetStringSlice("engine.allowed_tables"); len(v) > 0 {
		cfg.Engine.AllowedTables = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	} else if cfg.Logging.Level == "warn" {
		level = slog.LevelWarn
	} else if cfg.Logging.Level == "error" {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openPool opens and pings one sqlx pool for the configured dialect.
func openPool(d dialect.Dialect, dsn string, pool config.PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", d.Name(), err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.Lifetime())
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.Name(), err)
	}
	return db, nil
}

// stack bundles everything a command needs to run the engine.
type stack struct {
	cfg     *config.Config
	dialect dialect.Dialect
	db      *sqlx.DB
	auditDB *sqlx.DB
	loader  *catalog.Loader
	engine  *engine.Engine
	reader  *reader.Reader
	logger  *slog.Logger
}

// buildStack opens the pools and wires the engine, reader, and audit
// recorder. The audit pool is always separate from the CRUD pool, even when
// both point at the same DSN, so audit writes commit independently.
func buildStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	d, err := dialect.Get(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}

	db, err := openPool(d, cfg.Database.DSN, cfg.Database.Pool)
	if err != nil {
		return nil, err
	}

	auditDSN := cfg.Audit.DSN
	if auditDSN == "" {
		auditDSN = cfg.Database.DSN
	}
	auditDB, err := openPool(d, auditDSN, cfg.Audit.Pool)
	if err != nil {
		db.Close()
		return nil, err
	}

	allow, err := engine.NewAllowList(cfg.Engine.AllowedTables)
	if err != nil {
		db.Close()
		auditDB.Close()
		return nil, err
	}

	loader := catalog.NewLoader(db, d)
	recorder := audit.NewRecorder(auditDB, d, cfg.Audit.Table, logger)
	eng := engine.New(db, d, allow, loader, recorder, logger)
	rd := reader.New(db, d, allow, loader)

	return &stack{
		cfg:     cfg,
		dialect: d,
		db:      db,
		auditDB: auditDB,
		loader:  loader,
		engine:  eng,
		reader:  rd,
		logger:  logger,
	}, nil
}

func (s *stack) Close() {
	s.db.Close()
	s.auditDB.Close()
}
