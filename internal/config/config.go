// Package config loads and validates the ssf configuration from a YAML file
// plus SSF_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
)

// Config is the top-level ssf configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Audit    AuditConfig    `yaml:"audit" mapstructure:"audit"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	MCP      MCPConfig      `yaml:"mcp" mapstructure:"mcp"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host" mapstructure:"host"`
	Port            int        `yaml:"port" mapstructure:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RateLimit       int        `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS            CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
	Methods []string `yaml:"methods" mapstructure:"methods"`
}

// DatabaseConfig describes the primary connection used for CRUD statements.
type DatabaseConfig struct {
	Dialect string     `yaml:"dialect" mapstructure:"dialect"`
	DSN     string     `yaml:"dsn" mapstructure:"dsn"`
	Pool    PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig controls a connection pool.
type PoolConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// AuditConfig controls the audit trail. The audit pool is opened separately
// from the CRUD pool; an empty DSN reuses the database DSN on its own pool.
type AuditConfig struct {
	Table string     `yaml:"table" mapstructure:"table"`
	DSN   string     `yaml:"dsn" mapstructure:"dsn"`
	Pool  PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AuthConfig controls JWT authentication.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTExpiry string `yaml:"jwt_expiry" mapstructure:"jwt_expiry"`
}

// EngineConfig scopes what the engine may touch.
type EngineConfig struct {
	AllowedTables []string `yaml:"allowed_tables" mapstructure:"allowed_tables"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Transport string `yaml:"transport" mapstructure:"transport"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "30s",
			RateLimit:       100,
			CORS: CORSConfig{
				Origins: []string{"*"},
				Methods: []string{"GET", "POST", "DELETE"},
			},
		},
		Database: DatabaseConfig{
			Dialect: "sqlite",
			DSN:     "file:ssf.db?_pragma=foreign_keys(1)",
			Pool: PoolConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: "30m",
			},
		},
		Audit: AuditConfig{
			Table: "AUDIT_DYNAMIC_CRUD",
			Pool: PoolConfig{
				MaxOpenConns:    2,
				MaxIdleConns:    1,
				ConnMaxLifetime: "30m",
			},
		},
		Auth: AuthConfig{
			JWTExpiry: "1h",
		},
		Engine: EngineConfig{
			AllowedTables: []string{
				"USERS",
				"AUDIT_LOGIN_ATTEMPTS",
				"AUDIT_SESSIONS",
				"AUDIT_DYNAMIC_CRUD",
				"AUDIT_ERROR_LOG",
			},
		},
		MCP: MCPConfig{
			Enabled:   false,
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile reads and parses a YAML configuration file. Environment variables
// referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to a YAML file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the parts of the configuration that would otherwise fail
// deep inside startup.
func (c *Config) Validate() error {
	if _, err := dialect.Get(c.Database.Dialect); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if len(c.Engine.AllowedTables) == 0 {
		return fmt.Errorf("engine.allowed_tables must list at least one table")
	}
	if c.Auth.JWTExpiry != "" {
		if _, err := time.ParseDuration(c.Auth.JWTExpiry); err != nil {
			return fmt.Errorf("auth.jwt_expiry: %w", err)
		}
	}
	if c.Server.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
			return fmt.Errorf("server.shutdown_timeout: %w", err)
		}
	}
	return nil
}

// ShutdownTimeout returns the parsed shutdown timeout, defaulting to 30s.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// JWTExpiry returns the parsed token lifetime, defaulting to one hour.
func (c *Config) JWTExpiry() time.Duration {
	d, err := time.ParseDuration(c.Auth.JWTExpiry)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Lifetime returns the parsed pool connection lifetime, defaulting to 30m.
func (p PoolConfig) Lifetime() time.Duration {
	d, err := time.ParseDuration(p.ConnMaxLifetime)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}
