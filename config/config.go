/*
Package config loads server configuration from the environment.

Environment variables use the FACTORY_ prefix and are processed with
envconfig; cmd/server loads a local .env file first (godotenv) so
development settings never need exporting. Command-line flags in
cmd/server override whatever the environment says.
*/
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "FACTORY"

type Config struct {
	App AppConfig
	DB  DBConfig
	API APIConfig
}

type AppConfig struct {
	Env      string `envconfig:"FACTORY_APP_ENV" default:"dev"`
	Port     int    `envconfig:"FACTORY_APP_PORT" default:"8080"`
	LogLevel string `envconfig:"FACTORY_LOG_LEVEL" default:"info"`
}

type DBConfig struct {
	// Path is the SQLite database file. ":memory:" runs fully in memory.
	Path string `envconfig:"FACTORY_DB_PATH" default:"factory.db"`
}

type APIConfig struct {
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string `envconfig:"FACTORY_API_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`

	// ReconcileInterval is how often the background auditor resums the
	// inventory journal against the cached balances. Zero disables it.
	ReconcileInterval time.Duration `envconfig:"FACTORY_RECONCILE_INTERVAL" default:"1h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func (a AppConfig) IsDev() bool { return a.Env == "dev" }
