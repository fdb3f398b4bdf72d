package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Matching   MatchingConfig   `yaml:"matching" mapstructure:"matching"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Tariff     TariffConfig     `yaml:"tariff" mapstructure:"tariff"`
	Import     ImportConfig     `yaml:"import" mapstructure:"import"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig sizes the Postgres connection pool. Zero values keep the pgx
// defaults.
type PoolConfig struct {
	MaxConns            int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns            int32 `yaml:"min_conns" mapstructure:"min_conns"`
	MaxConnLifetimeSecs int   `yaml:"max_conn_lifetime_secs" mapstructure:"max_conn_lifetime_secs"`
	MaxConnIdleTimeSecs int   `yaml:"max_conn_idle_time_secs" mapstructure:"max_conn_idle_time_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // submissions per second per client
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MatchingConfig configures installation matching.
type MatchingConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	LookupTimeoutSecs   int           `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	Breaker             BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around installation lookups.
type BreakerConfig struct {
	Threshold    int `yaml:"threshold" mapstructure:"threshold"`
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// RedisConfig configures the installation lookup cache. An empty Addr
// disables caching.
type RedisConfig struct {
	Addr    string `yaml:"addr" mapstructure:"addr"`
	TTLSecs int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// TariffConfig points at an optional tariff catalog file. Empty uses the
// built-in tariffs.
type TariffConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// ImportConfig configures the legacy installation import.
type ImportConfig struct {
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
}

// MonitoringConfig configures the background alert checker.
type MonitoringConfig struct {
	Enabled               bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	UnpricedRateThreshold float64 `yaml:"unpriced_rate_threshold" mapstructure:"unpriced_rate_threshold"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FORMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "forms.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 1.0)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("matching.similarity_threshold", 0.85)
	v.SetDefault("matching.lookup_timeout_secs", 5)
	v.SetDefault("matching.breaker.threshold", 5)
	v.SetDefault("matching.breaker.cooldown_secs", 30)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl_secs", 900)
	v.SetDefault("tariff.catalog_path", "")
	v.SetDefault("import.batch_size", 500)
	v.SetDefault("import.delimiter", ";")
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.unpriced_rate_threshold", 0.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "serve", "import", "migrate" and "cli".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if t := c.Matching.SimilarityThreshold; t <= 0 || t > 1 {
		errs = append(errs, "matching.similarity_threshold must be in (0, 1]")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_limit and server.rate_burst must be positive")
		}
		if c.Monitoring.Enabled && c.Monitoring.LookbackWindowHours < 1 {
			errs = append(errs, "monitoring.lookback_window_hours must be >= 1")
		}
	case "import":
		if c.Import.BatchSize < 1 {
			errs = append(errs, "import.batch_size must be >= 1")
		}
		if len([]rune(c.Import.Delimiter)) != 1 {
			errs = append(errs, "import.delimiter must be a single character")
		}
	case "migrate", "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
