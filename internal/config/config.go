// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Mattermost   MattermostConfig    `mapstructure:"mattermost"`
	Database     DatabaseConfig      `mapstructure:"database"`
	Scheduler    SchedulerConfig     `mapstructure:"scheduler"`
	Metrics      MetricsConfig       `mapstructure:"metrics"`
	Logging      LoggingConfig       `mapstructure:"logging"`
	Gamification GamificationConfig  `mapstructure:"gamification"`
	Achievements []AchievementConfig `mapstructure:"achievements"`
	LevelRewards []LevelRewardConfig `mapstructure:"level_rewards"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MattermostConfig contains Mattermost webhook notification settings.
type MattermostConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Enabled    bool   `mapstructure:"enabled"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	RunMigrations   bool   `mapstructure:"run_migrations"`
}

// URL returns the connection URL used by the migration runner.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SchedulerConfig contains cron schedules for background jobs.
type SchedulerConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	AchievementSweepTime  string `mapstructure:"achievement_sweep_time"`  // cron expression
	LeaderboardDigestTime string `mapstructure:"leaderboard_digest_time"` // cron expression
	SeasonCheckTime       string `mapstructure:"season_check_time"`       // cron expression
	Timezone              string `mapstructure:"timezone"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AchievementConfig is a seed entry for the achievement catalog.
type AchievementConfig struct {
	Code        string         `mapstructure:"code" yaml:"code"`
	Name        string         `mapstructure:"name" yaml:"name"`
	Description string         `mapstructure:"description" yaml:"description"`
	Icon        string         `mapstructure:"icon" yaml:"icon"`
	XPReward    int            `mapstructure:"xp_reward" yaml:"xp_reward"`
	Active      *bool          `mapstructure:"active" yaml:"active"`
	Criteria    map[string]any `mapstructure:"criteria" yaml:"criteria"`
}

// LevelRewardConfig is a seed entry for level reward metadata.
type LevelRewardConfig struct {
	Level       int    `mapstructure:"level" yaml:"level"`
	Title       string `mapstructure:"title" yaml:"title"`
	Description string `mapstructure:"description" yaml:"description"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/attendant-rewards/")
	}

	setDefaults(v)

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// Mattermost configuration
	_ = v.BindEnv("mattermost.webhook_url", "MATTERMOST_WEBHOOK_URL")
	_ = v.BindEnv("mattermost.channel", "MATTERMOST_CHANNEL")
	_ = v.BindEnv("mattermost.enabled", "MATTERMOST_ENABLED")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.postgres.run_migrations", "POSTGRES_RUN_MIGRATIONS")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.achievement_sweep_time", "SCHEDULER_ACHIEVEMENT_SWEEP_TIME")
	_ = v.BindEnv("scheduler.leaderboard_digest_time", "SCHEDULER_LEADERBOARD_DIGEST_TIME")
	_ = v.BindEnv("scheduler.season_check_time", "SCHEDULER_SEASON_CHECK_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	// Gamification configuration
	_ = v.BindEnv("gamification.global_xp_multiplier", "GAMIFICATION_GLOBAL_XP_MULTIPLIER")
	_ = v.BindEnv("gamification.leaderboard.cache_ttl", "GAMIFICATION_LEADERBOARD_CACHE_TTL")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults registers defaults for every key that has one, so env-only
// deployments still get a usable gamification section.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("gamification.rating_scores", d.RatingScores)
	v.SetDefault("gamification.global_xp_multiplier", d.GlobalXPMultiplier)
	v.SetDefault("gamification.levels.base_xp", d.Levels.BaseXP)
	v.SetDefault("gamification.levels.exponent", d.Levels.Exponent)
	v.SetDefault("gamification.levels.max_level", d.Levels.MaxLevel)
	v.SetDefault("gamification.leaderboard.cache_ttl", d.Leaderboard.CacheTTL)
	v.SetDefault("gamification.leaderboard.default_limit", d.Leaderboard.DefaultLimit)
	v.SetDefault("gamification.leaderboard.max_limit", d.Leaderboard.MaxLimit)
	v.SetDefault("gamification.insights.top_n", d.Insights.TopN)
	v.SetDefault("gamification.insights.low_rating_threshold", d.Insights.LowRatingThreshold)
	v.SetDefault("gamification.insights.position_drop", d.Insights.PositionDrop)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if err := c.Gamification.Validate(); err != nil {
		return err
	}
	for i, a := range c.Achievements {
		if a.Name == "" {
			return fmt.Errorf("achievements[%d].name is required", i)
		}
		if a.XPReward < 0 {
			return fmt.Errorf("achievements[%d].xp_reward must not be negative", i)
		}
	}
	for i, r := range c.LevelRewards {
		if r.Level < 1 {
			return fmt.Errorf("level_rewards[%d].level must be >= 1", i)
		}
	}
	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
