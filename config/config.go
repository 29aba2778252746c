package config

import (
	"sort"
	"strings"

	"waxworks/pkg/logger"

	"github.com/spf13/viper"
)

// Profile selects which subset of the environment contract a binary
// requires. Each binary validates only what it connects to.
type Profile string

const (
	ProfileAPI       Profile = "api"
	ProfileGraphSink Profile = "graph-sink"
	ProfileTableSink Profile = "table-sink"
	ProfileMigration Profile = "migration"
)

type Config struct {
	GeneralVersion string `mapstructure:"GENERAL_VERSION"`
	Environment    string `mapstructure:"ENVIRONMENT"`

	APIPort             int `mapstructure:"API_PORT"`
	GraphSinkHealthPort int `mapstructure:"GRAPH_SINK_HEALTH_PORT"`
	TableSinkHealthPort int `mapstructure:"TABLE_SINK_HEALTH_PORT"`

	PostgresAddress  string `mapstructure:"POSTGRES_ADDRESS"`
	PostgresUsername string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDatabase string `mapstructure:"POSTGRES_DATABASE"`

	Neo4jAddress  string `mapstructure:"NEO4J_ADDRESS"`
	Neo4jUsername string `mapstructure:"NEO4J_USERNAME"`
	Neo4jPassword string `mapstructure:"NEO4J_PASSWORD"`

	AMQPConnection string `mapstructure:"AMQP_CONNECTION"`

	RedisAddress string `mapstructure:"REDIS_ADDRESS"`

	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`

	DiscogsConsumerKey    string `mapstructure:"DISCOGS_CONSUMER_KEY"`
	DiscogsConsumerSecret string `mapstructure:"DISCOGS_CONSUMER_SECRET"`
	DiscogsUserAgent      string `mapstructure:"DISCOGS_USER_AGENT"`

	OAuthEncryptionKey string `mapstructure:"OAUTH_ENCRYPTION_KEY"`

	CORSOrigins        string `mapstructure:"CORS_ORIGINS"`
	CacheWebhookSecret string `mapstructure:"CACHE_WEBHOOK_SECRET"`

	SyncCooldownSeconds int `mapstructure:"SYNC_COOLDOWN_SECONDS"`
	PeriodicCheckDays   int `mapstructure:"PERIODIC_CHECK_DAYS"`
}

func New(profile Profile) (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config", "profile", string(profile))

	// Enable automatic environment variable reading first
	viper.AutomaticEnv()

	// Bind environment variables to config keys
	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT",
		"API_PORT", "GRAPH_SINK_HEALTH_PORT", "TABLE_SINK_HEALTH_PORT",
		"POSTGRES_ADDRESS", "POSTGRES_USERNAME", "POSTGRES_PASSWORD", "POSTGRES_DATABASE",
		"NEO4J_ADDRESS", "NEO4J_USERNAME", "NEO4J_PASSWORD",
		"AMQP_CONNECTION", "REDIS_ADDRESS",
		"JWT_SECRET_KEY",
		"DISCOGS_CONSUMER_KEY", "DISCOGS_CONSUMER_SECRET", "DISCOGS_USER_AGENT",
		"OAUTH_ENCRYPTION_KEY",
		"CORS_ORIGINS", "CACHE_WEBHOOK_SECRET",
		"SYNC_COOLDOWN_SECONDS", "PERIODIC_CHECK_DAYS",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	// Check if key environment variables are already set
	envVarsSet := viper.IsSet("POSTGRES_ADDRESS") || viper.IsSet("AMQP_CONNECTION")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		// Load base .env file
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		// Load .env.local overrides if it exists
		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("API_PORT", 8004)
	viper.SetDefault("GRAPH_SINK_HEALTH_PORT", 8001)
	viper.SetDefault("TABLE_SINK_HEALTH_PORT", 8002)
	viper.SetDefault("SYNC_COOLDOWN_SECONDS", 600)
	viper.SetDefault("PERIODIC_CHECK_DAYS", 0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	if err := validateConfig(config, profile, log); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config", "profile", string(profile))
	return config, nil
}

func validateConfig(config Config, profile Profile, log logger.Logger) error {
	required := map[string]string{}

	requirePostgres := func() {
		required["POSTGRES_ADDRESS"] = config.PostgresAddress
		required["POSTGRES_USERNAME"] = config.PostgresUsername
		required["POSTGRES_PASSWORD"] = config.PostgresPassword
		required["POSTGRES_DATABASE"] = config.PostgresDatabase
	}
	requireNeo4j := func() {
		required["NEO4J_ADDRESS"] = config.Neo4jAddress
		required["NEO4J_USERNAME"] = config.Neo4jUsername
		required["NEO4J_PASSWORD"] = config.Neo4jPassword
	}

	switch profile {
	case ProfileAPI:
		requirePostgres()
		requireNeo4j()
		required["REDIS_ADDRESS"] = config.RedisAddress
		required["JWT_SECRET_KEY"] = config.JWTSecretKey
		// Encrypted app_config rows override these at sync time, but the
		// env pair must exist so a fresh install can sync before setup.
		required["DISCOGS_CONSUMER_KEY"] = config.DiscogsConsumerKey
		required["DISCOGS_CONSUMER_SECRET"] = config.DiscogsConsumerSecret
		required["DISCOGS_USER_AGENT"] = config.DiscogsUserAgent
	case ProfileGraphSink:
		requireNeo4j()
		required["AMQP_CONNECTION"] = config.AMQPConnection
	case ProfileTableSink:
		requirePostgres()
		required["AMQP_CONNECTION"] = config.AMQPConnection
	case ProfileMigration:
		requirePostgres()
		requireNeo4j()
		required["REDIS_ADDRESS"] = config.RedisAddress
		// The seed and setup subcommands construct the auth service.
		required["JWT_SECRET_KEY"] = config.JWTSecretKey
	default:
		return log.Error("Fatal error: unknown config profile", "profile", string(profile))
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return log.Error(
			"Fatal error: missing required environment variables",
			"missing", strings.Join(missing, ", "),
			"profile", string(profile),
		)
	}

	if config.SyncCooldownSeconds < 0 {
		return log.Error(
			"Fatal error: SYNC_COOLDOWN_SECONDS must not be negative",
			"value", config.SyncCooldownSeconds,
		)
	}
	if config.PeriodicCheckDays < 0 {
		return log.Error(
			"Fatal error: PERIODIC_CHECK_DAYS must not be negative",
			"value", config.PeriodicCheckDays,
		)
	}

	return nil
}
