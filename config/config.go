package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	AppName                       string   `mapstructure:"APP_NAME"`
	Port                          int      `mapstructure:"PORT"`
	LogLevel                      string   `mapstructure:"LOG_LEVEL"`
	PrettyLogs                    bool     `mapstructure:"PRETTY_LOGS"`
	HttpServerWriteTimeoutSeconds int      `mapstructure:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS"`
	HttpServerReadTimeoutSeconds  int      `mapstructure:"HTTP_SERVER_READ_TIMEOUT_SECONDS"`
	HttpServerIdleTimeoutSeconds  int      `mapstructure:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS"`
	MaxHeaderBytes                int      `mapstructure:"HTTP_SERVER_MAX_HEADER_BYTES"` // 64KB
	ReadHeaderTimeoutSeconds      int      `mapstructure:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS"`
	AllowOrigins                  []string `mapstructure:"HTTP_SERVER_ALLOW_ORIGINS"`
	AllowMethods                  []string `mapstructure:"HTTP_SERVER_ALLOW_METHODS"`
	StartupMaxAttempts            int      `mapstructure:"STARTUP_MAX_ATTEMPTS"`

	// PostgreSQL (profiles, reviews, associations)
	DatabaseDriver                string        `mapstructure:"DB_DRIVER"`
	DatabaseHost                  string        `mapstructure:"DB_HOST"`
	DatabasePort                  string        `mapstructure:"DB_PORT"`
	DatabaseUserName              string        `mapstructure:"DB_USER_NAME"`
	DatabasePassword              string        `mapstructure:"DB_PASSWORD"`
	DatabaseName                  string        `mapstructure:"DB_NAME"`
	DatabaseSSLMode               string        `mapstructure:"DB_SQL_MODE"`
	DatabaseMaxOpenConns          int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DatabaseMaxIdleConns          int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DatabaseConnMaxLifetime       time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DatabaseMigrationFolderPath   string        `mapstructure:"DB_MIGRATION_FOLDER_PATH"`
	DatabaseMigrationVersion      int           `mapstructure:"DB_MIGRATION_VERSION"`
	DatabaseMigrationForce        int           `mapstructure:"DB_MIGRATION_FORCE"`
	DatabaseMigrationAutoRollback bool          `mapstructure:"DB_MIGRATION_AUTO_ROLLBACK"`

	// Every store call runs under this deadline so a slow store surfaces as a
	// transient failure instead of hanging the request.
	StoreTimeout time.Duration `mapstructure:"STORE_TIMEOUT"`

	// Graph Database (identity links)
	GraphEnabled    bool   `mapstructure:"GRAPH_ENABLED"`
	GraphDBHost     string `mapstructure:"GRAPH_DB_HOST"`
	GraphDBPort     int    `mapstructure:"GRAPH_DB_PORT"`
	GraphDBUser     string `mapstructure:"GRAPH_DB_USER"`
	GraphDBPassword string `mapstructure:"GRAPH_DB_PASSWORD"`

	// Redis (claim idempotency keys)
	RedisEnabled        bool          `mapstructure:"REDIS_ENABLED"`
	RedisHost           string        `mapstructure:"REDIS_HOST"`
	RedisPort           int           `mapstructure:"REDIS_PORT"`
	RedisPassword       string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int           `mapstructure:"REDIS_DB"`
	IdempotencyKeyTTL   time.Duration `mapstructure:"IDEMPOTENCY_KEY_TTL"`
	IdempotencyKeyScope string        `mapstructure:"IDEMPOTENCY_KEY_PREFIX"`

	// Auth
	AuthEnabled   bool   `mapstructure:"AUTH_ENABLED"`
	AuthIssuerURL string `mapstructure:"AUTH_ISSUER_URL"`
	AuthClientID  string `mapstructure:"AUTH_CLIENT_ID"`

	// Kafka Producer (audit and claim events)
	KafkaEnabled      bool     `mapstructure:"KAFKA_ENABLED"`
	KafkaBrokers      []string `mapstructure:"KAFKA_BROKERS"`
	KafkaOutputTopic  string   `mapstructure:"KAFKA_OUTPUT_TOPIC"`
	KafkaBatchSize    int      `mapstructure:"KAFKA_BATCH_SIZE"`
	KafkaBatchTimeout int      `mapstructure:"KAFKA_BATCH_TIMEOUT_MS"`
	KafkaRequiredAcks int      `mapstructure:"KAFKA_REQUIRED_ACKS"`
	KafkaCompression  string   `mapstructure:"KAFKA_COMPRESSION"`

	// Tracing
	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingEndpoint string `mapstructure:"TRACING_ENDPOINT"`
	TracingProtocol string `mapstructure:"TRACING_PROTOCOL"`

	// Matching
	DuplicateNameThreshold float64 `mapstructure:"DUPLICATE_NAME_THRESHOLD"`
	AddressSimilarity      float64 `mapstructure:"ADDRESS_SIMILARITY_THRESHOLD"`
	MatchBatchSize         int     `mapstructure:"MATCH_BATCH_SIZE"`
}

// defaults seeds every key so that AutomaticEnv can resolve it before
// Unmarshal; viper only looks up env vars for keys it already knows.
var defaults = map[string]any{
	"APP_NAME":                                "clover-api",
	"PORT":                                    3004,
	"LOG_LEVEL":                               "info",
	"PRETTY_LOGS":                             false,
	"HTTP_SERVER_WRITE_TIMEOUT_SECONDS":       10,
	"HTTP_SERVER_READ_TIMEOUT_SECONDS":        10,
	"HTTP_SERVER_IDLE_TIMEOUT_SECONDS":        10,
	"HTTP_SERVER_MAX_HEADER_BYTES":            64000,
	"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS": 10,
	"HTTP_SERVER_ALLOW_ORIGINS":               []string{"*"},
	"HTTP_SERVER_ALLOW_METHODS":               []string{"GET", "POST", "PUT", "DELETE"},
	"STARTUP_MAX_ATTEMPTS":                    5,
	"DB_DRIVER":                               "postgres",
	"DB_HOST":                                 "localhost",
	"DB_PORT":                                 "5432",
	"DB_USER_NAME":                            "",
	"DB_PASSWORD":                             "",
	"DB_NAME":                                 "clover",
	"DB_SQL_MODE":                             "disable",
	"DB_MAX_OPEN_CONNS":                       25,
	"DB_MAX_IDLE_CONNS":                       10,
	"DB_CONN_MAX_LIFETIME":                    10 * time.Second,
	"DB_MIGRATION_FOLDER_PATH":                "db/pg",
	"DB_MIGRATION_VERSION":                    0,
	"DB_MIGRATION_FORCE":                      0,
	"DB_MIGRATION_AUTO_ROLLBACK":              true,
	"STORE_TIMEOUT":                           3 * time.Second,
	"GRAPH_ENABLED":                           false,
	"GRAPH_DB_HOST":                           "localhost",
	"GRAPH_DB_PORT":                           7687,
	"GRAPH_DB_USER":                           "",
	"GRAPH_DB_PASSWORD":                       "",
	"REDIS_ENABLED":                           false,
	"REDIS_HOST":                              "localhost",
	"REDIS_PORT":                              6379,
	"REDIS_PASSWORD":                          "",
	"REDIS_DB":                                0,
	"IDEMPOTENCY_KEY_TTL":                     24 * time.Hour,
	"IDEMPOTENCY_KEY_PREFIX":                  "clover:idem:",
	"AUTH_ENABLED":                            false,
	"AUTH_ISSUER_URL":                         "",
	"AUTH_CLIENT_ID":                          "",
	"KAFKA_ENABLED":                           false,
	"KAFKA_BROKERS":                           []string{"localhost:9092"},
	"KAFKA_OUTPUT_TOPIC":                      "identity-events",
	"KAFKA_BATCH_SIZE":                        100,
	"KAFKA_BATCH_TIMEOUT_MS":                  100,
	"KAFKA_REQUIRED_ACKS":                     1,
	"KAFKA_COMPRESSION":                       "snappy",
	"TRACING_ENABLED":                         false,
	"TRACING_ENDPOINT":                        "localhost:4317",
	"TRACING_PROTOCOL":                        "grpc",
	"DUPLICATE_NAME_THRESHOLD":                0.85,
	"ADDRESS_SIMILARITY_THRESHOLD":            0.8,
	"MATCH_BATCH_SIZE":                        500,
}

// Load reads configuration from an optional .env file, an optional config file
// and the process environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	return &cfg, nil
}
