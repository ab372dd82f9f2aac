package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/banking/muling-detector/internal/engine"
	"github.com/banking/muling-detector/internal/ledger"
)

// Config holds all configuration for the muling detection service.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	S3            S3Config
	Signing       SigningConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Tracing       TracingConfig
	Detection     DetectionConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration.
type KafkaConfig struct {
	Brokers              []string      `mapstructure:"brokers"`
	ConsumerGroup        string        `mapstructure:"consumer_group"`
	TransactionTopic     string        `mapstructure:"transaction_topic"`
	TransactionBatchSize int           `mapstructure:"transaction_batch_size"`
	FlushInterval        time.Duration `mapstructure:"flush_interval"`
	EnableIdempotent     bool          `mapstructure:"enable_idempotent"`
}

// S3Config holds AWS S3 configuration for report archival.
type S3Config struct {
	Region        string `mapstructure:"region"`
	ReportsBucket string `mapstructure:"reports_bucket"`
	Endpoint      string `mapstructure:"endpoint"` // for local testing with MinIO
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
}

// SigningConfig holds the report-signing HMAC secret.
type SigningConfig struct {
	HMACSecret string `mapstructure:"hmac_secret"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// DetectionConfig mirrors engine.DetectionConfig as viper-loadable
// fields, so changing a threshold is a config change, not a code
// change. ToEngine converts it into the type the core accepts.
type DetectionConfig struct {
	CycleMinLength int `mapstructure:"cycle_min_length"`
	CycleMaxLength int `mapstructure:"cycle_max_length"`

	WindowHours      int     `mapstructure:"window_hours"`
	UniqueMinFanIn   int     `mapstructure:"unique_min_fan_in"`
	UniqueMinFanOut  int     `mapstructure:"unique_min_fan_out"`
	SmallTx          float64 `mapstructure:"small_tx"`
	SmallCPRatio     float64 `mapstructure:"small_cp_ratio"`
	VelocityHours    int     `mapstructure:"velocity_hours"`
	VelocityOutRatio float64 `mapstructure:"velocity_out_ratio"`
	VelocityBonus    int     `mapstructure:"velocity_bonus"`

	MaxDepth       int `mapstructure:"max_depth"`
	MaxGapHours    int `mapstructure:"max_gap_hours"`
	LowActivityMax int `mapstructure:"low_activity_max"`

	MaxAccountsForCycles     int `mapstructure:"max_accounts_for_cycles"`
	MaxTransactionsForCycles int `mapstructure:"max_transactions_for_cycles"`
	MaxAccountsForCentrality int `mapstructure:"max_accounts_for_centrality"`
}

// ToEngine converts the viper-loaded thresholds into engine.DetectionConfig.
func (d DetectionConfig) ToEngine() engine.DetectionConfig {
	return engine.DetectionConfig{
		CycleMinLength: d.CycleMinLength,
		CycleMaxLength: d.CycleMaxLength,

		Window:           time.Duration(d.WindowHours) * time.Hour,
		UniqueMinFanIn:   d.UniqueMinFanIn,
		UniqueMinFanOut:  d.UniqueMinFanOut,
		SmallTx:          ledger.MustMoneyFromFloat(d.SmallTx),
		SmallCPRatio:     d.SmallCPRatio,
		VelocityWindow:   time.Duration(d.VelocityHours) * time.Hour,
		VelocityOutRatio: d.VelocityOutRatio,
		VelocityBonus:    d.VelocityBonus,

		MaxDepth:       d.MaxDepth,
		MaxGap:         time.Duration(d.MaxGapHours) * time.Hour,
		LowActivityMax: d.LowActivityMax,

		MaxAccountsForCycles:     d.MaxAccountsForCycles,
		MaxTransactionsForCycles: d.MaxTransactionsForCycles,
		MaxAccountsForCentrality: d.MaxAccountsForCentrality,
	}
}

// Load loads configuration from environment and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MULING")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "muling_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Elasticsearch
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "fraud-rings")

	// Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "muling-detector-service")
	v.SetDefault("kafka.transaction_topic", "banking.transactions")
	v.SetDefault("kafka.transaction_batch_size", 5000)
	v.SetDefault("kafka.flush_interval", "30s")
	v.SetDefault("kafka.enable_idempotent", true)

	// S3
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.reports_bucket", "muling-detector-reports")
	v.SetDefault("s3.use_ssl", true)

	// Auth
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "banking-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")

	// Tracing
	v.SetDefault("tracing.enabled", true)
	v.SetDefault("tracing.service_name", "muling-detector-service")
	v.SetDefault("tracing.sample_rate", 0.1)

	// Detection thresholds
	v.SetDefault("detection.cycle_min_length", 3)
	v.SetDefault("detection.cycle_max_length", 5)
	v.SetDefault("detection.window_hours", 72)
	v.SetDefault("detection.unique_min_fan_in", 10)
	v.SetDefault("detection.unique_min_fan_out", 10)
	v.SetDefault("detection.small_tx", 1000.0)
	v.SetDefault("detection.small_cp_ratio", 0.70)
	v.SetDefault("detection.velocity_hours", 6)
	v.SetDefault("detection.velocity_out_ratio", 0.90)
	v.SetDefault("detection.velocity_bonus", 15)
	v.SetDefault("detection.max_depth", 6)
	v.SetDefault("detection.max_gap_hours", 72)
	v.SetDefault("detection.low_activity_max", 2)
	v.SetDefault("detection.max_accounts_for_cycles", 2000)
	v.SetDefault("detection.max_transactions_for_cycles", 200000)
	v.SetDefault("detection.max_accounts_for_centrality", 2000)
}
